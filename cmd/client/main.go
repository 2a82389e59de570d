package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/logon-vault/logon-server/internal/adapter"
	"github.com/logon-vault/logon-server/internal/client"
	"github.com/logon-vault/logon-server/internal/config"
	"github.com/logon-vault/logon-server/internal/logger"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("logon-client")
	cfg, err := config.GetClientConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	serverAdapter, err := adapter.NewHTTPServerAdapter(*cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create server adapter")
	}

	session := client.NewSession(serverAdapter, log)

	if err = run(context.Background(), session, os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("client run error")
	}
}

func run(ctx context.Context, session *client.Session, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: logon-client <register|login|verify-2fa|recover> [flags]")
	}

	switch args[0] {
	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		email := fs.String("email", "", "account email")
		username := fs.String("username", "", "optional username")
		password := fs.String("password", "", "master password")
		fs.Parse(args[1:])

		reg, err := session.Register(ctx, *email, *username, *password)
		if err != nil {
			return err
		}
		fmt.Printf("registered %s (%s)\n", reg.User.Email, reg.User.ID)
		fmt.Printf("recovery code (shown once, store it safely): %s\n", reg.RecoveryCode)
		return nil

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		identifier := fs.String("identifier", "", "email or username")
		password := fs.String("password", "", "master password")
		code := fs.String("code", "", "optional two-factor code")
		fs.Parse(args[1:])

		resp, err := session.Login(ctx, *identifier, *password, *code)
		if err != nil {
			return err
		}
		if resp.RequiresTwoFactor {
			fmt.Println("two-factor code required: rerun login with -code, or use verify-2fa")
			return nil
		}
		if resp.User != nil {
			fmt.Printf("logged in as %s\n", resp.User.Email)
		}
		return nil

	case "verify-2fa":
		fs := flag.NewFlagSet("verify-2fa", flag.ExitOnError)
		email := fs.String("email", "", "account email")
		code := fs.String("code", "", "two-factor code")
		fs.Parse(args[1:])

		resp, err := session.VerifyTwoFactor(ctx, *email, *code)
		if err != nil {
			return err
		}
		if resp.User != nil {
			fmt.Printf("logged in as %s\n", resp.User.Email)
		}
		return nil

	case "recover":
		fs := flag.NewFlagSet("recover", flag.ExitOnError)
		email := fs.String("email", "", "account email")
		recoveryCode := fs.String("recovery-code", "", "recovery code from registration")
		newPassword := fs.String("new-password", "", "replacement master password")
		fs.Parse(args[1:])

		newCode, err := session.Recover(ctx, *email, *recoveryCode, *newPassword)
		if err != nil {
			return err
		}
		fmt.Println("credentials replaced")
		fmt.Printf("new recovery code (shown once, store it safely): %s\n", newCode)
		return nil

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
