package config

import (
	"time"
)

// Client holds settings for the command-line client.
type Client struct {
	// ServerAddress is the base URL of the logon server the client talks to.
	// Env: LOGON_SERVER_ADDRESS
	ServerAddress string `env:"LOGON_SERVER_ADDRESS" envDefault:"http://localhost:8080"`

	// RequestTimeout bounds every outbound request.
	// Env: LOGON_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"LOGON_REQUEST_TIMEOUT" envDefault:"30s"`
}

// GetClientConfig loads the client configuration from the environment.
func GetClientConfig() (*Client, error) {
	cfg := new(Client)
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
