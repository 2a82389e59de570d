package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig mirrors [StructuredConfig] for file-based
// configuration. Duration fields use the [Duration] wrapper so the file can
// carry strings like "15m" or "168h".
type StructuredJSONConfig struct {
	Auth struct {
		AccessTokenSecret  string   `json:"access_token_secret"`
		RefreshTokenSecret string   `json:"refresh_token_secret"`
		TokenIssuer        string   `json:"token_issuer"`
		TokenAudience      string   `json:"token_audience"`
		AccessTokenTTL     Duration `json:"access_token_ttl"`
		RefreshTokenTTL    Duration `json:"refresh_token_ttl"`
		BcryptCost         int      `json:"bcrypt_cost"`
		LockoutThreshold   int      `json:"lockout_threshold"`
		LockoutCooldown    Duration `json:"lockout_cooldown"`
		SaltCacheTTL       Duration `json:"salt_cache_ttl"`
		SaltCacheSize      int      `json:"salt_cache_size"`
		TOTPIssuer         string   `json:"totp_issuer"`
	} `json:"auth,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
	} `json:"storage,omitempty"`

	Server struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"server,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		Auth: Auth{
			AccessTokenSecret:  jsonCfg.Auth.AccessTokenSecret,
			RefreshTokenSecret: jsonCfg.Auth.RefreshTokenSecret,
			TokenIssuer:        jsonCfg.Auth.TokenIssuer,
			TokenAudience:      jsonCfg.Auth.TokenAudience,
			AccessTokenTTL:     time.Duration(jsonCfg.Auth.AccessTokenTTL),
			RefreshTokenTTL:    time.Duration(jsonCfg.Auth.RefreshTokenTTL),
			BcryptCost:         jsonCfg.Auth.BcryptCost,
			LockoutThreshold:   jsonCfg.Auth.LockoutThreshold,
			LockoutCooldown:    time.Duration(jsonCfg.Auth.LockoutCooldown),
			SaltCacheTTL:       time.Duration(jsonCfg.Auth.SaltCacheTTL),
			SaltCacheSize:      jsonCfg.Auth.SaltCacheSize,
			TOTPIssuer:         jsonCfg.Auth.TOTPIssuer,
		},
		Storage: Storage{
			DB: DB{
				DSN: jsonCfg.Storage.DB.DSN,
			},
		},
		Server: Server{
			HTTPAddress:    jsonCfg.Server.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Server.RequestTimeout),
		},
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling
// from strings like "1h", "30s".
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
