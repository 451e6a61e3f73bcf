package config

import (
	"encoding/base64"
	"fmt"
	"time"
)

const (
	// DefaultSessionTTL is how long a session may stay idle before the
	// sweeper removes it.
	DefaultSessionTTL = 20 * time.Minute
	// DefaultSweepInterval is how often idle sessions are swept.
	DefaultSweepInterval = 5 * time.Minute
)

type Config struct {
	ServerAddr     string
	DatabaseDSN    string
	SigningKey     []byte
	AllowedOrigins []string
	SessionTTL     time.Duration
	SweepInterval  time.Duration
	// AdminUser and AdminPassword optionally seed an administrator account
	// at startup. Leave empty to manage the admins table externally.
	AdminUser     string
	AdminPassword string
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}
	key, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("signing secret decodes to an empty key")
	}
	return key, nil
}

func NewConfig(serverAddr, databaseDSN, base64Secret string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		ServerAddr:     serverAddr,
		DatabaseDSN:    databaseDSN,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
		SessionTTL:     DefaultSessionTTL,
		SweepInterval:  DefaultSweepInterval,
	}, nil
}
