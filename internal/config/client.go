package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// ClientConfig configures the command-line client. Flags override these
// values.
type ClientConfig struct {
	APIURL      string
	SessionPath string
	Timeout     time.Duration

	// Google sign-in; without a client ID the provider is unavailable. The
	// client secret lives on the server, which redeems the code.
	GoogleClientID string

	// SandboxSecret signs test payments locally. Leave empty outside
	// development.
	SandboxSecret string
}

func LoadClient() *ClientConfig {
	_ = godotenv.Load()

	return &ClientConfig{
		APIURL:         envString("STUMPSCORE_API", "http://localhost:5000"),
		SessionPath:    envString("STUMPSCORE_SESSION", defaultSessionPath()),
		Timeout:        envDuration("STUMPSCORE_TIMEOUT", 15*time.Second),
		GoogleClientID: envString("GOOGLE_CLIENT_ID", ""),
		SandboxSecret:  envString("STUMPSCORE_SANDBOX_SECRET", ""),
	}
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "stumpscore", "session.db")
}
