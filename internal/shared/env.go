package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadEnv loads variables from the given .env files into the process environment.
//
// Missing files are skipped; existing variables are never overwritten.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ApplyEnv overlays LUNA_* environment variables onto config.
func ApplyEnv(config *Config) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString("LUNA_TMDB_API_KEY", &config.Credentials.TMDB.APIKey)
	setString("LUNA_DATABASE_DRIVER", &config.Database.Driver)
	setString("LUNA_DATABASE_PATH", &config.Database.Path)
	setString("LUNA_SERVER_HOST", &config.Server.Host)
	setString("LUNA_ADMIN_PASSWORD_HASH", &config.Server.AdminPasswordHash)
	setString("LUNA_OIDC_ISSUER", &config.Credentials.OIDC.Issuer)
	setString("LUNA_OIDC_CLIENT_ID", &config.Credentials.OIDC.ClientID)
	setString("LUNA_OIDC_CLIENT_SECRET", &config.Credentials.OIDC.ClientSecret)
	setString("LUNA_API_URL", &config.API.BaseURL)
	setString("LUNA_DEVICE_DIR", &config.Device.Dir)

	if v, ok := os.LookupEnv("LUNA_SERVER_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
}
