package app

import (
	"strings"

	"github.com/sirwalterjones/threads-backend/internal/platform/envutil"
)

type Config struct {
	Port                 string
	CORSAllowedOrigins   []string
	TagSyncRetryAttempts int
}

func LoadConfig() Config {
	return Config{
		Port:                 envutil.String("PORT", "8080"),
		CORSAllowedOrigins:   splitOrigins(envutil.String("CORS_ALLOWED_ORIGINS", "")),
		TagSyncRetryAttempts: envutil.Int("TAG_SYNC_RETRY_ATTEMPTS", 3),
	}
}

func splitOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
