package config

import (
	"os"
	"testing"
)

// clearEnv removes every variable Load() reads so tests start from a clean slate
// and restores the previous values afterwards.
func clearEnv(t *testing.T) {
	keys := []string{
		"SERVER_HOST", "SERVER_PORT",
		"DATABASE_PATH",
		"JWT_SECRET", "JWT_ACCESS_EXPIRY_MINUTES", "JWT_REFRESH_EXPIRY_DAYS",
		"LIVEKIT_URL", "LIVEKIT_API_KEY", "LIVEKIT_API_SECRET",
		"UPLOAD_DIR", "UPLOAD_MAX_SIZE",
		"RESEND_API_KEY", "RESEND_FROM", "APP_URL",
		"ENCRYPTION_KEY",
	}
	orig := make(map[string]string, len(keys))
	for _, k := range keys {
		orig[k] = os.Getenv(k)
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for k, v := range orig {
			if v != "" {
				os.Setenv(k, v)
			} else {
				os.Unsetenv(k)
			}
		}
	})
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	clearEnv(t)
	os.Setenv("ENCRYPTION_KEY", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is unset, got nil")
	}
}

func TestLoad_MissingEncryptionKey(t *testing.T) {
	clearEnv(t)
	os.Setenv("JWT_SECRET", "test-secret")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when ENCRYPTION_KEY is unset, got nil")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("ENCRYPTION_KEY", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected default port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected default host 0.0.0.0, got %q", cfg.Server.Host)
	}
	if cfg.JWT.AccessTokenExpiry != 15 {
		t.Errorf("expected default access expiry 15, got %d", cfg.JWT.AccessTokenExpiry)
	}
	if cfg.JWT.RefreshTokenExpiry != 7 {
		t.Errorf("expected default refresh expiry 7, got %d", cfg.JWT.RefreshTokenExpiry)
	}
	if cfg.Upload.MaxSize != 26214400 {
		t.Errorf("expected default upload max size 26214400, got %d", cfg.Upload.MaxSize)
	}
	if cfg.EncryptionKey == "" {
		t.Error("expected EncryptionKey to be populated")
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	clearEnv(t)
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("ENCRYPTION_KEY", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	os.Setenv("SERVER_PORT", "not-a-number")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid SERVER_PORT, got nil")
	}
}

func TestAddr(t *testing.T) {
	sc := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got, want := sc.Addr(), "127.0.0.1:8080"; got != want {
		t.Errorf("Addr() = %q, want %q", got, want)
	}
}
