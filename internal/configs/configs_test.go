package configs

import "testing"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("S3_BUCKET_NAME", "coachlink-media")
	t.Setenv("S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("S3_ACCESS_KEY_ID", "test-key")
	t.Setenv("S3_SECRET_ACCESS_KEY", "test-secret")
}

func TestLoadConfig_DevelopmentDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("PORT", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Environment != "development" {
		t.Errorf("environment = %q", cfg.Environment)
	}
	if cfg.Port != 3000 {
		t.Errorf("port = %d", cfg.Port)
	}
	if cfg.JWTSecret == "" {
		t.Error("development should fall back to a default secret")
	}
	if cfg.DatabaseDSN == "" {
		t.Error("development should fall back to a local DSN")
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Errorf("allowed origins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadConfig_ParsesOrigins(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com ,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	want := []string{"https://app.example.com", "https://admin.example.com"}
	if len(cfg.AllowedOrigins) != len(want) {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
	for i := range want {
		if cfg.AllowedOrigins[i] != want[i] {
			t.Errorf("origin[%d] = %q, want %q", i, cfg.AllowedOrigins[i], want[i])
		}
	}
}

func TestLoadConfig_RejectsBadPort(t *testing.T) {
	setRequiredEnv(t)

	t.Setenv("PORT", "not-a-number")
	if _, err := LoadConfig(); err == nil {
		t.Error("non-numeric port should fail")
	}

	t.Setenv("PORT", "80")
	if _, err := LoadConfig(); err == nil {
		t.Error("privileged port should fail")
	}
}

func TestLoadConfig_ProductionRequiresSecrets(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_URL", "postgres://prod")

	t.Setenv("JWT_SECRET", "")
	if _, err := LoadConfig(); err == nil {
		t.Error("production without JWT_SECRET should fail")
	}

	t.Setenv("JWT_SECRET", "prod-secret")
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Error("production without DATABASE_URL should fail")
	}
}

func TestLoadConfig_RequiresStorageSettings(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("S3_BUCKET_NAME", "")

	if _, err := LoadConfig(); err == nil {
		t.Error("missing S3 bucket should fail")
	}
}
