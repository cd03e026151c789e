package testdb

import (
	"os"
	"strings"
	"testing"
)

// Environment variables read by the helpers.
const (
	EnvPostgresURL        = "MEDIFLASH_TEST_DATABASE_URL"
	EnvRedisAddr          = "MEDIFLASH_TEST_REDIS_ADDR"
	EnvRequireIntegration = "MEDIFLASH_REQUIRE_INTEGRATION"
)

// PostgresURL returns the test database URL or skips t.
func PostgresURL(t testing.TB) string {
	t.Helper()
	return lookup(t, EnvPostgresURL)
}

// RedisAddr returns the test Redis address or skips t.
func RedisAddr(t testing.TB) string {
	t.Helper()
	return lookup(t, EnvRedisAddr)
}

// IntegrationRequired reports whether missing integration settings must fail
// tests rather than skip them.
func IntegrationRequired() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvRequireIntegration))) {
	case "", "0", "false", "no":
		return false
	default:
		return true
	}
}

func lookup(t testing.TB, name string) string {
	t.Helper()

	value := strings.TrimSpace(os.Getenv(name))
	if value != "" {
		return value
	}
	if IntegrationRequired() {
		t.Fatalf("%s must be set when %s is enabled", name, EnvRequireIntegration)
		return ""
	}
	t.Skipf("%s not set, skipping integration test", name)
	return ""
}
