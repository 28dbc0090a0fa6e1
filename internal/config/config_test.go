package config

import (
	"testing"
	"time"

	"github.com/abgdnv/supermarket/pkg/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	c := &Config{
		GRPC:      config.GrpcServerConfig{Port: "50051"},
		Shutdown:  config.ShutdownConfig{Timeout: 5 * time.Second},
		Storage:   Backend{Backend: BackendMemory},
		Catalog:   Catalog{Backend: BackendMemory},
		Directory: Directory{Backend: BackendMemory},
		Events:    Backend{Backend: BackendNone},
		Auth:      Auth{Mode: AuthHeader, AdminRole: "admin"},
		Checkout:  Checkout{Idempotency: BackendMemory, IdempotencyTTL: time.Hour, StatusAttempts: 3},
	}
	c.HTTPServer.Port = 8080
	c.HTTPServer.Timeout.Read = time.Second
	c.HTTPServer.Timeout.Write = time.Second
	c.HTTPServer.Timeout.Idle = time.Second
	c.HTTPServer.Timeout.ReadHeader = time.Second
	return c
}

func Test_Config_Validate(t *testing.T) {
	testCases := []struct {
		name        string
		mutate      func(c *Config)
		expectError string
	}{
		{name: "Success - all in memory", mutate: func(c *Config) {}},
		{
			name: "Success - postgres with database",
			mutate: func(c *Config) {
				c.Storage.Backend = BackendPostgres
				c.Catalog.Backend = BackendPostgres
				c.Database = config.DatabaseConfig{URL: "postgres://u:p@db:5432/shop", Timeout: time.Second}
			},
		},
		{name: "Error - unknown storage", mutate: func(c *Config) { c.Storage.Backend = "mongo" }, expectError: "storage.backend"},
		{
			name:        "Error - postgres without database",
			mutate:      func(c *Config) { c.Directory.Backend = BackendPostgres },
			expectError: "database URL",
		},
		{
			name:        "Error - postgres catalog on memory storage",
			mutate:      func(c *Config) { c.Catalog.Backend = BackendPostgres },
			expectError: "requires storage.backend postgres",
		},
		{
			name:        "Error - redis idempotency without redis",
			mutate:      func(c *Config) { c.Checkout.Idempotency = BackendRedis },
			expectError: "redis address",
		},
		{
			name:        "Error - kafka without brokers",
			mutate:      func(c *Config) { c.Events.Backend = BackendKafka },
			expectError: "kafka brokers",
		},
		{
			name:        "Error - jwt without idp",
			mutate:      func(c *Config) { c.Auth.Mode = AuthJWT },
			expectError: "JWKS URL",
		},
		{
			name:        "Error - keycloak without breaker",
			mutate: func(c *Config) {
				c.Directory.Backend = BackendKeycloak
				c.Keycloak = config.Keycloak{URL: "http://kc", Realm: "r", ClientID: "c", ClientSecret: "s"}
			},
			expectError: "circuitbreaker",
		},
		{
			name:        "Error - seed item without id",
			mutate:      func(c *Config) { c.Catalog.Seed = []SeedItem{{Name: "milk", Price: 99, Stock: 1}} },
			expectError: "catalog.seed[0]",
		},
		{
			name:        "Error - seed user without id",
			mutate:      func(c *Config) { c.Directory.Users = []SeedUser{{Email: "a@example.com"}} },
			expectError: "directory.users[0]",
		},
		{
			name:        "Error - no status attempts",
			mutate:      func(c *Config) { c.Checkout.StatusAttempts = 0 },
			expectError: "statusattempts",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			c := validConfig()
			tc.mutate(c)

			// when
			err := c.Validate()

			// then
			if tc.expectError == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.expectError)
		})
	}
}

func Test_Config_StringMasksSecrets(t *testing.T) {
	// given
	c := validConfig()
	c.Storage.Backend = BackendPostgres
	c.Database.URL = "postgres://shop:hunter2@db:5432/shop"
	c.Directory.Backend = BackendKeycloak
	c.Keycloak.ClientSecret = "kc-secret"
	c.Checkout.Idempotency = BackendRedis
	c.Redis.Password = "redis-secret"
	c.Catalog.Seed = []SeedItem{{ID: uuid.New(), Name: "milk"}}

	// when
	s := c.String()

	// then
	assert.NotContains(t, s, "hunter2")
	assert.NotContains(t, s, "kc-secret")
	assert.NotContains(t, s, "redis-secret")
	assert.Contains(t, s, "seed items: 1")
}
