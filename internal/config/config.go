// Package config composes the configuration of the checkout service.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/abgdnv/supermarket/pkg/config"
	"github.com/abgdnv/supermarket/pkg/config/configloader"
	"github.com/google/uuid"
)

var _ configloader.Validator = (*Config)(nil)

// Backend names.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendKeycloak = "keycloak"
	BackendNATS     = "nats"
	BackendKafka    = "kafka"
	BackendNone     = "none"

	AuthHeader = "header"
	AuthJWT    = "jwt"
)

type Config struct {
	HTTPServer     config.HTTPConfig           `koanf:"server"`
	GRPC           config.GrpcServerConfig     `koanf:"grpc"`
	Database       config.DatabaseConfig       `koanf:"database"`
	Redis          config.RedisConfig          `koanf:"redis"`
	NATS           config.NATSConfig           `koanf:"nats"`
	Kafka          config.KafkaConfig          `koanf:"kafka"`
	IdP            config.IdP                  `koanf:"idp"`
	Keycloak       config.Keycloak             `koanf:"keycloak"`
	CircuitBreaker config.CircuitBreakerConfig `koanf:"circuitbreaker"`
	Log            config.LogConfig            `koanf:"log"`
	PProf          config.PProfConfig          `koanf:"pprof"`
	Telemetry      config.TelemetryConfig      `koanf:"telemetry"`
	Shutdown       config.ShutdownConfig       `koanf:"shutdown"`

	Storage   Backend  `koanf:"storage"`
	Catalog   Catalog  `koanf:"catalog"`
	Directory Directory `koanf:"directory"`
	Events    Backend  `koanf:"events"`
	Auth      Auth     `koanf:"auth"`
	Checkout  Checkout `koanf:"checkout"`
}

type Backend struct {
	Backend string `koanf:"backend"`
}

// Catalog selects the item catalog and the items written to it on startup.
type Catalog struct {
	Backend string     `koanf:"backend"`
	Seed    []SeedItem `koanf:"seed"`
}

// Directory selects the user directory. Users are written to the memory and postgres
// directories on startup.
type Directory struct {
	Backend string     `koanf:"backend"`
	Users   []SeedUser `koanf:"users"`
}

type SeedUser struct {
	ID    uuid.UUID `koanf:"id"`
	Email string    `koanf:"email"`
}

type SeedItem struct {
	ID    uuid.UUID `koanf:"id"`
	Name  string    `koanf:"name"`
	Price int64     `koanf:"price"`
	Stock int32     `koanf:"stock"`
}

type Auth struct {
	// Mode is header (trusted gateway headers) or jwt (bearer tokens verified against idp).
	Mode string `koanf:"mode"`
	// AdminRole is the gateway role value that marks a privileged caller in header mode.
	AdminRole string `koanf:"adminrole"`
}

type Checkout struct {
	// Idempotency is memory or redis.
	Idempotency    string        `koanf:"idempotency"`
	IdempotencyTTL time.Duration `koanf:"idempotencyttl"`
	StatusAttempts int           `koanf:"statusattempts"`
}

// String renders the effective configuration with secrets masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("\n--- Backends ---\n")
	b.WriteString(fmt.Sprintf("  storage: %s\n", c.Storage.Backend))
	b.WriteString(fmt.Sprintf("  catalog: %s (seed items: %d)\n", c.Catalog.Backend, len(c.Catalog.Seed)))
	b.WriteString(fmt.Sprintf("  directory: %s (seed users: %d)\n", c.Directory.Backend, len(c.Directory.Users)))
	b.WriteString(fmt.Sprintf("  events: %s\n", c.Events.Backend))
	b.WriteString(fmt.Sprintf("  auth: %s\n", c.Auth.Mode))
	b.WriteString("\n--- Checkout ---\n")
	b.WriteString(fmt.Sprintf("  idempotency: %s\n", c.Checkout.Idempotency))
	b.WriteString(fmt.Sprintf("  idempotencyttl: %s\n", c.Checkout.IdempotencyTTL))
	b.WriteString(fmt.Sprintf("  statusattempts: %d\n", c.Checkout.StatusAttempts))
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.GRPC.String())
	if c.usesPostgres() {
		b.WriteString(c.Database.String())
	}
	if c.usesRedis() {
		b.WriteString(c.Redis.String())
	}
	switch c.Events.Backend {
	case BackendNATS:
		b.WriteString(c.NATS.String())
	case BackendKafka:
		b.WriteString(c.Kafka.String())
	}
	if c.Auth.Mode == AuthJWT {
		b.WriteString(c.IdP.String())
	}
	if c.Directory.Backend == BackendKeycloak {
		b.WriteString(c.Keycloak.String())
		b.WriteString(c.CircuitBreaker.String())
	}
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

func (c *Config) usesPostgres() bool {
	return c.Storage.Backend == BackendPostgres ||
		c.Catalog.Backend == BackendPostgres ||
		c.Directory.Backend == BackendPostgres
}

func (c *Config) usesRedis() bool {
	return c.Catalog.Backend == BackendRedis || c.Checkout.Idempotency == BackendRedis
}

func oneOf(name, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", name, strings.Join(allowed, "|"), value)
}

// Validate checks the backend choices first and then only the sections they enable.
func (c *Config) Validate() error {
	checks := []error{
		oneOf("storage.backend", c.Storage.Backend, BackendMemory, BackendPostgres),
		oneOf("catalog.backend", c.Catalog.Backend, BackendMemory, BackendPostgres, BackendRedis),
		oneOf("directory.backend", c.Directory.Backend, BackendMemory, BackendPostgres, BackendKeycloak),
		oneOf("events.backend", c.Events.Backend, BackendNone, BackendNATS, BackendKafka),
		oneOf("auth.mode", c.Auth.Mode, AuthHeader, AuthJWT),
		oneOf("checkout.idempotency", c.Checkout.Idempotency, BackendMemory, BackendRedis),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	if c.Storage.Backend == BackendMemory && c.Catalog.Backend == BackendPostgres {
		return fmt.Errorf("catalog.backend postgres requires storage.backend postgres")
	}
	if c.Checkout.IdempotencyTTL <= 0 {
		return fmt.Errorf("checkout.idempotencyttl must be greater than 0")
	}
	if c.Checkout.StatusAttempts <= 0 {
		return fmt.Errorf("checkout.statusattempts must be greater than 0")
	}
	for i, item := range c.Catalog.Seed {
		if item.ID == uuid.Nil || item.Price < 0 || item.Stock < 0 {
			return fmt.Errorf("catalog.seed[%d] needs an id and a non-negative price and stock", i)
		}
	}
	for i, user := range c.Directory.Users {
		if user.ID == uuid.Nil {
			return fmt.Errorf("directory.users[%d] needs an id", i)
		}
	}
	if c.Directory.Backend == BackendKeycloak && len(c.Directory.Users) > 0 {
		return fmt.Errorf("directory.users cannot be seeded into keycloak")
	}

	validators := []configloader.Validator{&c.HTTPServer, &c.GRPC, &c.Log, &c.PProf, &c.Telemetry, &c.Shutdown}
	if c.usesPostgres() {
		validators = append(validators, &c.Database)
	}
	if c.usesRedis() {
		validators = append(validators, &c.Redis)
	}
	switch c.Events.Backend {
	case BackendNATS:
		validators = append(validators, &c.NATS)
	case BackendKafka:
		validators = append(validators, &c.Kafka)
	}
	if c.Auth.Mode == AuthJWT {
		validators = append(validators, &c.IdP)
	}
	if c.Directory.Backend == BackendKeycloak {
		validators = append(validators, &c.Keycloak, &c.CircuitBreaker)
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
