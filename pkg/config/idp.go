package config

import (
	"fmt"
	"strings"
	"time"
)

// IdP configures bearer token verification against the identity provider's JWKS endpoint.
type IdP struct {
	JwksURL     string        `koanf:"jwksurl"`
	Issuer      string        `koanf:"issuer"`
	ClientID    string        `koanf:"clientid"`
	MinInterval time.Duration `koanf:"mininterval"`
	// AdminRole is the realm role that makes a caller privileged.
	AdminRole string `koanf:"adminrole"`
}

// String returns a string representation of the IdP configuration.
func (c *IdP) String() string {
	var b strings.Builder
	b.WriteString("\n--- Identity Provider ---\n")
	b.WriteString(fmt.Sprintf("  jwksurl: %s\n", c.JwksURL))
	b.WriteString(fmt.Sprintf("  issuer: %s\n", c.Issuer))
	b.WriteString(fmt.Sprintf("  clientid: %s\n", c.ClientID))
	b.WriteString(fmt.Sprintf("  mininterval: %s\n", c.MinInterval))
	b.WriteString(fmt.Sprintf("  adminrole: %s\n", c.AdminRole))
	return b.String()
}

func (c *IdP) Validate() error {
	if c.JwksURL == "" {
		return fmt.Errorf("IdP JWKS URL cannot be empty")
	}
	if c.Issuer == "" {
		return fmt.Errorf("IdP issuer cannot be empty")
	}
	if c.ClientID == "" {
		return fmt.Errorf("IdP client ID cannot be empty")
	}
	if c.MinInterval <= 0 {
		return fmt.Errorf("IdP minimum interval must be greater than zero")
	}
	if c.AdminRole == "" {
		return fmt.Errorf("IdP admin role cannot be empty")
	}
	return nil
}

// Keycloak holds the service account used to look users up through the admin API.
type Keycloak struct {
	URL          string `koanf:"url"`
	Realm        string `koanf:"realm"`
	ClientID     string `koanf:"clientid"`
	ClientSecret string `koanf:"secret"`
}

// String returns a string representation of the Keycloak configuration with the secret masked.
func (c *Keycloak) String() string {
	var b strings.Builder
	b.WriteString("\n--- Keycloak ---\n")
	b.WriteString(fmt.Sprintf("  url: %s\n", c.URL))
	b.WriteString(fmt.Sprintf("  realm: %s\n", c.Realm))
	b.WriteString(fmt.Sprintf("  clientid: %s\n", c.ClientID))
	b.WriteString(fmt.Sprintf("  secret: %s\n", Mask(c.ClientSecret)))
	return b.String()
}

func (c *Keycloak) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("keycloak URL cannot be empty")
	}
	if c.Realm == "" {
		return fmt.Errorf("keycloak realm cannot be empty")
	}
	if c.ClientID == "" {
		return fmt.Errorf("keycloak client ID cannot be empty")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("keycloak secret cannot be empty")
	}
	return nil
}
