package config

import (
	"fmt"
	"strings"
	"time"
)

type KafkaConfig struct {
	Brokers      []string      `koanf:"brokers"`
	WriteTimeout time.Duration `koanf:"writetimeout"`
	BatchTimeout time.Duration `koanf:"batchtimeout"`
}

// String returns a string representation of the Kafka configuration.
func (c *KafkaConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Kafka ---\n")
	b.WriteString(fmt.Sprintf("  brokers: %s\n", strings.Join(c.Brokers, ",")))
	b.WriteString(fmt.Sprintf("  writetimeout: %s\n", c.WriteTimeout))
	b.WriteString(fmt.Sprintf("  batchtimeout: %s\n", c.BatchTimeout))
	return b.String()
}

func (c *KafkaConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are not configured")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("kafka write timeout is not configured")
	}
	return nil
}
