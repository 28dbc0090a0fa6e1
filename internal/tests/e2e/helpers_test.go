package e2e

import (
	"time"

	pkgconfig "github.com/abgdnv/supermarket/pkg/config"
)

func pkgDatabase(url string) pkgconfig.DatabaseConfig {
	return pkgconfig.DatabaseConfig{URL: url, Timeout: 30 * time.Second, Migrate: true}
}
