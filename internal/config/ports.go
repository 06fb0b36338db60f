// Package config provides configuration management for CryptoCascade.
// This file centralizes all port constants to avoid duplication and ensure consistency.
package config

// Service Ports
const (
	// MetricsPortTrading is the Prometheus metrics port for the trading
	// orchestrator process.
	MetricsPortTrading = 9101
)

// Infrastructure Service Ports
const (
	// VaultPort is the default port for HashiCorp Vault.
	VaultPort = 8200

	// PostgresPort is the default port for PostgreSQL.
	PostgresPort = 5432

	// RedisPort is the default port for Redis.
	RedisPort = 6379
)

// Monitoring Service Ports
const (
	// PrometheusPort is the default port for Prometheus.
	PrometheusPort = 9090

	// GrafanaPort is the default port for Grafana.
	GrafanaPort = 3000
)
