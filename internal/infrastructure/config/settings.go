package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/retail-platform/inventory-service/internal/domain"
)

// Settings holds the operational parameters of the reservation lifecycle.
// Defaults come first, then an optional YAML file, then environment
// variables; the last writer wins.
type Settings struct {
	Leases struct {
		SaleSeconds       int `yaml:"saleSeconds"`
		ExchangeSeconds   int `yaml:"exchangeSeconds"`
		AdjustmentSeconds int `yaml:"adjustmentSeconds"`
	} `yaml:"leases"`

	LowStock struct {
		Threshold int `yaml:"threshold"`
	} `yaml:"lowStock"`

	Sweeper struct {
		IntervalSeconds int `yaml:"intervalSeconds"`
		BatchSize       int `yaml:"batchSize"`
	} `yaml:"sweeper"`
}

// Defaults returns the built-in settings
func Defaults() *Settings {
	s := &Settings{}
	s.Leases.SaleSeconds = 1200
	s.Leases.ExchangeSeconds = 1200
	s.Leases.AdjustmentSeconds = 0
	s.LowStock.Threshold = 5
	s.Sweeper.IntervalSeconds = 60
	s.Sweeper.BatchSize = 100
	return s
}

// Load builds settings from defaults, the file named by SETTINGS_FILE if
// set, and environment variable overrides
func Load() (*Settings, error) {
	s := Defaults()

	if path := os.Getenv("SETTINGS_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read settings file: %w", err)
		}
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("failed to parse settings file: %w", err)
		}
	}

	s.Leases.SaleSeconds = envInt("LEASE_SALE_SECONDS", s.Leases.SaleSeconds)
	s.Leases.ExchangeSeconds = envInt("LEASE_EXCHANGE_SECONDS", s.Leases.ExchangeSeconds)
	s.Leases.AdjustmentSeconds = envInt("LEASE_ADJUSTMENT_SECONDS", s.Leases.AdjustmentSeconds)
	s.LowStock.Threshold = envInt("LOW_STOCK_THRESHOLD", s.LowStock.Threshold)
	s.Sweeper.IntervalSeconds = envInt("SWEEP_INTERVAL_SECONDS", s.Sweeper.IntervalSeconds)
	s.Sweeper.BatchSize = envInt("SWEEP_BATCH_SIZE", s.Sweeper.BatchSize)

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	if s.Leases.SaleSeconds < 0 || s.Leases.ExchangeSeconds < 0 || s.Leases.AdjustmentSeconds < 0 {
		return fmt.Errorf("lease seconds must not be negative")
	}
	if s.Sweeper.IntervalSeconds <= 0 {
		return fmt.Errorf("sweeper interval must be positive")
	}
	if s.Sweeper.BatchSize <= 0 {
		return fmt.Errorf("sweeper batch size must be positive")
	}
	return nil
}

// LeaseSeconds returns the reservation lease for an operation type
func (s *Settings) LeaseSeconds(operationType domain.OperationType) int {
	switch operationType {
	case domain.OperationTypeSale:
		return s.Leases.SaleSeconds
	case domain.OperationTypeExchange:
		return s.Leases.ExchangeSeconds
	case domain.OperationTypeAdjustment:
		return s.Leases.AdjustmentSeconds
	default:
		return s.Leases.SaleSeconds
	}
}

// LowStockThreshold returns the low stock alert threshold
func (s *Settings) LowStockThreshold() int {
	return s.LowStock.Threshold
}

// SweepInterval returns the sweeper interval in seconds
func (s *Settings) SweepInterval() int {
	return s.Sweeper.IntervalSeconds
}

// SweepBatchSize returns the maximum reservations reclaimed per sweep
func (s *Settings) SweepBatchSize() int {
	return s.Sweeper.BatchSize
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
