package config

import "fmt"

// ObservabilityConfig configures the New Relic agent. The agent stays
// disabled unless a license key is supplied.
type ObservabilityConfig struct {
	Enabled     bool   `koanf:"enabled"`
	LicenseKey  string `koanf:"license_key"`
	ServiceName string `koanf:"service_name"`
	Environment string `koanf:"environment"`
}

// DefaultObservabilityConfig returns a disabled observability config.
func DefaultObservabilityConfig() *ObservabilityConfig {
	return &ObservabilityConfig{Enabled: false}
}

// Validate checks that an enabled config carries a license key.
func (o *ObservabilityConfig) Validate() error {
	if o == nil {
		return nil
	}
	if o.Enabled && o.LicenseKey == "" {
		return fmt.Errorf("observability enabled but license_key is empty")
	}
	return nil
}
