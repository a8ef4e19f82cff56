// Package config loads the state computer's node-level configuration
// from YAML, following the teacher codebase's own
// gopkg.in/yaml.v3-based configuration loader shape.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/certen/state-computer/pkg/types"
)

// VertexLimitsSettings mirrors vertexlimits.Config with YAML tags; kept
// separate from that package so pkg/vertexlimits has no dependency on
// YAML.
type VertexLimitsSettings struct {
	MaxTransactionCount                uint32 `yaml:"max_transaction_count"`
	MaxTransactionSizeBytes            uint64 `yaml:"max_transaction_size_bytes"`
	MaxTotalExecutionCostUnitsConsumed uint64 `yaml:"max_total_execution_cost_units_consumed"`
	MaxTotalRejectedCostUnitsConsumed  uint64 `yaml:"max_total_rejected_cost_units_consumed"`
}

// ValidatorSettings mirrors validator.Config.
type ValidatorSettings struct {
	MaxTransactionSizeBytes int         `yaml:"max_transaction_size_bytes"`
	EpochWindowSize         types.Epoch `yaml:"epoch_window_size"`
}

// NetworkSettings names the genesis-time protocol identity.
type NetworkSettings struct {
	NetworkName            string `yaml:"network_name"`
	GenesisProtocolVersion string `yaml:"genesis_protocol_version"`
}

// StoreSettings configures the persistent store backend.
type StoreSettings struct {
	DataDir string `yaml:"data_dir"`
	Backend string `yaml:"backend"`
}

// LoggingSettings configures the component loggers.
type LoggingSettings struct {
	Level string `yaml:"level"`
}

// NodeConfig is the top-level configuration document.
type NodeConfig struct {
	Network      NetworkSettings      `yaml:"network"`
	VertexLimits VertexLimitsSettings `yaml:"vertex_limits"`
	Validator    ValidatorSettings    `yaml:"validator"`
	Store        StoreSettings        `yaml:"store"`
	Logging      LoggingSettings      `yaml:"logging"`
}

// Default returns sane defaults for a freshly bootstrapped node.
func Default() NodeConfig {
	return NodeConfig{
		Network: NetworkSettings{
			NetworkName:            "localnet",
			GenesisProtocolVersion: "genesis",
		},
		VertexLimits: VertexLimitsSettings{
			MaxTransactionCount:                500,
			MaxTransactionSizeBytes:            4 << 20,
			MaxTotalExecutionCostUnitsConsumed: 100_000_000,
			MaxTotalRejectedCostUnitsConsumed:  10_000_000,
		},
		Validator: ValidatorSettings{
			MaxTransactionSizeBytes: 1 << 20,
			EpochWindowSize:         100,
		},
		Store: StoreSettings{
			DataDir: "./data",
			Backend: "goleveldb",
		},
		Logging: LoggingSettings{Level: "info"},
	}
}

// Load reads and parses a NodeConfig from path, overlaying onto
// Default() so a partial YAML document still produces a fully-populated
// config.
func Load(path string) (NodeConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return NodeConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return NodeConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
