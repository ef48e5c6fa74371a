// Package config loads the YAML benchmark configuration.
//
// The configuration is a tree of per-category sections (cpu, memory,
// fileio, network), each carrying an enabled flag and the parameters
// used to build the external tool's command line. Missing keys fall
// back to built-in defaults; the loaded tree is read-only for the
// duration of a run.
package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the bundled configuration file used when no path is
// given on the command line.
const DefaultPath = "config.yaml"

// Config is the full configuration tree for one run.
type Config struct {
	Global  GlobalConfig  `yaml:"global"`
	CPU     CPUConfig     `yaml:"cpu"`
	Memory  MemoryConfig  `yaml:"memory"`
	FileIO  FileIOConfig  `yaml:"fileio"`
	Network NetworkConfig `yaml:"network"`
}

// GlobalConfig holds settings that apply to the whole run.
type GlobalConfig struct {
	// OutputDir is the directory under which the timestamped run
	// directory is created.
	OutputDir string `yaml:"output_dir"`

	// InstallDeps controls whether missing benchmark tools are
	// installed via the system package manager before the run.
	InstallDeps bool `yaml:"install_deps"`

	// Charts enables rendering of per-category bar charts into the
	// run directory.
	Charts bool `yaml:"charts"`
}

// CPUConfig configures the sysbench cpu category.
type CPUConfig struct {
	Enabled      bool            `yaml:"enabled"`
	SingleThread CPUThreadConfig `yaml:"single_thread"`
	MultiThread  CPUThreadConfig `yaml:"multi_thread"`
}

// CPUThreadConfig holds the parameters for one cpu sub-test.
type CPUThreadConfig struct {
	DurationSeconds int         `yaml:"duration_seconds"`
	MaxPrime        int         `yaml:"max_prime"`
	Threads         ThreadCount `yaml:"threads"`
}

// MemoryConfig configures the sysbench memory category.
type MemoryConfig struct {
	Enabled         bool        `yaml:"enabled"`
	Threads         ThreadCount `yaml:"threads"`
	DurationSeconds int         `yaml:"duration_seconds"`
	BlockSize       string      `yaml:"block_size"`
	TotalSize       string      `yaml:"total_size"`
	Operation       string      `yaml:"operation"`
}

// FileIOConfig configures the sysbench fileio category. Each mode in
// Modes produces one timed run between a shared prepare and cleanup.
type FileIOConfig struct {
	Enabled         bool        `yaml:"enabled"`
	Threads         ThreadCount `yaml:"threads"`
	DurationSeconds int         `yaml:"duration_seconds"`
	TotalSize       string      `yaml:"total_size"`
	NumFiles        int         `yaml:"num_files"`
	Modes           []string    `yaml:"modes"`
}

// NetworkConfig configures the iperf3 client category. The server
// side must already be running at ServerHost:ServerPort.
type NetworkConfig struct {
	Enabled         bool   `yaml:"enabled"`
	ServerHost      string `yaml:"server_host"`
	ServerPort      int    `yaml:"server_port"`
	DurationSeconds int    `yaml:"duration_seconds"`
	Parallel        int    `yaml:"parallel"`
	Reverse         bool   `yaml:"reverse"`
}

// ThreadCount is a positive thread count or the literal "auto", which
// resolves to the number of logical CPUs at run time.
type ThreadCount int

// AutoThreads marks a thread count left to be resolved from the host.
const AutoThreads ThreadCount = 0

// UnmarshalYAML accepts either a positive integer or "auto".
func (t *ThreadCount) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil && s == "auto" {
		*t = AutoThreads
		return nil
	}

	var n int
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf(
			"threads: expected positive integer or \"auto\", got %q",
			value.Value,
		)
	}

	if n <= 0 {
		return fmt.Errorf("threads: must be positive, got %d", n)
	}

	*t = ThreadCount(n)

	return nil
}

// Resolve returns the concrete thread count, substituting the number
// of logical CPUs for "auto".
func (t ThreadCount) Resolve() int {
	if t == AutoThreads {
		return runtime.NumCPU()
	}

	return int(t)
}

// Default returns the built-in configuration: CPU, memory and file
// I/O enabled with the stock sysbench parameters, network disabled.
func Default() *Config {
	return &Config{
		Global: GlobalConfig{
			OutputDir:   ".",
			InstallDeps: true,
			Charts:      false,
		},
		CPU: CPUConfig{
			Enabled: true,
			SingleThread: CPUThreadConfig{
				DurationSeconds: 30,
				MaxPrime:        20000,
				Threads:         1,
			},
			MultiThread: CPUThreadConfig{
				DurationSeconds: 30,
				MaxPrime:        20000,
				Threads:         AutoThreads,
			},
		},
		Memory: MemoryConfig{
			Enabled:         true,
			Threads:         4,
			DurationSeconds: 30,
			BlockSize:       "1K",
			TotalSize:       "100G",
			Operation:       "write",
		},
		FileIO: FileIOConfig{
			Enabled:         true,
			Threads:         4,
			DurationSeconds: 60,
			TotalSize:       "4G",
			NumFiles:        4,
			Modes:           []string{"rndrw", "seqrd"},
		},
		Network: NetworkConfig{
			Enabled:         false,
			ServerPort:      5201,
			DurationSeconds: 10,
			Parallel:        1,
		},
	}
}

// Load reads a YAML configuration file. Keys absent from the file
// keep their default values. An unreadable file or invalid YAML is a
// fatal configuration error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

var fileIOModes = map[string]bool{
	"seqwr":   true,
	"seqrewr": true,
	"seqrd":   true,
	"rndrd":   true,
	"rndwr":   true,
	"rndrw":   true,
}

// Validate checks cross-field constraints that the YAML types alone
// cannot express.
func (c *Config) Validate() error {
	if c.CPU.Enabled {
		if c.CPU.SingleThread.DurationSeconds <= 0 ||
			c.CPU.MultiThread.DurationSeconds <= 0 {
			return fmt.Errorf("cpu: duration_seconds must be positive")
		}

		if c.CPU.SingleThread.MaxPrime <= 0 ||
			c.CPU.MultiThread.MaxPrime <= 0 {
			return fmt.Errorf("cpu: max_prime must be positive")
		}
	}

	if c.Memory.Enabled {
		if c.Memory.DurationSeconds <= 0 {
			return fmt.Errorf("memory: duration_seconds must be positive")
		}

		if c.Memory.Operation != "read" && c.Memory.Operation != "write" {
			return fmt.Errorf(
				"memory: operation must be read or write, got %q",
				c.Memory.Operation,
			)
		}
	}

	if c.FileIO.Enabled {
		if c.FileIO.DurationSeconds <= 0 {
			return fmt.Errorf("fileio: duration_seconds must be positive")
		}

		if c.FileIO.NumFiles <= 0 {
			return fmt.Errorf("fileio: num_files must be positive")
		}

		if len(c.FileIO.Modes) == 0 {
			return fmt.Errorf("fileio: at least one test mode required")
		}

		for _, mode := range c.FileIO.Modes {
			if !fileIOModes[mode] {
				return fmt.Errorf("fileio: unknown test mode %q", mode)
			}
		}
	}

	if c.Network.Enabled {
		if c.Network.ServerHost == "" {
			return fmt.Errorf("network: server_host required when enabled")
		}

		if c.Network.ServerPort <= 0 || c.Network.ServerPort > 65535 {
			return fmt.Errorf(
				"network: invalid server_port %d", c.Network.ServerPort,
			)
		}

		if c.Network.DurationSeconds <= 0 {
			return fmt.Errorf("network: duration_seconds must be positive")
		}

		if c.Network.Parallel <= 0 {
			return fmt.Errorf("network: parallel must be positive")
		}
	}

	return nil
}
