// Package bbconfig loads and saves BitBox's TOML configuration file: nested sections for the
// VM's execution guards, the assembler's diagnostic behavior, the debugger's UI, and the
// session service's network settings.
package bbconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config is BitBox's full configuration surface.
type Config struct {
	VM         VMConfig         `toml:"vm"`
	Assembler  AssemblerConfig  `toml:"assembler"`
	Debugger   DebuggerConfig   `toml:"debugger"`
	Server     ServerConfig     `toml:"server"`
	Trace      TraceConfig      `toml:"trace"`
	Statistics StatisticsConfig `toml:"statistics"`
}

// VMConfig holds the VM's default execution guards and buffering behavior.
type VMConfig struct {
	MaxSteps       uint64 `toml:"max_steps"`
	HeapHint       uint64 `toml:"heap_hint_bytes"`
	BufferedStdout bool   `toml:"buffered_stdout"`
	EnableTrace    bool   `toml:"enable_trace"`
	EnableStats    bool   `toml:"enable_stats"`
}

// AssemblerConfig holds the assembler's diagnostic and duplicate-directive behavior.
type AssemblerConfig struct {
	DiagnosticFormat  string `toml:"diagnostic_format"` // "caret" or "plain"
	DuplicateEntry    string `toml:"duplicate_entry"`   // "override" or "error"
	SymbolsOutputFile string `toml:"symbols_output_file"`
}

// DebuggerConfig holds the interactive debugger's UI defaults.
type DebuggerConfig struct {
	HistorySize        int  `toml:"history_size"`
	PersistBreakpoints bool `toml:"persist_breakpoints"`
	SourceContext      int  `toml:"source_context"`
	ShowRegisters      bool `toml:"show_registers"`
}

// ServerConfig holds the session server's network and lifecycle settings.
type ServerConfig struct {
	ListenAddr   string `toml:"listen_addr"`
	PingInterval int    `toml:"ping_interval_seconds"`
	IdleTimeout  int    `toml:"idle_timeout_seconds"`
	MaxSessions  int    `toml:"max_sessions"`
}

// TraceConfig holds the execution tracer's output and retention settings.
type TraceConfig struct {
	OutputFile    string `toml:"output_file"`
	IncludeTiming bool   `toml:"include_timing"`
	MaxEntries    int    `toml:"max_entries"`
}

// StatisticsConfig holds the performance-statistics exporter's output and format settings.
type StatisticsConfig struct {
	OutputFile string `toml:"output_file"`
	Format     string `toml:"format"` // text, json, csv
}

// DefaultConfig returns BitBox's default configuration.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.VM.MaxSteps = 0 // unbounded by default
	cfg.VM.HeapHint = 4096
	cfg.VM.BufferedStdout = true
	cfg.VM.EnableTrace = false
	cfg.VM.EnableStats = false

	cfg.Assembler.DiagnosticFormat = "caret"
	cfg.Assembler.DuplicateEntry = "override"
	cfg.Assembler.SymbolsOutputFile = ""

	cfg.Debugger.HistorySize = 1000
	cfg.Debugger.PersistBreakpoints = true
	cfg.Debugger.SourceContext = 5
	cfg.Debugger.ShowRegisters = true

	cfg.Server.ListenAddr = "127.0.0.1:4470"
	cfg.Server.PingInterval = 30
	cfg.Server.IdleTimeout = 600
	cfg.Server.MaxSessions = 64

	cfg.Trace.OutputFile = "trace.log"
	cfg.Trace.IncludeTiming = true
	cfg.Trace.MaxEntries = 100000

	cfg.Statistics.OutputFile = "stats.json"
	cfg.Statistics.Format = "json"

	return cfg
}

// GetConfigPath returns the platform-specific config file path, creating its directory if
// it does not yet exist.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "bitbox")
	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "bitbox")
	default:
		return "config.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "config.toml"
	}
	return filepath.Join(configDir, "config.toml")
}

// GetLogPath returns the platform-specific log directory path, creating it if needed.
func GetLogPath() string {
	var logDir string

	switch runtime.GOOS {
	case "windows":
		logDir = os.Getenv("APPDATA")
		if logDir == "" {
			logDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		logDir = filepath.Join(logDir, "bitbox", "logs")
	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "logs"
		}
		logDir = filepath.Join(homeDir, ".local", "share", "bitbox", "logs")
	default:
		return "logs"
	}

	if err := os.MkdirAll(logDir, 0750); err != nil {
		return "logs"
	}
	return logDir
}

// Load reads configuration from the default path, falling back to defaults if absent.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom reads configuration from path, falling back to defaults if the file is absent.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Save writes configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo writes configuration to path as TOML.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user-supplied config path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
