package emu

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/kirsle/configdir"

	"nescore/emu/log"
	"nescore/hw/input"
)

// Config is the persisted emulator configuration.
type Config struct {
	// Region forces "ntsc" or "pal"; empty or "auto" follows the rom
	// header.
	Region string `toml:"region"`

	// LogModules enables per-module logging ("cpu", "ppu", ... or "all").
	LogModules []string `toml:"log_modules"`
	LogLevel   string   `toml:"log_level"`

	Audio AudioConfig  `toml:"audio"`
	Input input.Config `toml:"input"`
}

type AudioConfig struct {
	SampleRate uint32 `toml:"sample_rate"`
	BufferSize int    `toml:"buffer_size"`
}

func DefaultConfig() *Config {
	return &Config{
		Region:   "auto",
		LogLevel: "info",
		Audio: AudioConfig{
			SampleRate: 48000,
			BufferSize: 1024,
		},
	}
}

// ConfigDir returns the per-user configuration directory.
func ConfigDir() string {
	return configdir.LocalConfig("nescore")
}

func configPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// LoadConfig reads the user configuration, falling back to defaults when
// the file does not exist yet.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	buf, err := os.ReadFile(configPath())
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(buf, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save persists the configuration under the user config directory.
func (cfg *Config) Save() error {
	if err := configdir.MakePath(ConfigDir()); err != nil {
		return err
	}

	f, err := os.Create(configPath())
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Apply pushes the logging part of the configuration to the log package.
func (cfg *Config) Apply() {
	log.SetLevel(cfg.LogLevel)

	var mask log.Module
	for _, name := range cfg.LogModules {
		if name == "all" {
			mask = log.ModuleMaskAll
			break
		}
		if m, ok := log.ModuleByName(name); ok {
			mask |= m
		}
	}
	log.SetMask(mask)
}
