// Package config loads the TOML configuration for the two demo binaries,
// cmd/codymapperd and cmd/codyc.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// HelperConfig configures the module-mapper helper daemon: where it
// listens, where its CMI repository lives, and what admin sidecar to
// expose.
type HelperConfig struct {
	Socket      string   `toml:"socket"`
	RepoDir     string   `toml:"repo_dir"`
	Ident       string   `toml:"ident"`
	CMISuffix   string   `toml:"cmi_suffix"`
	AdminAddr   string   `toml:"admin_addr"`
	CorsOrigins []string `toml:"cors_origins"`
}

// ClientConfig configures a compiler-side demo client.
type ClientConfig struct {
	Socket  string `toml:"socket"`
	Agent   string `toml:"agent"`
	Ident   string `toml:"ident"`
	Version uint32 `toml:"version"`
}

func LoadHelperConfig(path string) (HelperConfig, error) {
	var cfg HelperConfig
	if err := loadToml(path, &cfg); err != nil {
		return HelperConfig{}, err
	}
	if cfg.Socket == "" {
		cfg.Socket = "/tmp/codymapperd.sock"
	}
	if cfg.RepoDir == "" {
		cfg.RepoDir = "cmi.cache"
	}
	if cfg.Ident == "" {
		cfg.Ident = "default"
	}
	if cfg.CMISuffix == "" {
		cfg.CMISuffix = "cmi"
	}
	if cfg.AdminAddr == "" {
		cfg.AdminAddr = ":9400"
	}
	if err := ValidateHelperConfig(cfg); err != nil {
		return HelperConfig{}, err
	}
	return cfg, nil
}

func LoadClientConfig(path string) (ClientConfig, error) {
	var cfg ClientConfig
	if err := loadToml(path, &cfg); err != nil {
		return ClientConfig{}, err
	}
	if cfg.Socket == "" {
		cfg.Socket = "/tmp/codymapperd.sock"
	}
	if cfg.Agent == "" {
		cfg.Agent = "codyc"
	}
	if cfg.Ident == "" {
		cfg.Ident = "codyc-session"
	}
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateHelperConfig(cfg HelperConfig) error {
	if strings.TrimSpace(cfg.Socket) == "" {
		return fmt.Errorf("helper config missing socket")
	}
	if strings.TrimSpace(cfg.RepoDir) == "" {
		return fmt.Errorf("helper config missing repo_dir")
	}
	return nil
}

func ValidateClientConfig(cfg ClientConfig) error {
	if strings.TrimSpace(cfg.Socket) == "" {
		return fmt.Errorf("client config missing socket")
	}
	if strings.TrimSpace(cfg.Agent) == "" {
		return fmt.Errorf("client config missing agent")
	}
	return nil
}
