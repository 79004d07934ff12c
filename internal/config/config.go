// Package config owns the task environment description.
//
// Ownership boundary:
// - backend proxy endpoint and task token
// - toolset install root and optional remote worker
// - TOML loading, env overrides, and validation
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/seqforge/taskkit/internal/exec"
)

// Env var names recognized by Apply. The token is env-only so it never lands
// in a config file.
const (
	EnvProxyURL    = "TASKKIT_PROXY_URL"
	EnvToken       = "TASKKIT_TOKEN"
	EnvProgramsDir = "TASKKIT_PROGRAMS_DIR"
	EnvWorkerHost  = "TASKKIT_WORKER_HOST"
	EnvWorkerUser  = "TASKKIT_WORKER_USER"
	EnvWorkerKey   = "TASKKIT_WORKER_KEY"
	EnvTaskHostIP  = "TASK_HOST_IP"
)

// Worker describes the remote host tool commands execute on. An empty Host
// keeps execution on the task machine itself.
type Worker struct {
	Host           string `toml:"host"`
	Port           string `toml:"port"`
	User           string `toml:"user"`
	KeyPath        string `toml:"key_path"`
	KnownHostsPath string `toml:"known_hosts_path"`
}

// Config describes the environment one task runs in.
type Config struct {
	// ProxyURL is the platform bridge endpoint the task talks to.
	ProxyURL string `toml:"proxy_url"`

	ProgramsDir string `toml:"programs_dir"`

	Worker Worker `toml:"worker"`

	// Token authenticates bridge requests. Never read from TOML.
	Token string `toml:"-"`
}

// Default returns the stock worker layout.
func Default() Config {
	host := os.Getenv(EnvTaskHostIP)
	if host == "" {
		host = "localhost"
	}
	return Config{
		ProxyURL:    fmt.Sprintf("http://%s:8888", host),
		ProgramsDir: "/var/lib/seqforge/filesystem/programs",
	}
}

// Load reads a TOML config file over the defaults, applies env overrides,
// and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	cfg.Apply()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv returns the default config with env overrides applied.
func FromEnv() (Config, error) {
	cfg := Default()
	cfg.Apply()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Apply overlays recognized env vars onto the config.
func (c *Config) Apply() {
	if v := os.Getenv(EnvProxyURL); v != "" {
		c.ProxyURL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Token = v
	}
	if v := os.Getenv(EnvProgramsDir); v != "" {
		c.ProgramsDir = v
	}
	if v := os.Getenv(EnvWorkerHost); v != "" {
		c.Worker.Host = v
	}
	if v := os.Getenv(EnvWorkerUser); v != "" {
		c.Worker.User = v
	}
	if v := os.Getenv(EnvWorkerKey); v != "" {
		c.Worker.KeyPath = v
	}
}

// Validate checks required fields.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ProxyURL) == "" {
		return fmt.Errorf("config missing proxy_url")
	}
	if !strings.HasPrefix(c.ProxyURL, "http://") && !strings.HasPrefix(c.ProxyURL, "https://") {
		return fmt.Errorf("proxy_url must be http(s), got %q", c.ProxyURL)
	}
	if strings.TrimSpace(c.ProgramsDir) == "" {
		return fmt.Errorf("config missing programs_dir")
	}
	if c.Worker.Host != "" {
		if strings.TrimSpace(c.Worker.User) == "" {
			return fmt.Errorf("worker.host set but worker.user missing")
		}
		if strings.TrimSpace(c.Worker.KeyPath) == "" {
			return fmt.Errorf("worker.host set but worker.key_path missing")
		}
	}
	return nil
}

// Runner returns the command runner the config selects: an SSH runner when a
// worker host is configured, the local one otherwise.
func (c Config) Runner() exec.Runner {
	if c.Worker.Host == "" {
		return exec.LocalRunner{}
	}
	return exec.SSHRunner{
		Host:           c.Worker.Host,
		Port:           c.Worker.Port,
		User:           c.Worker.User,
		KeyPath:        c.Worker.KeyPath,
		KnownHostsPath: c.Worker.KnownHostsPath,
	}
}
