package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/qxhr/packages/headers"
	"github.com/abdul-hamid-achik/qxhr/packages/transport/nethttp"
	"github.com/abdul-hamid-achik/qxhr/packages/xhr"
	"gopkg.in/yaml.v3"
)

// Config represents the qxhr configuration
type Config struct {
	Timeout         int                          `yaml:"timeout,omitempty"` // milliseconds
	WithCredentials *bool                        `yaml:"withCredentials,omitempty"`
	ResponseType    string                       `yaml:"responseType,omitempty"`
	FollowRedirects *bool                        `yaml:"followRedirects,omitempty"`
	MaxRedirects    int                          `yaml:"maxRedirects,omitempty"`
	ValidateSSL     *bool                        `yaml:"validateSSL,omitempty"`
	Proxy           string                       `yaml:"proxy,omitempty"`
	Headers         map[string]map[string]string `yaml:"headers,omitempty"` // "common" or a lower-case method
	NoColor         *bool                        `yaml:"noColor,omitempty"`

	Log       LogConfig       `yaml:"log,omitempty"`
	RequestID RequestIDConfig `yaml:"requestId,omitempty"`
	RateLimit RateLimitConfig `yaml:"rateLimit,omitempty"`
	History   HistoryConfig   `yaml:"history,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

type RequestIDConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Header  string `yaml:"header,omitempty"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps,omitempty"`
	Burst int     `yaml:"burst,omitempty"`
}

type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

func (c *Config) GetRequestID() bool {
	return getBool(c.RequestID.Enabled, false)
}

// TimeoutDuration returns Timeout as a duration.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".qxhr.yaml",
	".qxhr.yml",
	"qxhr.config.json",
}

// LoadConfig loads configuration from the specified path or searches the
// current directory.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in dir. Defaults are
// returned when none exists.
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}
	return DefaultConfig(), nil
}

// loadConfigFromFile parses YAML or JSON; JSON is valid YAML.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := file.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return DefaultConfig().Merge(&file), nil
}

// Validate rejects values the client cannot honour.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %d", c.Timeout)
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rateLimit.rps must not be negative, got %v", c.RateLimit.RPS)
	}
	switch c.ResponseType {
	case "", "text", "json", "arraybuffer", "blob":
	default:
		return fmt.Errorf("unknown responseType %q", c.ResponseType)
	}
	return nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c

	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.ResponseType != "" {
		result.ResponseType = other.ResponseType
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}

	// Boolean flags - only override if explicitly set in other config
	if other.WithCredentials != nil {
		result.WithCredentials = other.WithCredentials
	}
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if other.Log.Level != "" {
		result.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		result.Log.Format = other.Log.Format
	}
	if other.RequestID.Enabled != nil {
		result.RequestID.Enabled = other.RequestID.Enabled
	}
	if other.RequestID.Header != "" {
		result.RequestID.Header = other.RequestID.Header
	}
	if other.RateLimit.RPS > 0 {
		result.RateLimit = other.RateLimit
	}
	if other.History.Path != "" {
		result.History.Path = other.History.Path
	}

	result.Headers = make(map[string]map[string]string)
	for _, src := range []map[string]map[string]string{c.Headers, other.Headers} {
		for scope, hs := range src {
			scope = strings.ToLower(scope)
			if result.Headers[scope] == nil {
				result.Headers[scope] = make(map[string]string)
			}
			for k, v := range hs {
				result.Headers[scope][k] = v
			}
		}
	}

	return &result
}

// ApplyTo copies the request defaults onto d. Only values present in c are
// written.
func (c *Config) ApplyTo(d *xhr.Defaults) {
	d.Update(func(v *xhr.DefaultValues) {
		if c.Timeout > 0 {
			v.Timeout = c.TimeoutDuration()
		}
		if c.WithCredentials != nil {
			v.WithCredentials = xhr.Bool(*c.WithCredentials)
		}
		if v.Headers.Common == nil {
			v.Headers.Common = headers.Map{}
		}
		if v.Headers.Methods == nil {
			v.Headers.Methods = map[string]headers.Map{}
		}
		for scope, hs := range c.Headers {
			scope = strings.ToLower(scope)
			target := v.Headers.Common
			if scope != xhr.CommonHeaders {
				if v.Headers.Methods[scope] == nil {
					v.Headers.Methods[scope] = headers.Map{}
				}
				target = v.Headers.Methods[scope]
			}
			for name, value := range hs {
				target.Set(name, headers.Literal(value))
			}
		}
	})
}

// TransportOptions returns the net/http client options described by c.
func (c *Config) TransportOptions() []nethttp.ClientOption {
	opts := []nethttp.ClientOption{
		nethttp.WithFollowRedirects(c.GetFollowRedirects()),
		nethttp.WithValidateSSL(c.GetValidateSSL()),
	}
	if c.MaxRedirects > 0 {
		opts = append(opts, nethttp.WithMaxRedirects(c.MaxRedirects))
	}
	if c.Proxy != "" {
		opts = append(opts, nethttp.WithProxy(c.Proxy))
	}
	return opts
}

// SaveConfig writes c as YAML.
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
