package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/sprout/internal/errors"
	"github.com/vango-dev/sprout/pkg/archive"
	"github.com/vango-dev/sprout/pkg/pipe/wspipe"
	"github.com/vango-dev/sprout/pkg/runtime"
)

// FileNames lists the configuration files Load looks for, in order.
var FileNames = []string{"sprout.json", "sprout.yaml", "sprout.yml"}

const (
	// DefaultAddr is the default listen address of sprout serve.
	DefaultAddr = "localhost:7070"

	// DefaultHistorySize is the default number of patches kept in memory.
	DefaultHistorySize = 256

	// DefaultArchiveQueue is the default S3 upload queue length.
	DefaultArchiveQueue = 256
)

// Config is the contents of a sprout configuration file.
type Config struct {
	// Runtime holds render scheduling settings.
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`

	// Server holds HTTP and WebSocket settings.
	Server ServerConfig `json:"server" yaml:"server"`

	// Archive holds patch recording settings.
	Archive ArchiveConfig `json:"archive" yaml:"archive"`

	// Log holds logging settings.
	Log LogConfig `json:"log" yaml:"log"`

	path string
}

// RuntimeConfig mirrors runtime.Config with string durations.
type RuntimeConfig struct {
	RenderDebounce      Duration `json:"renderDebounce" yaml:"renderDebounce"`
	RenderRetryInterval Duration `json:"renderRetryInterval" yaml:"renderRetryInterval"`
	MaxRenderRetries    int      `json:"maxRenderRetries" yaml:"maxRenderRetries"`
	HeartbeatInterval   Duration `json:"heartbeatInterval" yaml:"heartbeatInterval"`
	ResultBuffer        int      `json:"resultBuffer" yaml:"resultBuffer"`
}

// ServerConfig configures the HTTP listener and WebSocket connections.
type ServerConfig struct {
	Addr           string   `json:"addr" yaml:"addr"`
	ReadTimeout    Duration `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout   Duration `json:"writeTimeout" yaml:"writeTimeout"`
	PingInterval   Duration `json:"pingInterval" yaml:"pingInterval"`
	MaxMessageSize int64    `json:"maxMessageSize" yaml:"maxMessageSize"`

	// AllowedOrigins lists extra origins accepted besides the request host.
	// "*" accepts any origin.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty"`
}

// ArchiveConfig configures patch recording.
type ArchiveConfig struct {
	// HistorySize is the number of patches kept in memory.
	HistorySize int `json:"historySize" yaml:"historySize"`

	// Bucket enables S3 archiving when set.
	Bucket    string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix    string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region    string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	PathStyle bool   `json:"pathStyle,omitempty" yaml:"pathStyle,omitempty"`
	Queue     int    `json:"queue" yaml:"queue"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn or error
	Format string `json:"format" yaml:"format"` // text or json
}

// New returns a Config with default values.
func New() *Config {
	rc := runtime.DefaultConfig()
	wc := wspipe.DefaultConfig()
	return &Config{
		Runtime: RuntimeConfig{
			RenderDebounce:      Duration(rc.RenderDebounce),
			RenderRetryInterval: Duration(rc.RenderRetryInterval),
			MaxRenderRetries:    rc.MaxRenderRetries,
			HeartbeatInterval:   Duration(rc.HeartbeatInterval),
			ResultBuffer:        rc.ResultBuffer,
		},
		Server: ServerConfig{
			Addr:           DefaultAddr,
			ReadTimeout:    Duration(wc.ReadTimeout),
			WriteTimeout:   Duration(wc.WriteTimeout),
			PingInterval:   Duration(wc.PingInterval),
			MaxMessageSize: wc.MaxMessageSize,
		},
		Archive: ArchiveConfig{
			HistorySize: DefaultHistorySize,
			Queue:       DefaultArchiveQueue,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the first configuration file found in dir.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E100").
		WithDetail("No sprout.json or sprout.yaml found in " + dir).
		WithSuggestion("Create sprout.yaml or pass --config")
}

// LoadOrDefault is like Load but returns defaults when dir has no
// configuration file.
func LoadOrDefault(dir string) (*Config, error) {
	for _, name := range FileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return Load(dir)
		}
	}
	return New(), nil
}

// LoadFile reads a configuration file. The format follows the extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithDetail("No configuration file at " + path).
				WithSuggestion("Check the --config path")
		}
		return nil, errors.New("E101").Wrap(err)
	}

	cfg := New()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = decodeJSON(data, cfg)
	case ".yaml", ".yml":
		err = decodeYAML(data, cfg)
	default:
		return nil, errors.New("E103").
			WithDetail(fmt.Sprintf("%s has extension %q", path, ext)).
			WithSuggestion("Rename the file to sprout.json or sprout.yaml")
	}
	if err != nil {
		return nil, errors.New("E101").
			Wrap(err).
			WithSuggestion("Check the syntax and field names of " + filepath.Base(path))
	}

	cfg.path = path
	cfg.applyDefaults()
	return cfg, nil
}

func decodeJSON(data []byte, cfg *Config) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// SaveTo writes the configuration to path, as YAML or JSON depending on
// the extension.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	c.path = path
	return nil
}

// Path returns the file the configuration was loaded from, or "".
func (c *Config) Path() string {
	return c.path
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Archive.Region == "" && c.Archive.Bucket != "" {
		c.Archive.Region = "us-east-1"
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.RuntimeConfig().Validate(); err != nil {
		return errors.New("E102").Wrap(err).
			WithSuggestion("Fix the runtime section")
	}
	s := c.Server
	switch {
	case s.Addr == "":
		return invalid("server.addr must not be empty")
	case s.ReadTimeout <= 0 || s.WriteTimeout <= 0:
		return invalid("server timeouts must be positive")
	case s.PingInterval <= 0 || s.PingInterval >= s.ReadTimeout:
		return invalid("server.pingInterval must be positive and shorter than server.readTimeout")
	case s.MaxMessageSize <= 0:
		return invalid("server.maxMessageSize must be positive")
	}
	if c.Archive.HistorySize < 0 || c.Archive.Queue < 0 {
		return invalid("archive.historySize and archive.queue must not be negative")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return invalid(err.Error())
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return invalid(fmt.Sprintf("log.format %q is not text or json", c.Log.Format))
	}
	return nil
}

func invalid(detail string) error {
	return errors.New("E102").WithDetail(detail)
}

// RuntimeConfig converts the runtime section.
func (c *Config) RuntimeConfig() *runtime.Config {
	return &runtime.Config{
		RenderDebounce:      c.Runtime.RenderDebounce.Std(),
		RenderRetryInterval: c.Runtime.RenderRetryInterval.Std(),
		MaxRenderRetries:    c.Runtime.MaxRenderRetries,
		HeartbeatInterval:   c.Runtime.HeartbeatInterval.Std(),
		ResultBuffer:        c.Runtime.ResultBuffer,
	}
}

// WSConfig converts the server section into WebSocket settings.
func (c *Config) WSConfig() *wspipe.Config {
	wc := wspipe.DefaultConfig()
	wc.ReadTimeout = c.Server.ReadTimeout.Std()
	wc.WriteTimeout = c.Server.WriteTimeout.Std()
	wc.PingInterval = c.Server.PingInterval.Std()
	wc.MaxMessageSize = c.Server.MaxMessageSize
	if len(c.Server.AllowedOrigins) > 0 {
		wc.CheckOrigin = originCheck(c.Server.AllowedOrigins)
	}
	return wc
}

// S3Options converts the archive section into S3 client options.
func (c *Config) S3Options() archive.S3Options {
	return archive.S3Options{
		Region:    c.Archive.Region,
		Endpoint:  c.Archive.Endpoint,
		PathStyle: c.Archive.PathStyle,
	}
}

// Logger builds a logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level %q is not debug, info, warn or error", s)
	}
	return level, nil
}
