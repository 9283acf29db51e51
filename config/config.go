// Package config loads the civilization settings from YAML with environment
// overrides and watches the file for changes.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/civmesh/core"
	"github.com/hupe1980/civmesh/logging"
	"github.com/hupe1980/civmesh/mailbox"
	"github.com/hupe1980/civmesh/tracer"
	"github.com/hupe1980/civmesh/wire"
)

// ValidProviders lists the supported LLM providers.
var ValidProviders = []string{"openai", "anthropic", "gemini"}

// Config holds all settings of a civilization.
type Config struct {
	Mailbox MailboxConfig `yaml:"mailbox"`
	Logging LoggingConfig `yaml:"logging"`
	LLM     LLMConfig     `yaml:"llm"`
	Leader  LeaderConfig  `yaml:"leader"`
	Agent   AgentConfig   `yaml:"agent"`
	Tools   ToolsConfig   `yaml:"tools"`
	Trace   TraceConfig   `yaml:"trace"`
}

// MailboxConfig configures the port range every agent binds in.
type MailboxConfig struct {
	Host         string        `yaml:"host"`
	PortStart    int           `yaml:"port_start"`
	PortRange    int           `yaml:"port_range"`
	MessageTypes []string      `yaml:"message_types"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`  // text or json
	Backend string `yaml:"backend"` // slog or zap
}

// LLMConfig configures the model behind every brain.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
	MaxCalls    int     `yaml:"max_calls"`
	MemoryTurns int     `yaml:"memory_turns"`
	Stream      bool    `yaml:"stream"`
}

// LeaderConfig describes the agent the user talks to.
type LeaderConfig struct {
	Name        string `yaml:"name"`
	Instruction string `yaml:"instruction"`
}

// AgentConfig tunes the state machine.
type AgentConfig struct {
	MaxReviews int `yaml:"max_reviews"`
}

// ToolsConfig configures the default tools.
type ToolsConfig struct {
	Workdir         string        `yaml:"workdir"`
	TerminalTimeout time.Duration `yaml:"terminal_timeout"`
	CodedTimeout    time.Duration `yaml:"coded_timeout"`
	Browser         bool          `yaml:"browser"`
	BrowserHeadless bool          `yaml:"browser_headless"`
}

// TraceConfig selects the trace sinks. Empty addresses disable a sink.
type TraceConfig struct {
	Console bool        `yaml:"console"`
	Log     bool        `yaml:"log"`
	Redis   RedisConfig `yaml:"redis"`
	AMQP    AMQPConfig  `yaml:"amqp"`
	MySQL   MySQLConfig `yaml:"mysql"`
}

// RedisConfig configures the redis event log.
type RedisConfig struct {
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// AMQPConfig configures the event exchange.
type AMQPConfig struct {
	URL           string `yaml:"url"`
	Exchange      string `yaml:"exchange"`
	RoutingPrefix string `yaml:"routing_prefix"`
}

// MySQLConfig configures the audit table.
type MySQLConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// DefaultLeaderInstruction is the persona of the default leader.
const DefaultLeaderInstruction = "Follow the user's instructions carefully. Respond using markdown. You must fulfill the user's request."

// Default returns the built-in configuration.
func Default() *Config {
	mb := mailbox.DefaultConfig()
	return &Config{
		Mailbox: MailboxConfig{
			Host:         mb.Host,
			PortStart:    mb.PortStart,
			PortRange:    mb.PortRange,
			MessageTypes: []string{wire.Default.String()},
			ReadTimeout:  mb.ReadTimeout,
			DialTimeout:  mb.DialTimeout,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "text",
			Backend: "slog",
		},
		LLM: LLMConfig{
			Provider: "openai",
			Stream:   true,
		},
		Leader: LeaderConfig{
			Name:        "Leader",
			Instruction: DefaultLeaderInstruction,
		},
		Agent: AgentConfig{
			MaxReviews: 3,
		},
		Tools: ToolsConfig{
			Workdir:         "playground",
			TerminalTimeout: 60 * time.Second,
			CodedTimeout:    30 * time.Second,
			Browser:         true,
			BrowserHeadless: true,
		},
		Trace: TraceConfig{
			Console: true,
		},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("HOST"); v != "" {
		c.Mailbox.Host = v
	}
	if err := envInt("PORT_START", &c.Mailbox.PortStart); err != nil {
		return err
	}
	if err := envInt("PORT_RANGE", &c.Mailbox.PortRange); err != nil {
		return err
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("BOT_NAME"); v != "" {
		c.Leader.Name = v
	}

	keys := map[string]string{
		"openai":    "OPENAI_API_KEY",
		"anthropic": "ANTHROPIC_API_KEY",
		"gemini":    "GEMINI_API_KEY",
	}
	if env, ok := keys[c.LLM.Provider]; ok {
		if v := os.Getenv(env); v != "" {
			c.LLM.APIKey = v
		}
	}

	if host := os.Getenv("REDIS_HOST"); host != "" {
		port := os.Getenv("REDIS_PORT")
		if port == "" {
			port = "6379"
		}
		c.Trace.Redis.Address = net.JoinHostPort(host, port)
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		c.Trace.AMQP.URL = v
	}
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		c.Trace.MySQL.DSN = v
	}
	return nil
}

func envInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	*dst = n
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	mb, err := c.MailboxConfig()
	if err != nil {
		return err
	}
	if err := mb.Validate(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if !slices.Contains(ValidProviders, c.LLM.Provider) {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}
	if err := core.ValidateName(c.Leader.Name); err != nil {
		return fmt.Errorf("leader: %w", err)
	}
	if c.Agent.MaxReviews < 0 {
		return fmt.Errorf("max_reviews must not be negative, got %d", c.Agent.MaxReviews)
	}
	return nil
}

// MailboxConfig converts the mailbox section.
func (c *Config) MailboxConfig() (mailbox.Config, error) {
	types := make([]wire.MessageType, 0, len(c.Mailbox.MessageTypes))
	for _, name := range c.Mailbox.MessageTypes {
		t, err := wire.ParseMessageType(name)
		if err != nil {
			return mailbox.Config{}, err
		}
		types = append(types, t)
	}
	if len(types) == 0 {
		types = []wire.MessageType{wire.Default}
	}
	return mailbox.Config{
		Host:         c.Mailbox.Host,
		PortStart:    c.Mailbox.PortStart,
		PortRange:    c.Mailbox.PortRange,
		MessageTypes: types,
		ReadTimeout:  c.Mailbox.ReadTimeout,
		DialTimeout:  c.Mailbox.DialTimeout,
	}, nil
}

// LoggerConfig converts the logging section. Invalid levels fall back to info.
func (c *Config) LoggerConfig() logging.Config {
	lc := logging.DefaultConfig()
	if lv, err := logging.ParseLevel(c.Logging.Level); err == nil {
		lc.Level = lv
	}
	if c.Logging.Format != "" {
		lc.Format = strings.ToLower(c.Logging.Format)
	}
	if c.Logging.Backend != "" {
		lc.Backend = strings.ToLower(c.Logging.Backend)
	}
	return lc
}

// RedisSinkConfig converts the redis section. ok is false when no address is set.
func (c *Config) RedisSinkConfig() (cfg tracer.RedisConfig, ok bool) {
	r := c.Trace.Redis
	return tracer.RedisConfig{Address: r.Address, Password: r.Password, DB: r.DB, KeyPrefix: r.KeyPrefix}, r.Address != ""
}

// AMQPSinkConfig converts the amqp section. ok is false when no URL is set.
func (c *Config) AMQPSinkConfig() (cfg tracer.AMQPConfig, ok bool) {
	a := c.Trace.AMQP
	return tracer.AMQPConfig{URL: a.URL, Exchange: a.Exchange, RoutingPrefix: a.RoutingPrefix}, a.URL != ""
}

// SQLSinkConfig converts the mysql section. ok is false when no DSN is set.
func (c *Config) SQLSinkConfig() (cfg tracer.SQLConfig, ok bool) {
	m := c.Trace.MySQL
	return tracer.SQLConfig{DSN: m.DSN, Table: m.Table}, m.DSN != ""
}
