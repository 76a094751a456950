package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mbocsi/rosteleop/client"
	"github.com/mbocsi/rosteleop/proto"
	"gopkg.in/yaml.v3"
)

// Config represents the teleop console configuration
type Config struct {
	Endpoint         string        `yaml:"endpoint" json:"endpoint"`
	Discover         bool          `yaml:"discover" json:"discover"`
	Logging          LoggingConfig `yaml:"logging" json:"logging"`
	HTTP             HTTPConfig    `yaml:"http" json:"http"`
	Topics           []proto.Topic `yaml:"topics" json:"topics"`
	Teleop           TeleopConfig  `yaml:"teleop" json:"teleop"`
	Buffers          BuffersConfig `yaml:"buffers" json:"buffers"`
	ServiceTimeoutMs int           `yaml:"service_timeout_ms" json:"service_timeout_ms"`
}

// LoggingConfig holds logger settings. An empty LogPath disables the log file.
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	LogPath string `yaml:"log_path" json:"log_path"`
}

// HTTPConfig holds the local API listen address
type HTTPConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// TeleopConfig names the topics the console publishes and listens on
type TeleopConfig struct {
	PoseTopic   string  `yaml:"pose_topic" json:"pose_topic"`
	KeysTopic   string  `yaml:"keys_topic" json:"keys_topic"`
	AngleTopic  string  `yaml:"angle_topic" json:"angle_topic"`
	CmdVelTopic string  `yaml:"cmd_vel_topic" json:"cmd_vel_topic"`
	GoalTopic   string  `yaml:"goal_topic" json:"goal_topic"`
	TextTopic   string  `yaml:"text_topic" json:"text_topic"`
	MaxLinear   float64 `yaml:"max_linear" json:"max_linear"`
	MaxAngular  float64 `yaml:"max_angular" json:"max_angular"`
}

// BuffersConfig holds channel and log sizes
type BuffersConfig struct {
	Outbox   int `yaml:"outbox" json:"outbox"`
	Messages int `yaml:"messages" json:"messages"`
	History  int `yaml:"history" json:"history"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Endpoint: "ws://192.168.8.161:9090",
		Logging: LoggingConfig{
			Level: "info",
		},
		HTTP: HTTPConfig{
			Addr: "127.0.0.1:8080",
		},
		Topics: []proto.Topic{
			{Name: "/robot_pose", MessageType: proto.TypePose2D},
		},
		Teleop: DefaultTeleop(),
		Buffers: BuffersConfig{
			Outbox:   256,
			Messages: 64,
			History:  200,
		},
		ServiceTimeoutMs: 5000,
	}
}

func DefaultTeleop() TeleopConfig {
	return TeleopConfig{
		PoseTopic:   "/robot_pose",
		KeysTopic:   "/remote_keys",
		AngleTopic:  "/angle",
		CmdVelTopic: "/cmd_vel",
		GoalTopic:   "/goal_pose",
		TextTopic:   "/android",
		MaxLinear:   0.5,
		MaxAngular:  1.0,
	}
}

// Load reads a YAML file on top of Default and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the fields the rest of the program relies on
func (c *Config) Validate() error {
	if c.Endpoint == "" && !c.Discover {
		return fmt.Errorf("missing required field in config: endpoint")
	}
	if c.Endpoint != "" {
		if err := client.ValidateEndpoint(c.Endpoint); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}

	for i, t := range c.Topics {
		if t.Name == "" {
			return fmt.Errorf("missing required field in config: topics[%d].name", i)
		}
		if _, err := proto.ParseMessageType(string(t.MessageType)); err != nil {
			return fmt.Errorf("invalid config: topics[%d]: %w", i, err)
		}
	}

	if c.Buffers.Outbox <= 0 {
		return fmt.Errorf("invalid config: buffers.outbox must be positive, got %d", c.Buffers.Outbox)
	}
	if c.Buffers.Messages <= 0 {
		return fmt.Errorf("invalid config: buffers.messages must be positive, got %d", c.Buffers.Messages)
	}
	if c.Buffers.History <= 0 {
		return fmt.Errorf("invalid config: buffers.history must be positive, got %d", c.Buffers.History)
	}
	if c.ServiceTimeoutMs <= 0 {
		return fmt.Errorf("invalid config: service_timeout_ms must be positive, got %d", c.ServiceTimeoutMs)
	}
	if c.Teleop.MaxLinear < 0 || c.Teleop.MaxAngular < 0 {
		return fmt.Errorf("invalid config: teleop speed limits must not be negative")
	}
	return nil
}

// ServiceTimeout returns ServiceTimeoutMs as a duration
func (c *Config) ServiceTimeout() time.Duration {
	return time.Duration(c.ServiceTimeoutMs) * time.Millisecond
}

// HasTopic reports whether name is in the subscription list
func (c *Config) HasTopic(name string) bool {
	for _, t := range c.Topics {
		if t.Name == name {
			return true
		}
	}
	return false
}
