package types

import (
	"fmt"
	"time"
)

// ServerConf 包含监听相关的配置
type ServerConf struct {
	Host            string `ini:"host"`
	Port            int    `ini:"port"`
	MaxConnections  int    `ini:"max_connections"` // 0 表示不限制
	ReusePort       bool   `ini:"reuse_port"`
	ShutdownTimeout int    `ini:"shutdown_timeout"` // 秒
}

// StreamConf 包含每个连接的推送节奏配置
type StreamConf struct {
	MaxIntervalMs  int  `ini:"max_interval_ms"`
	PauseAt        int  `ini:"pause_at"`
	PauseSeconds   int  `ini:"pause_seconds"`
	WriteTimeoutMs int  `ini:"write_timeout_ms"`
	RecurringPause bool `ini:"recurring_pause"`
	Heartbeat      bool `ini:"heartbeat"`
}

// LogConf contains logging specific configuration
type LogConf struct {
	Level string `ini:"level"`
}

// Config 是统一配置结构体
type Config struct {
	ServerConf `ini:"server"`
	StreamConf `ini:"stream"`
	LogConf    `ini:"log"`
}

// DefaultConfig returns the values used when the ini file omits a key.
func DefaultConfig() *Config {
	return &Config{
		ServerConf: ServerConf{
			Host:            "0.0.0.0",
			Port:            5000,
			ShutdownTimeout: 10,
		},
		StreamConf: StreamConf{
			MaxIntervalMs:  10000,
			PauseAt:        5,
			PauseSeconds:   61,
			WriteTimeoutMs: 10000,
		},
		LogConf: LogConf{Level: "info"},
	}
}

// Addr is the host:port the web server binds.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ServerConf.Host, c.ServerConf.Port)
}

func (c *Config) MaxInterval() time.Duration {
	return time.Duration(c.StreamConf.MaxIntervalMs) * time.Millisecond
}

func (c *Config) PauseFor() time.Duration {
	return time.Duration(c.StreamConf.PauseSeconds) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.StreamConf.WriteTimeoutMs) * time.Millisecond
}

func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.ServerConf.ShutdownTimeout) * time.Second
}

// Validate rejects values the stream handler cannot run with.
func (c *Config) Validate() error {
	if c.ServerConf.Port < 0 || c.ServerConf.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.ServerConf.Port)
	}
	if c.ServerConf.MaxConnections < 0 {
		return fmt.Errorf("max_connections must not be negative")
	}
	if c.StreamConf.MaxIntervalMs <= 0 {
		return fmt.Errorf("max_interval_ms must be positive, got %d", c.StreamConf.MaxIntervalMs)
	}
	if c.StreamConf.PauseAt < 1 {
		return fmt.Errorf("pause_at must be at least 1, got %d", c.StreamConf.PauseAt)
	}
	if c.StreamConf.PauseSeconds < 0 {
		return fmt.Errorf("pause_seconds must not be negative")
	}
	if c.StreamConf.WriteTimeoutMs < 0 {
		return fmt.Errorf("write_timeout_ms must not be negative")
	}
	return nil
}
