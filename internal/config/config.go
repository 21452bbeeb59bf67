// Package config 读取 tribunal 的运行配置：默认值 < 配置文件 < TRIBUNAL_* 环境变量。
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/run-bigpig/tribunal/internal/pkg/paths"
	"github.com/run-bigpig/tribunal/internal/transport"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "TRIBUNAL"

// Config 全部配置
type Config struct {
	Endpoint EndpointConfig `mapstructure:"endpoint"`
	Session  SessionConfig  `mapstructure:"session"`
	Roster   RosterConfig   `mapstructure:"roster"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// EndpointConfig 辩论服务地址
type EndpointConfig struct {
	BaseURL                 string `mapstructure:"base_url"`
	HandshakeTimeoutSeconds int    `mapstructure:"handshake_timeout_seconds"`
	QueueSize               int    `mapstructure:"queue_size"`
}

// HandshakeTimeout 握手超时
func (c EndpointConfig) HandshakeTimeout() time.Duration {
	return time.Duration(c.HandshakeTimeoutSeconds) * time.Second
}

// SessionConfig 会话行为
type SessionConfig struct {
	// WatchdogSeconds 无帧多久后停止会话，0 表示不启用
	WatchdogSeconds   int    `mapstructure:"watchdog_seconds"`
	ConcludeOnVerdict bool   `mapstructure:"conclude_on_verdict"`
	ExportDir         string `mapstructure:"export_dir"`
}

// Watchdog 空闲看门狗时长
func (c SessionConfig) Watchdog() time.Duration {
	return time.Duration(c.WatchdogSeconds) * time.Second
}

// RosterConfig 参与者名单
type RosterConfig struct {
	// File 名单 YAML 路径，为空使用内置名单
	File string `mapstructure:"file"`
}

// LoggingConfig 日志
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Endpoint: EndpointConfig{
			BaseURL:                 "ws://localhost:8000/ws/debate",
			HandshakeTimeoutSeconds: int(transport.DefaultHandshakeTimeout / time.Second),
			QueueSize:               transport.DefaultQueueSize,
		},
		Session: SessionConfig{
			WatchdogSeconds: 120,
			ExportDir:       paths.GetExportDir(),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SetDefaults 将默认值注册到 viper 实例
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("endpoint.base_url", defaults.Endpoint.BaseURL)
	v.SetDefault("endpoint.handshake_timeout_seconds", defaults.Endpoint.HandshakeTimeoutSeconds)
	v.SetDefault("endpoint.queue_size", defaults.Endpoint.QueueSize)

	v.SetDefault("session.watchdog_seconds", defaults.Session.WatchdogSeconds)
	v.SetDefault("session.conclude_on_verdict", defaults.Session.ConcludeOnVerdict)
	v.SetDefault("session.export_dir", defaults.Session.ExportDir)

	v.SetDefault("roster.file", defaults.Roster.File)

	v.SetDefault("logging.level", defaults.Logging.Level)
}

// Load 读取配置；path 为空时尝试默认配置文件，不存在则只用默认值和环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = ConfigFile()
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		if explicit || !missing {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// ConfigDir 配置目录
func ConfigDir() string {
	return paths.GetDataDir()
}

// ConfigFile 默认配置文件路径
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
