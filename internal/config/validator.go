package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ErrInvalid 配置校验失败
var ErrInvalid = errors.New("invalid configuration")

// ValidationError 单个字段校验失败
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors 全部校验失败
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, err.Error()))
	}
	return sb.String()
}

// Is 使 errors.Is(err, ErrInvalid) 成立
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalid
}

// ValidLogLevels 支持的日志级别
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate 返回全部校验错误
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	u, err := url.Parse(c.Endpoint.BaseURL)
	switch {
	case c.Endpoint.BaseURL == "":
		errs = append(errs, ValidationError{"endpoint.base_url", c.Endpoint.BaseURL, "must not be empty"})
	case err != nil:
		errs = append(errs, ValidationError{"endpoint.base_url", c.Endpoint.BaseURL, err.Error()})
	case !slices.Contains([]string{"ws", "wss", "http", "https"}, u.Scheme):
		errs = append(errs, ValidationError{"endpoint.base_url", c.Endpoint.BaseURL, "scheme must be ws, wss, http or https"})
	case u.Host == "":
		errs = append(errs, ValidationError{"endpoint.base_url", c.Endpoint.BaseURL, "host is required"})
	}

	if c.Endpoint.HandshakeTimeoutSeconds <= 0 {
		errs = append(errs, ValidationError{"endpoint.handshake_timeout_seconds", c.Endpoint.HandshakeTimeoutSeconds, "must be positive"})
	}
	if c.Endpoint.QueueSize <= 0 {
		errs = append(errs, ValidationError{"endpoint.queue_size", c.Endpoint.QueueSize, "must be positive"})
	}
	if c.Session.WatchdogSeconds < 0 {
		errs = append(errs, ValidationError{"session.watchdog_seconds", c.Session.WatchdogSeconds, "must not be negative"})
	}
	if strings.TrimSpace(c.Session.ExportDir) == "" {
		errs = append(errs, ValidationError{"session.export_dir", c.Session.ExportDir, "must not be empty"})
	}
	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{"logging.level", c.Logging.Level, "must be one of " + strings.Join(ValidLogLevels(), ", ")})
	}
	return errs
}
