package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level 日志级别
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

var zapLevels = map[Level]zapcore.Level{
	DEBUG: zapcore.DebugLevel,
	INFO:  zapcore.InfoLevel,
	WARN:  zapcore.WarnLevel,
	ERROR: zapcore.ErrorLevel,
}

// Logger 日志记录器
type Logger struct {
	module string
}

// 全局默认日志级别，所有 Logger 共享
var globalLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

var (
	baseMu sync.RWMutex
	base   = build(os.Stderr, true)
)

// build 构建 zap 控制台输出
func build(w io.Writer, color bool) *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	encCfg.ConsoleSeparator = " "
	if color {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), globalLevel)
	return zap.New(core).Sugar()
}

// SetGlobalLevel 设置全局日志级别
func SetGlobalLevel(level Level) {
	if zl, ok := zapLevels[level]; ok {
		globalLevel.SetLevel(zl)
	}
}

// GetGlobalLevel 获取全局日志级别
func GetGlobalLevel() Level {
	for lv, zl := range zapLevels {
		if zl == globalLevel.Level() {
			return lv
		}
	}
	return INFO
}

// ParseLevel 解析日志级别字符串，无法识别时返回 INFO
func ParseLevel(s string) Level {
	for lv, name := range levelNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return lv
		}
	}
	return INFO
}

// String 级别名称
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "INFO"
}

// SetOutput 切换日志输出（非终端输出不带颜色）
func SetOutput(w io.Writer) {
	color := false
	if f, ok := w.(*os.File); ok && (f == os.Stderr || f == os.Stdout) {
		color = true
	}
	baseMu.Lock()
	_ = base.Sync()
	base = build(w, color)
	baseMu.Unlock()
}

// Sync 刷新缓冲
func Sync() error {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return base.Sync()
}

// New 创建新的日志记录器
func New(module string) *Logger {
	return &Logger{module: module}
}

// sugar 取当前输出下带模块名的 zap logger
func (l *Logger) sugar() *zap.SugaredLogger {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return base.Named(l.module)
}

// Debug 调试日志
func (l *Logger) Debug(format string, args ...any) {
	l.sugar().Debugf(format, args...)
}

// Info 信息日志
func (l *Logger) Info(format string, args ...any) {
	l.sugar().Infof(format, args...)
}

// Warn 警告日志
func (l *Logger) Warn(format string, args ...any) {
	l.sugar().Warnf(format, args...)
}

// Error 错误日志
func (l *Logger) Error(format string, args ...any) {
	l.sugar().Errorf(format, args...)
}

// WithError 带错误的日志
func (l *Logger) WithError(err error) *Logger {
	if err != nil {
		l.Error("error: %v", err)
	}
	return l
}
