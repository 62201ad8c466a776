package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel 日志级别
type LogLevel int

const (
	LogError LogLevel = iota
	LogWarn
	LogInfo
	LogDebug
)

// String 返回日志级别字符串
func (l LogLevel) String() string {
	switch l {
	case LogError:
		return "ERROR"
	case LogWarn:
		return "WARN"
	case LogInfo:
		return "INFO"
	case LogDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel 解析配置中的级别字符串，无法识别时返回 LogInfo
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LogError
	case "warn", "warning":
		return LogWarn
	case "debug":
		return LogDebug
	default:
		return LogInfo
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogError:
		return zapcore.ErrorLevel
	case LogWarn:
		return zapcore.WarnLevel
	case LogDebug:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger 日志接口
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	SetLevel(level LogLevel)
	GetLevel() LogLevel
}

// Options 日志选项
type Options struct {
	Level  LogLevel
	Format string // json 或 text

	// File 非空时同时写入滚动日志文件
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Output 默认 os.Stdout
	Output io.Writer
}

// ZapLogger 基于 zap 的日志实现
type ZapLogger struct {
	mu    sync.Mutex
	level LogLevel
	atom  zap.AtomicLevel
	sugar *zap.SugaredLogger
	file  *lumberjack.Logger
}

// NewLogger 创建日志
func NewLogger(opts Options) *ZapLogger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(opts.Format, "json") {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	sink := zapcore.AddSync(out)
	var file *lumberjack.Logger
	if opts.File != "" {
		file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
		sink = zapcore.NewMultiWriteSyncer(sink, zapcore.AddSync(file))
	}

	atom := zap.NewAtomicLevelAt(opts.Level.zapLevel())
	return &ZapLogger{
		level: opts.Level,
		atom:  atom,
		sugar: zap.New(zapcore.NewCore(encoder, sink, atom)).Sugar(),
		file:  file,
	}
}

// NewDefaultLogger 创建输出到标准输出的文本日志
func NewDefaultLogger(level LogLevel) *ZapLogger {
	return NewLogger(Options{Level: level})
}

// SetLevel 设置日志级别
func (l *ZapLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	l.atom.SetLevel(level.zapLevel())
}

// GetLevel 获取日志级别
func (l *ZapLogger) GetLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *ZapLogger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *ZapLogger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *ZapLogger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *ZapLogger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// Close 刷新缓冲并关闭日志文件
func (l *ZapLogger) Close() error {
	_ = l.sugar.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// NoOpLogger 空日志实现（用于禁用日志）
type NoOpLogger struct{}

// NewNoOpLogger 创建空日志
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(format string, args ...interface{}) {}
func (l *NoOpLogger) Info(format string, args ...interface{})  {}
func (l *NoOpLogger) Warn(format string, args ...interface{})  {}
func (l *NoOpLogger) Error(format string, args ...interface{}) {}
func (l *NoOpLogger) SetLevel(level LogLevel)                  {}
func (l *NoOpLogger) GetLevel() LogLevel                       { return LogInfo }
