// Package log provides the process-wide logger behind a small interface so
// the logging backend stays swappable.
package log

import (
	"sync"
)

type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	IsDebugEnabled() bool
}

// Config selects level, line pattern and appenders.
type Config struct {
	Level   string      `mapstructure:"level" yaml:"level"`
	Pattern string      `mapstructure:"pattern" yaml:"pattern"`
	Time    string      `mapstructure:"time" yaml:"time"`
	File    *FileOutput `mapstructure:"file" yaml:"file,omitempty"`
}

// FileOutput enables a rotating log file next to the console output.
type FileOutput struct {
	Filename   string `mapstructure:"filename" yaml:"filename"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`       // MB
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"` // files
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`         // days
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// DefaultConfig logs to the console at info level.
func DefaultConfig() *Config {
	return &Config{
		Level:   "info",
		Pattern: "%time [%level] %msg%n",
		Time:    "2006-01-02 15:04:05",
	}
}

var (
	once   sync.Once
	logger Logger
)

// Init configures the global logger once; later calls are no-ops.
func Init(cfg *Config) {
	once.Do(func() {
		l, err := newLogrusLogger(cfg)
		if err != nil {
			panic(err)
		}
		logger = l
	})
}

// GetLogger returns the global logger, initializing it with defaults when
// Init was never called.
func GetLogger() Logger {
	Init(DefaultConfig())
	return logger
}
