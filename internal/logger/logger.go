package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"stackguard/internal/config"
	"stackguard/internal/env"
)

var (
	defaultLogger *Logger

	componentMu      sync.Mutex
	componentLoggers = map[string]*Logger{}
)

// Logger is a leveled logger writing to a single output.
type Logger struct {
	debugLogger *log.Logger
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
}

// LogLevel 日志级别
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// GetLogLevelFromString converts a level string to a LogLevel.
func GetLogLevelFromString(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn":
		return WARN
	case "error":
		return ERROR
	default:
		return WARN
	}
}

func newLogger(output io.Writer, level LogLevel) *Logger {
	flags := log.LstdFlags | log.Lshortfile

	l := &Logger{
		debugLogger: log.New(io.Discard, "DEBUG: ", flags),
		infoLogger:  log.New(io.Discard, "INFO: ", flags),
		warnLogger:  log.New(io.Discard, "WARN: ", flags),
		errorLogger: log.New(io.Discard, "ERROR: ", flags),
	}
	if level <= DEBUG {
		l.debugLogger.SetOutput(output)
	}
	if level <= INFO {
		l.infoLogger.SetOutput(output)
	}
	if level <= WARN {
		l.warnLogger.SetOutput(output)
	}
	if level <= ERROR {
		l.errorLogger.SetOutput(output)
	}
	return l
}

/**
 * Initialize logging system according to run mode
 * @param {config.LogConfig} cfg - Log configuration (level, path)
 * @param {bool} isServerMode - true for HTTP server mode, false for CLI mode
 * @description
 * - CLI mode writes to the configured file only
 * - Server mode additionally mirrors output to stdout
 */
func InitLoggerWithMode(cfg *config.LogConfig, isServerMode bool) {
	var output io.Writer

	if cfg.Path == "console" {
		output = os.Stdout
	} else if cfg.Path == "" {
		output = setupLogFileOutput(filepath.Join(env.LogsDir(), "stackguard.log"))
	} else {
		output = setupLogFileOutput(cfg.Path)
	}

	if isServerMode && cfg.Path != "console" {
		output = io.MultiWriter(os.Stdout, output)
	}

	defaultLogger = newLogger(output, GetLogLevelFromString(cfg.Level))
}

/**
 * Get a logger appending to the component's own log file
 * @param {string} component - Component name (supervisor/validator/backup/...)
 * @returns {*Logger} Logger writing to logs/<component>.log
 * @description
 * - Each component keeps an append-only structured log
 * - Loggers are cached, one file handle per component
 */
func ForComponent(component string) *Logger {
	componentMu.Lock()
	defer componentMu.Unlock()

	if l, ok := componentLoggers[component]; ok {
		return l
	}
	output := setupLogFileOutput(filepath.Join(env.LogsDir(), component+".log"))
	l := newLogger(output, GetLogLevelFromString(config.Config.Log.Level))
	componentLoggers[component] = l
	return l
}

// setupLogFileOutput opens the log file for appending, creating directories as needed.
func setupLogFileOutput(logPath string) io.Writer {
	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		return os.Stdout
	}

	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		return os.Stdout
	}

	return file
}

func (l *Logger) Debug(v ...interface{}) { l.debugLogger.Println(v...) }

func (l *Logger) Debugf(format string, v ...interface{}) { l.debugLogger.Printf(format, v...) }

func (l *Logger) Info(v ...interface{}) { l.infoLogger.Println(v...) }

func (l *Logger) Infof(format string, v ...interface{}) { l.infoLogger.Printf(format, v...) }

func (l *Logger) Warn(v ...interface{}) { l.warnLogger.Println(v...) }

func (l *Logger) Warnf(format string, v ...interface{}) { l.warnLogger.Printf(format, v...) }

func (l *Logger) Error(v ...interface{}) { l.errorLogger.Println(v...) }

func (l *Logger) Errorf(format string, v ...interface{}) { l.errorLogger.Printf(format, v...) }

// Debug 输出调试日志
func Debug(v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.debugLogger.Println(v...)
	}
}

// Debugf 输出格式化调试日志
func Debugf(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.debugLogger.Printf(format, v...)
	}
}

// Info 输出信息日志
func Info(v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.infoLogger.Println(v...)
	}
}

// Infof 输出格式化信息日志
func Infof(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.infoLogger.Printf(format, v...)
	}
}

// Warn 输出警告日志
func Warn(v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.warnLogger.Println(v...)
	}
}

// Warnf 输出格式化警告日志
func Warnf(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.warnLogger.Printf(format, v...)
	}
}

// Error 输出错误日志
func Error(v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.errorLogger.Println(v...)
	}
}

// Errorf 输出格式化错误日志
func Errorf(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.errorLogger.Printf(format, v...)
	}
}

// Fatal 输出致命错误日志并退出程序
func Fatal(v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.errorLogger.Fatal(v...)
	} else {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", v...)
		os.Exit(1)
	}
}

// Fatalf 输出格式化致命错误日志并退出程序
func Fatalf(format string, v ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.errorLogger.Fatalf(format, v...)
	} else {
		fmt.Fprintf(os.Stderr, "FATAL: "+format+"\n", v...)
		os.Exit(1)
	}
}
