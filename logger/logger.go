// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

// Package logger is the process logger shared by the service host packages.  It wraps the
// logrus standard logger with console and rotating file hooks, optional opentracing spans, and
// the per service log sinks a service writes its own events to.
package logger

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	otLog "github.com/opentracing/opentracing-go/log"
	log "github.com/sirupsen/logrus"
	"github.com/uber/jaeger-client-go/config"
	"golang.org/x/crypto/ssh/terminal"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultLogLevel    = "info"
	DefaultLogFormat   = TextFormat
	DefaultMaxLogFiles = 10
	MaxFilesLimit      = 20
	DefaultMaxLogSize  = 100  // in MB
	MaxLogSizeLimit    = 1024 // in MB
	JSONFormat         = "json"
	TextFormat         = "text"

	// rotated files older than this are removed
	maxLogAgeDays = 30
	masked        = "**********"
)

// LogParams to configure logging
type LogParams struct {
	Level      string `mapstructure:"level" yaml:"level"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxFiles   int    `mapstructure:"maxFiles" yaml:"maxFiles"`
	MaxSizeMiB int    `mapstructure:"maxSizeMiB" yaml:"maxSizeMiB"`
	Format     string `mapstructure:"format" yaml:"format"`
}

// Logr carries the root tracing span of the process, when tracing is enabled
type Logr struct {
	ctx context.Context
	cl  io.Closer
}

// Fields is a set of structured log fields
type Fields = log.Fields

var (
	logParams LogParams
	initMutex sync.Mutex

	validLevels  = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	validFormats = map[string]bool{JSONFormat: true, TextFormat: true}

	// lower-case substrings of argument names whose values are never logged
	sensitiveWords = []string{"x-auth-token", "username", "user", "password", "passwd", "secret", "token", "accesskey", "passphrase"}
)

// GetLevel returns the configured level, or the default when it is not a known level
func (l LogParams) GetLevel() string {
	if !validLevels[l.Level] {
		return DefaultLogLevel
	}
	return l.Level
}

func (l LogParams) GetFile() string {
	return l.File
}

// GetMaxFiles returns the number of rotated files to keep, bounded by MaxFilesLimit
func (l LogParams) GetMaxFiles() int {
	if l.MaxFiles <= 0 || l.MaxFiles > MaxFilesLimit {
		return DefaultMaxLogFiles
	}
	return l.MaxFiles
}

// GetMaxSize returns the rotation size in MiB, bounded by MaxLogSizeLimit
func (l LogParams) GetMaxSize() int {
	if l.MaxSizeMiB <= 0 || l.MaxSizeMiB > MaxLogSizeLimit {
		return DefaultMaxLogSize
	}
	return l.MaxSizeMiB
}

func (l LogParams) GetLogFormat() string {
	if !validFormats[l.Format] {
		return DefaultLogFormat
	}
	return l.Format
}

func (l LogParams) formatter(forFile bool) log.Formatter {
	if l.GetLogFormat() == JSONFormat {
		if forFile {
			return &log.JSONFormatter{}
		}
		return &log.JSONFormatter{CallerPrettyfier: CustomCallerPrettyfier}
	}
	if forFile {
		return &log.TextFormatter{FullTimestamp: true}
	}
	return &log.TextFormatter{FullTimestamp: true, CallerPrettyfier: CustomCallerPrettyfier}
}

// LOG_LEVEL, LOG_FILE, LOG_MAX_SIZE, LOG_MAX_FILES and LOG_FORMAT override the parameters
func updateLogParamsFromEnv() {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		logParams.Level = level
	}
	if file := os.Getenv("LOG_FILE"); file != "" {
		logParams.File = file
	}
	if size, err := strconv.ParseInt(os.Getenv("LOG_MAX_SIZE"), 0, 0); err == nil {
		logParams.MaxSizeMiB = int(size)
	}
	if count, err := strconv.ParseInt(os.Getenv("LOG_MAX_FILES"), 0, 0); err == nil {
		logParams.MaxFiles = int(count)
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		logParams.Format = format
	}
}

// InitOpentracing returns a jaeger tracer reporting spans for the named service
func InitOpentracing(service string) (opentracing.Tracer, io.Closer, error) {
	cfg := &config.Configuration{
		ServiceName: service,
		Sampler: &config.SamplerConfig{
			Type:  "const",
			Param: 1,
		},
		Reporter: &config.ReporterConfig{
			LogSpans: true,
		},
	}
	tracer, closer, err := cfg.NewTracer()
	if err != nil {
		return nil, nil, fmt.Errorf("cannot initialize tracing for %s: %v", service, err)
	}
	return tracer, closer, nil
}

// InitLogging configures the standard logger.  When tracingService is not empty a jaeger tracer is
// installed as the global tracer and the returned Logr carries its root span.
func InitLogging(logName string, params *LogParams, alsoLogToStderr bool, tracingService string) (err error, l *Logr) {
	initMutex.Lock()
	defer initMutex.Unlock()

	if params == nil {
		logParams = LogParams{
			Level:      DefaultLogLevel,
			MaxSizeMiB: DefaultMaxLogSize,
			MaxFiles:   DefaultMaxLogFiles,
			Format:     DefaultLogFormat,
		}
	} else {
		logParams = *params
	}
	if logName != "" {
		logParams.File = logName
	}
	updateLogParamsFromEnv()

	// Everything goes through the hooks
	log.SetOutput(ioutil.Discard)
	log.StandardLogger().ReplaceHooks(make(log.LevelHooks))

	lg := &Logr{}
	if logParams.GetFile() != "" {
		log.AddHook(NewFileHook())
	}
	if alsoLogToStderr {
		log.AddHook(NewConsoleHook())
	}

	level, err := log.ParseLevel(logParams.GetLevel())
	if err != nil {
		return err, lg
	}
	log.SetLevel(level)

	log.WithFields(log.Fields{
		"logLevel":        log.GetLevel().String(),
		"logFileLocation": logParams.GetFile(),
		"alsoLogToStderr": alsoLogToStderr,
	}).Info("Initialized logging.")

	if tracingService == "" {
		return nil, lg
	}

	tracer, closer, err := InitOpentracing(tracingService)
	if err != nil {
		return err, lg
	}
	opentracing.SetGlobalTracer(tracer)

	span := tracer.StartSpan(tracingService)
	defer span.Finish()
	log.Tracef("Span Context --- Traceid:Spanid:ParentSpanid:Flags  : %v", span.Context())
	lg.ctx = opentracing.ContextWithSpan(context.Background(), span)
	lg.cl = closer
	lg.LogToTrace("Info", "Tracing Initialized")
	return nil, lg
}

// CloseTracer flushes and closes the tracer created by InitLogging, if any
func (l *Logr) CloseTracer() {
	if l.cl != nil {
		l.cl.Close()
		l.cl = nil
	}
}

// LogToTrace adds msg to the span carried by the Logr context
func (l *Logr) LogToTrace(level, msg string) {
	if l.ctx == nil {
		return
	}
	span := opentracing.SpanFromContext(l.ctx)
	if span == nil {
		return
	}
	span.LogFields(otLog.String("level", level), otLog.String("event", msg))
}

// SetLevel changes the level of the standard logger, e.g. after a configuration reload
func SetLevel(level string) error {
	initMutex.Lock()
	defer initMutex.Unlock()
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	logParams.Level = level
	log.SetLevel(parsed)
	return nil
}

// ConsoleHook writes errors to stderr and everything else to stdout
type ConsoleHook struct {
	formatter log.Formatter
}

// NewConsoleHook creates a hook using the configured format
func NewConsoleHook() *ConsoleHook {
	return &ConsoleHook{logParams.formatter(false)}
}

func (hook *ConsoleHook) Levels() []log.Level {
	return log.AllLevels
}

func (hook *ConsoleHook) Fire(entry *log.Entry) error {
	out := os.Stdout
	if entry.Level <= log.ErrorLevel {
		out = os.Stderr
	}
	// https://github.com/sirupsen/logrus/issues/172
	if text, ok := hook.formatter.(*log.TextFormatter); ok && runtime.GOOS != "windows" {
		text.ForceColors = terminal.IsTerminal(int(out.Fd()))
	}

	line, err := hook.formatter.Format(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to read entry, %v", err)
		return err
	}
	_, err = out.Write(line)
	return err
}

// FileHook writes entries to a rotated log file
type FileHook struct {
	formatter log.Formatter
	logWriter io.Writer
}

func CustomCallerPrettyfier(f *runtime.Frame) (string, string) {
	s := strings.Split(f.Function, ".")
	_, filename := path.Split(f.File)
	return s[len(s)-1], filename
}

// NewFileHook creates a hook writing to the configured file through lumberjack
func NewFileHook() *FileHook {
	return &FileHook{
		formatter: logParams.formatter(true),
		logWriter: &lumberjack.Logger{
			Filename:   logParams.GetFile(),
			MaxSize:    logParams.GetMaxSize(),
			MaxBackups: logParams.GetMaxFiles(),
			MaxAge:     maxLogAgeDays,
			Compress:   true,
		},
	}
}

func (hook *FileHook) Levels() []log.Level {
	return log.AllLevels
}

func (hook *FileHook) Fire(entry *log.Entry) error {
	line, err := hook.formatter.Format(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not read log entry. %v", err)
		return err
	}
	// Windows text files end lines with CRLF
	if runtime.GOOS == "windows" && len(line) > 0 && line[len(line)-1] == '\n' &&
		(len(line) == 1 || line[len(line)-2] != '\r') {
		line = append(line[:len(line)-1], '\r', '\n')
	}
	_, err = hook.logWriter.Write(line)
	return err
}

// GetLevel returns the standard logger level.
func GetLevel() log.Level {
	return log.GetLevel()
}

// IsLevelEnabled checks if the log level of the standard logger is greater than the level param
func IsLevelEnabled(level log.Level) bool {
	return log.IsLevelEnabled(level)
}

// WithField creates an entry from the standard logger and adds a field to it
func WithField(key string, value interface{}) *log.Entry {
	return log.WithField(key, value)
}

// WithFields creates an entry from the standard logger and adds multiple fields to it
func WithFields(fields Fields) *log.Entry {
	return log.WithFields(fields)
}

// HTTPLogger : wrapper for http logging
func HTTPLogger(inner http.Handler, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panicked := true
		defer func() {
			if panicked {
				buf := make([]byte, 64<<10)
				buf = buf[:runtime.Stack(buf, false)]
				sourced().Errorf("HTTPLogger: panic serving %v:\n%s", name, buf)
			}
		}()

		sourced().Infof(">>>>> %s %s - %s", r.Method, r.RequestURI, name)
		start := time.Now()
		inner.ServeHTTP(w, r)
		sourced().Infof("<<<<< %s %s - %s %s", r.Method, r.RequestURI, name, time.Since(start))

		panicked = false
	})
}

// IsSensitive reports whether key names a credential
func IsSensitive(key string) bool {
	key = strings.ToLower(key)
	for _, word := range sensitiveWords {
		if strings.Contains(key, word) {
			return true
		}
	}
	return false
}

// Scrubber masks the whole argument list when any argument names a credential
func Scrubber(args []string) []string {
	for _, arg := range args {
		if IsSensitive(arg) {
			return []string{masked}
		}
	}
	return args
}

// MapScrubber returns a copy of m with the values of credential keys masked
func MapScrubber(m map[string]string) map[string]string {
	scrubbed := make(map[string]string, len(m))
	for k, v := range m {
		if IsSensitive(k) {
			v = masked
		}
		scrubbed[k] = v
	}
	return scrubbed
}

// sourced adds a "file" field holding the file name and line of the logging call
func sourced() *log.Entry {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file, line = "<???>", 1
	} else {
		file = file[strings.LastIndex(file, "/")+1:]
	}
	return log.WithField("file", fmt.Sprintf("%s:%d", file, line))
}

func Trace(args ...interface{}) {
	sourced().Trace(args...)
}

func Tracef(format string, args ...interface{}) {
	sourced().Tracef(format, args...)
}

func Debug(args ...interface{}) {
	sourced().Debug(args...)
}

func Debugf(format string, args ...interface{}) {
	sourced().Debugf(format, args...)
}

func Info(args ...interface{}) {
	sourced().Info(args...)
}

func Infof(format string, args ...interface{}) {
	sourced().Infof(format, args...)
}

func Warn(args ...interface{}) {
	sourced().Warn(args...)
}

func Warnf(format string, args ...interface{}) {
	sourced().Warnf(format, args...)
}

func Error(args ...interface{}) {
	sourced().Error(args...)
}

func Errorf(format string, args ...interface{}) {
	sourced().Errorf(format, args...)
}
