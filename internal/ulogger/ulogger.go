// Package ulogger provides the structured logging abstraction used across
// zcrawl's components: the crawler loop, the synthetic peer runtime, the
// RPC server and the CLI all take a Logger at construction time and derive
// scoped children from it via New.
package ulogger

import "io"

const (
	colorBlack = iota + 30
	colorRed
	colorGreen
	colorYellow
	colorBlue
	colorMagenta
	colorCyan
	colorWhite

	colorBold     = 1
	colorDarkGray = 90
)

// Logger is the logging contract every component depends on. Concrete
// implementations back it with zerolog (default) or gocore; tests back it
// with something that forwards to *testing.T.
type Logger interface {
	LogLevel() int
	SetLogLevel(level string)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	New(service string, options ...Option) Logger
	Duplicate(options ...Option) Logger
}

// Options controls how New constructs a Logger.
type Options struct {
	logLevel   string
	loggerType string
	writer     io.Writer
	skip       int
}

// Option mutates an Options value.
type Option func(*Options)

// DefaultOptions returns the baseline options: info level, zerolog backend.
func DefaultOptions() *Options {
	return &Options{
		logLevel:   "INFO",
		loggerType: "zerolog",
	}
}

// WithLevel sets the minimum level a Logger will emit.
func WithLevel(level string) Option {
	return func(o *Options) { o.logLevel = level }
}

// WithLoggerType selects the backend: "zerolog" (default) or "gocore".
func WithLoggerType(loggerType string) Option {
	return func(o *Options) { o.loggerType = loggerType }
}

// WithWriter sets the destination for log output.
func WithWriter(w io.Writer) Option {
	return func(o *Options) { o.writer = w }
}

// WithSkipFrame adjusts the caller-frame skip count used for source
// location reporting by backends that support it.
func WithSkipFrame(skip int) Option {
	return func(o *Options) { o.skip = skip }
}

// New constructs a Logger for the named service using the requested
// backend. zerolog is the default; gocore is available for parity with
// tooling that already reads gocore's own log stream.
func New(service string, options ...Option) Logger {
	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}

	switch opts.loggerType {
	case "gocore":
		return NewGoCoreLogger(service, options...)
	default:
		return NewZeroLogger(service, options...)
	}
}
