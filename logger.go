package gamealert

// Logger defines the logging interface required by the gamealert engines.
// Implement this interface to integrate your logging system (zerolog, zap, etc.).
//
// Example implementation:
//
//	type ZerologLogger struct {
//	    logger zerolog.Logger
//	}
//
//	func (l *ZerologLogger) Infof(format string, args ...interface{}) {
//	    l.logger.Info().Msgf(format, args...)
//	}
type Logger interface {
	// Debugf logs debug-level messages with printf-style formatting.
	Debugf(format string, args ...interface{})

	// Infof logs info-level messages with printf-style formatting.
	Infof(format string, args ...interface{})

	// Warnf logs warning-level messages with printf-style formatting.
	Warnf(format string, args ...interface{})

	// Errorf logs error-level messages with printf-style formatting.
	Errorf(format string, args ...interface{})

	// Info logs info-level messages without formatting.
	Info(message string)
}

// NoopLogger is a no-operation logger implementation useful for testing
// or when logging is not desired. All methods are no-ops.
type NoopLogger struct{}

// Debugf implements Logger.Debugf as a no-op.
func (l *NoopLogger) Debugf(_ string, _ ...interface{}) {}

// Infof implements Logger.Infof as a no-op.
func (l *NoopLogger) Infof(_ string, _ ...interface{}) {}

// Warnf implements Logger.Warnf as a no-op.
func (l *NoopLogger) Warnf(_ string, _ ...interface{}) {}

// Errorf implements Logger.Errorf as a no-op.
func (l *NoopLogger) Errorf(_ string, _ ...interface{}) {}

// Info implements Logger.Info as a no-op.
func (l *NoopLogger) Info(_ string) {}

// taggedLogger prepends a fixed tag such as "[price-watch 1f3a...]" to every message.
type taggedLogger struct {
	base Logger
	tag  string
}

// withTag returns a logger that prefixes every message with "[tag] ".
func withTag(base Logger, tag string) Logger {
	return &taggedLogger{base: base, tag: "[" + tag + "] "}
}

func (l *taggedLogger) Debugf(format string, args ...interface{}) {
	l.base.Debugf(l.tag+format, args...)
}

func (l *taggedLogger) Infof(format string, args ...interface{}) {
	l.base.Infof(l.tag+format, args...)
}

func (l *taggedLogger) Warnf(format string, args ...interface{}) {
	l.base.Warnf(l.tag+format, args...)
}

func (l *taggedLogger) Errorf(format string, args ...interface{}) {
	l.base.Errorf(l.tag+format, args...)
}

func (l *taggedLogger) Info(message string) {
	l.base.Info(l.tag + message)
}
