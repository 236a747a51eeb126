package ccfacade

// Fields is a minimal structured field map for logs.
type Fields map[string]any

// Logger is a tiny leveled logger. The log/zap, log/logrus and log/slog
// packages adapt the common logging stacks to it.
// If Logger is nil in Options, logging is disabled.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}
