package katalog

// Logger receives the catalog's operational log: scan lifecycle, store
// failures, skipped entries. args are slog-style key/value pairs, keyed by
// "job", "volume", "path" and "error" where they apply.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger drops every record. Services, catalogs and scanners built
// without a logger use it.
type NopLogger struct{}

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...any) {}
func (*NopLogger) Info(string, ...any)  {}
func (*NopLogger) Warn(string, ...any)  {}
func (*NopLogger) Error(string, ...any) {}
