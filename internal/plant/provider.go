package plant

import "context"

// Provider supplies the current plant snapshot.
//
// Implementations must return fresh data on every call. An error means the
// snapshot is unavailable; callers treat it as an empty snapshot.
type Provider interface {
	ListPlants(ctx context.Context) ([]Plant, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) ([]Plant, error)

// ListPlants calls f(ctx).
func (f ProviderFunc) ListPlants(ctx context.Context) ([]Plant, error) {
	return f(ctx)
}

// Logger is the logging interface used by providers.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
