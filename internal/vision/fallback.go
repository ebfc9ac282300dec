package vision

import (
	"errors"
	"fmt"
	"log/slog"
)

// Fallback is an Interpreter that tries a sequence of providers in order and
// returns the first successful result. Provider failover is an interpreter
// concern only; callers see a single Interpreter capability.
type Fallback struct {
	interpreters []Interpreter
}

// NewFallback creates a Fallback over the given providers, tried in order.
func NewFallback(interpreters ...Interpreter) (*Fallback, error) {
	if len(interpreters) == 0 {
		return nil, errors.New("at least one interpreter is required")
	}
	return &Fallback{interpreters: interpreters}, nil
}

// InterpretReceipt tries each provider until one succeeds. If all fail, the
// errors are joined so the caller sees every upstream reason.
func (f *Fallback) InterpretReceipt(imageData []byte, contentType string) (*ParsedReceipt, error) {
	var errs []error
	for i, interpreter := range f.interpreters {
		parsed, err := interpreter.InterpretReceipt(imageData, contentType)
		if err == nil {
			return parsed, nil
		}
		slog.Warn("Interpreter provider failed", "provider", i, "error", err)
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("all interpreters failed: %w", errors.Join(errs...))
}

// Close closes every provider, returning the first error encountered.
func (f *Fallback) Close() error {
	var firstErr error
	for _, interpreter := range f.interpreters {
		if err := interpreter.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
