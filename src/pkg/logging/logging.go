// Package logging wires the zap logger the way the rest of the module's
// entrypoints expect to receive one: a thin Logger capability plus a
// constructor that picks development or production defaults.
package logging

import "go.uber.org/zap"

// Logger is the capability the buffer pool core and its surrounding
// components log through. *zap.SugaredLogger satisfies it directly.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Sync() error
}

var _ Logger = (*zap.SugaredLogger)(nil)

// New builds a Logger appropriate for the given environment name. Anything
// other than "dev"/"development" gets production defaults (JSON, sampled).
func New(environment string) (Logger, error) {
	switch environment {
	case "dev", "development":
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		return l.Sugar(), nil
	default:
		l, err := zap.NewProduction()
		if err != nil {
			return nil, err
		}
		return l.Sugar(), nil
	}
}

// Nop returns a Logger that discards everything, for tests that don't care.
func Nop() Logger {
	return zap.NewNop().Sugar()
}
