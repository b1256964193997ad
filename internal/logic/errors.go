package logic

import "fmt"

// ConfigError reports a sampling configuration that cannot be run.
// It is detected once at startup and is always fatal.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// TransportError reports a failed bus or network exchange.
type TransportError struct {
	// Op names the failed operation, e.g. "read light" or "publish".
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
