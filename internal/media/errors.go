package media

import "fmt"

// DecodeError reports an unreadable, corrupt or unsupported media stream.
// It is returned to the caller as-is; nothing in the core retries it.
type DecodeError struct {
	Op  string // what was being decoded, e.g. "image", "wav", "frame"
	Err error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("media decode %s failed", e.Op)
	}
	return fmt.Sprintf("media decode %s: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ConfigError reports an invalid construction parameter. Constructors return it
// so that a bad configuration never reaches the middle of a pipeline.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}
