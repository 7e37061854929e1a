package auth

import "fmt"

// ConfigurationError reports a missing or invalid security setting. It is
// raised once while the process starts and is never produced per request.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s %s", e.Setting, e.Reason)
}
