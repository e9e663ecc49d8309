package model

import "fmt"

// ConfigError reports an invalid construction-time option. There is no
// silent fallback: an unrecognized or out-of-range option fails fast.
type ConfigError struct {
	Option string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Option, e.Reason)
}

// ShapeError reports an input tensor whose shape does not match the
// configured model shapes. Raised before any computation on the sample.
type ShapeError struct {
	Input string
	Want  string
	Got   string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape: %s: want %s, got %s", e.Input, e.Want, e.Got)
}
