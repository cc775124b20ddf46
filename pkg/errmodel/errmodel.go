// Package errmodel defines the compact error payload used across the agent.
// Capability-level errors are recovered at the dispatcher and fed back into
// the conversation; loop-level errors terminate the current run with a
// user-facing message.
package errmodel

import (
	"encoding/json"
	"errors"
	"strings"
)

// Category values for compact errors.
const (
	CategoryCapability = "capability"
	CategoryProvider   = "provider"
	CategorySystem     = "system"
)

// Code values. The capability codes are recovered at the dispatcher boundary
// and returned to the model as tool results; the provider codes terminate the
// current run.
const (
	CodeUnknownCapability = "unknown_capability"
	CodeInvalidArguments  = "invalid_arguments"
	CodeCapabilityFailure = "capability_failure"
	CodeProviderError     = "provider_error"
	CodeTimeout           = "timeout"
	CodeMaxIterations     = "max_iterations"
)

// Error is the compact error payload used internally and serialized into
// tool-result turns. It implements the error interface.
type Error struct {
	Category string         `json:"category"`
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Context  map[string]any `json:"context,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// New constructs a new compact error.
func New(category, code, message string, ctx map[string]any) *Error {
	ce := &Error{Category: category, Code: code, Message: truncate(message, 512)}
	if len(ctx) > 0 {
		ce.Context = truncateContext(ctx)
	}
	return ce
}

// From converts any error into a compact Error. If err is already *Error, it's returned as-is.
func From(err error) *Error {
	var ce *Error
	if err == nil {
		return nil
	}
	if errors.As(err, &ce) {
		return ce
	}
	return &Error{Category: CategorySystem, Code: "internal", Message: truncate(err.Error(), 512)}
}

// Convenience constructors.

func UnknownCapability(name string) *Error {
	return New(CategoryCapability, CodeUnknownCapability, "capability not registered: "+name, map[string]any{"capability": name})
}

func InvalidArguments(name, message string) *Error {
	return New(CategoryCapability, CodeInvalidArguments, message, map[string]any{"capability": name})
}

func CapabilityFailure(name, message string) *Error {
	return New(CategoryCapability, CodeCapabilityFailure, message, map[string]any{"capability": name})
}

// Provider wraps a completion-provider transport or auth failure.
func Provider(message string) *Error {
	return New(CategoryProvider, CodeProviderError, message, nil)
}

// Timeout marks a completion request that exceeded its deadline.
func Timeout(message string) *Error {
	return New(CategoryProvider, CodeTimeout, message, nil)
}

// IsCategory checks if err belongs to a specific category.
func IsCategory(err error, category string) bool {
	ce := From(err)
	return ce != nil && strings.EqualFold(ce.Category, category)
}

// IsCode checks if err carries a specific code.
func IsCode(err error, code string) bool {
	ce := From(err)
	return ce != nil && ce.Code == code
}

// truncate trims a string to max characters.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// truncateContext trims long string values in the context map.
func truncateContext(ctx map[string]any) map[string]any {
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		switch t := v.(type) {
		case string:
			out[k] = truncate(t, 256)
		default:
			b, err := json.Marshal(t)
			if err == nil && len(b) > 0 {
				s := string(b)
				if len(s) > 256 {
					s = truncate(s, 256)
				}
				out[k] = s
			} else {
				out[k] = t
			}
		}
	}
	return out
}
