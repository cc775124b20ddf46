package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/finsight/finsight/pkg/errmodel"
)

// Outcome is the uniform result of one capability invocation: a success
// payload or a structured error, never both, never a raised error.
type Outcome struct {
	Payload any
	Err     *errmodel.Error
}

// IsError reports whether the outcome is a failure.
func (o Outcome) IsError() bool { return o.Err != nil }

// Dispatcher routes capability names to tools and normalizes every failure
// mode into an Outcome. It is stateless; all state lives in the tools'
// collaborators.
type Dispatcher struct {
	registry *Registry
	log      *slog.Logger
	tracer   trace.Tracer
}

// NewDispatcher creates a dispatcher over the registry.
func NewDispatcher(registry *Registry, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		registry: registry,
		log:      log,
		tracer:   otel.Tracer("finsight/agent"),
	}
}

// Invoke executes one capability call. An unknown name fails without invoking
// anything; schema violations fail before the tool runs; tool errors and
// panics become CapabilityFailure. Invoke never returns a Go error: the model
// is expected to read the error payload and adapt.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args map[string]any) (out Outcome) {
	ctx, span := d.tracer.Start(ctx, "dispatch",
		trace.WithAttributes(attribute.String("capability", name)))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("capability panicked", "capability", name, "panic", r)
			out = Outcome{Err: errmodel.CapabilityFailure(name, fmt.Sprintf("panic: %v", r))}
		}
		if out.IsError() {
			span.SetAttributes(attribute.String("error_code", out.Err.Code))
		}
	}()

	tool, ok := d.registry.Resolve(name)
	if !ok {
		d.log.Warn("unknown capability requested", "capability", name)
		return Outcome{Err: errmodel.UnknownCapability(name)}
	}
	if err := validateArgs(d.registry.schema(name), args); err != nil {
		d.log.Warn("invalid arguments", "capability", name, "error", err)
		return Outcome{Err: errmodel.InvalidArguments(name, err.Error())}
	}

	payload, err := tool.Call(ctx, args)
	if err != nil {
		d.log.Warn("capability failed", "capability", name, "error", err)
		return Outcome{Err: errmodel.CapabilityFailure(name, err.Error())}
	}
	d.log.Debug("capability succeeded", "capability", name)
	return Outcome{Payload: payload}
}

// renderedError is the canonical error payload shape fed back to the model.
type renderedError struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

// Render serializes an outcome into the canonical text included in a tool
// results turn. Deterministic for a given outcome; if serialization itself
// fails it degrades to a plain string conversion rather than failing.
func (d *Dispatcher) Render(o Outcome) string {
	if o.IsError() {
		var re renderedError
		re.Error.Kind = o.Err.Code
		re.Error.Message = o.Err.Message
		b, err := json.MarshalIndent(re, "", "  ")
		if err != nil {
			return fmt.Sprintf("error (%s): %s", o.Err.Code, o.Err.Message)
		}
		return string(b)
	}
	b, err := json.MarshalIndent(o.Payload, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", o.Payload)
	}
	return string(b)
}
