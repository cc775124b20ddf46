// Package agent implements the tool-calling conversation loop: a registry of
// capabilities, a dispatcher that turns capability calls into uniform
// outcomes, an append-only conversation log, and the loop that drives
// completion rounds until the model finishes.
package agent

import "context"

// Descriptor describes one capability to the model: a unique name, guidance
// text, and a JSON schema for the input object. Immutable after registration.
type Descriptor struct {
	Name        string
	Description string
	InputSchema []byte
}

// Tool is a callable capability. Call receives the model-supplied arguments
// already schema-validated; it returns a JSON-serializable payload or an
// error, never panics by contract (the dispatcher recovers anyway).
type Tool interface {
	Descriptor() Descriptor
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Func adapts a function into a Tool.
type Func struct {
	Desc Descriptor
	Fn   func(ctx context.Context, args map[string]any) (any, error)
}

func (f Func) Descriptor() Descriptor { return f.Desc }

func (f Func) Call(ctx context.Context, args map[string]any) (any, error) {
	return f.Fn(ctx, args)
}
