package lifecycle

import "context"

// Component is a long-running part of the server managed by a Manager.
type Component interface {
	// Start brings the component up. It must not block past startup.
	Start(ctx context.Context) error
	// Stop releases the component within the deadline of ctx.
	Stop(ctx context.Context) error
	// Name identifies the component in logs and errors.
	Name() string
}

// Func adapts a pair of functions to a Component. A nil StopFn is a no-op.
type Func struct {
	ComponentName string
	StartFn       func(ctx context.Context) error
	StopFn        func(ctx context.Context) error
}

// Start implements Component
func (f *Func) Start(ctx context.Context) error {
	if f.StartFn == nil {
		return nil
	}
	return f.StartFn(ctx)
}

// Stop implements Component
func (f *Func) Stop(ctx context.Context) error {
	if f.StopFn == nil {
		return nil
	}
	return f.StopFn(ctx)
}

// Name implements Component
func (f *Func) Name() string {
	return f.ComponentName
}
