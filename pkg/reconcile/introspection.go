package reconcile

import (
	"github.com/aretw0/introspection"
)

// EngineState exposes internal state for observability.
type EngineState struct {
	Busy            bool   `json:"busy"`
	Merges          int64  `json:"merges"`
	Replaces        int64  `json:"replaces"`
	Failures        int64  `json:"failures"`
	DecisionTimeout string `json:"decision_timeout"`
}

// State implements introspection.Introspectable.
func (e *Engine) State() any {
	timeout := "none"
	if e.decisionTimeout > 0 {
		timeout = e.decisionTimeout.String()
	}
	return EngineState{
		Busy:            e.busy.Load(),
		Merges:          e.merges.Load(),
		Replaces:        e.replaces.Load(),
		Failures:        e.failures.Load(),
		DecisionTimeout: timeout,
	}
}

// ComponentType implements introspection.Component.
func (e *Engine) ComponentType() string {
	return "reconciler"
}

var _ introspection.Introspectable = (*Engine)(nil)
var _ introspection.Component = (*Engine)(nil)
