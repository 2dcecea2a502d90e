// Package types provides the error taxonomy and limits shared across lifter
// components.
//
// Zero-dependency design: types.go and errors.go use only the standard library
// so every layer (resolver, lookups, stores, cache) can import them without
// pulling in transport or storage deps. ID utilities in ids.go import uuid.
package types

// Resource limits enforced by the query engine.
const (
	// MaxPathDepth prevents stack overflow during recursive attribute resolution.
	// 16 levels handles deeply nested records (a.b.c...) without degradation.
	MaxPathDepth = 16

	// MaxInOperands limits the operand list of an `in` lookup.
	// 1024 values keeps membership checks linear and querystrings bounded.
	MaxInOperands = 1024
)

// Action identifies what a query asks of a store.
type Action string

const (
	ActionSelect    Action = "select"
	ActionCount     Action = "count"
	ActionExists    Action = "exists"
	ActionValues    Action = "values"
	ActionAggregate Action = "aggregate"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionSelect, ActionCount, ActionExists, ActionValues, ActionAggregate:
		return true
	default:
		return false
	}
}

// Version is reported in the remote User-Agent. Overridden at build time
// with -ldflags "-X github.com/solatis/lifter/internal/types.Version=...".
var Version = "0.6.0"
