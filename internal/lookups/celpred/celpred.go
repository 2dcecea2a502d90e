// Package celpred compiles CEL expressions into lookup predicates.
//
// The expression sees the resolved field value as the variable `value` and
// must produce a boolean, e.g. `value > 2 && value < 10` or
// `value.startsWith("ala")`. Evaluation errors count as a non-match.
package celpred

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/solatis/lifter/internal/lookups"
	"github.com/solatis/lifter/internal/resolve"
)

// Compiler compiles and caches programs for one environment.
type Compiler struct {
	env      *cel.Env
	prgCache sync.Map // map[string]cel.Program
}

// NewCompiler creates a compiler with `value` declared as a dynamic variable.
func NewCompiler() (*Compiler, error) {
	env, err := cel.NewEnv(cel.Variable("value", cel.DynType))
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Compiler{env: env}, nil
}

// Compile returns a predicate evaluating expression against a value.
func (c *Compiler) Compile(expression string) (lookups.Predicate, error) {
	prg, err := c.program(expression)
	if err != nil {
		return nil, err
	}
	return func(value any) bool {
		if value == resolve.Missing {
			return false
		}
		if seq, ok := value.(resolve.Sequence); ok {
			value = []any(seq)
		}
		out, _, err := prg.Eval(map[string]any{"value": value})
		if err != nil {
			return false
		}
		result, ok := out.Value().(bool)
		return ok && result
	}, nil
}

// Lookup compiles expression into a test lookup keyed by its source, so
// queries built from it can be cached.
func (c *Compiler) Lookup(expression string) (lookups.Lookup, error) {
	pred, err := c.Compile(expression)
	if err != nil {
		return lookups.Lookup{}, err
	}
	return lookups.Lookup{Kind: lookups.KindTest, Test: pred, Key: "cel:" + expression}, nil
}

func (c *Compiler) program(expression string) (cel.Program, error) {
	if val, ok := c.prgCache.Load(expression); ok {
		return val.(cel.Program), nil
	}

	ast, issues := c.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if kind := ast.OutputType().Kind(); kind != types.BoolKind && kind != types.DynKind {
		return nil, fmt.Errorf("expression must return bool, got %v", ast.OutputType())
	}

	prg, err := c.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program construction error: %w", err)
	}
	c.prgCache.Store(expression, prg)
	return prg, nil
}
