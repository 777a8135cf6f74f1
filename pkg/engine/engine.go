// Package engine replays field command scripts. It wraps zygomys in a
// sandboxed environment whose builtins define mesh entities and computed
// fields in a field.Module, so that the output of Module.CommandScript can
// be read back to rebuild equivalent fields.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/chazu/cmgui/internal/logging"
	"github.com/chazu/cmgui/pkg/field"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a rejected field definition.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine evaluates scripts against field modules. Each call to Evaluate
// creates a fresh sandboxed environment, and calls are serialised.
type Engine struct {
	mu          sync.Mutex
	evaluations uint64
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluations returns how many scripts the engine has run.
func (e *Engine) Evaluations() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.evaluations
}

// Evaluate runs source against m. All field changes made by the script are
// batched into one change notification. Fields defined before a failing
// command are kept.
//
// Return semantics:
//   - On success: nil eval errors, nil error
//   - On parse or command failure: eval errors, nil error
//   - On a panic inside the interpreter: nil, error
func (e *Engine) Evaluate(source string, m *field.Module) (evalErrs []EvalError, err error) {
	if m == nil {
		return nil, fmt.Errorf("engine: %w: nil module", field.ErrInvalidArgument)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evaluations++

	defer func() {
		if r := recover(); r != nil {
			evalErrs = nil
			err = fmt.Errorf("panic during evaluation: %v", r)
		}
	}()

	m.BeginChange()
	defer m.EndChange()
	evalErrs = e.evaluate(source, m)
	if len(evalErrs) > 0 {
		logging.Logger().Warn("script evaluation failed", "errors", len(evalErrs), "first", evalErrs[0].Error())
	}
	return evalErrs, nil
}

// evaluate performs the zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string, m *field.Module) []EvalError {
	if strings.TrimSpace(source) == "" {
		return nil
	}

	// Sandbox mode prevents scripts from reaching the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, m)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return parseZygomysError(err)
	}
	if _, err := env.Run(); err != nil {
		return parseZygomysError(err)
	}
	return nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}
	if m := linePatternShort.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
