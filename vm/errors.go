package vm

import (
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Runtime errors
// ---------------------------------------------------------------------------

var errNoCompiler = errors.New("no compiler attached to VM")

// TraceFrame is one line of a runtime traceback.
type TraceFrame struct {
	Line     int
	Function string
	Module   string
}

// RuntimeError is a fatal fault raised while executing bytecode. Trace
// holds the active frames at the time of the fault, innermost first.
type RuntimeError struct {
	Message string
	Trace   []TraceFrame
}

// Error returns the fault message.
func (e *RuntimeError) Error() string {
	return e.Message
}

// Traceback formats the error the way it is reported to the user, with
// the most recent call last.
func (e *RuntimeError) Traceback() string {
	var sb strings.Builder
	sb.WriteString("Traceback (most recent call last):\n")
	for i := len(e.Trace) - 1; i >= 0; i-- {
		f := e.Trace[i]
		fmt.Fprintf(&sb, "  File %q, line %d, in %s\n", f.Module, f.Line, f.Function)
	}
	sb.WriteString(e.Message)
	return sb.String()
}

// runtimeError records a fault, reports it and unwinds the VM to an empty
// state. The caller must stop executing and return.
func (vm *VM) runtimeError(format string, args ...any) {
	err := &RuntimeError{Message: fmt.Sprintf(format, args...)}

	for i := len(vm.frames) - 1; i >= 0; i-- {
		frame := &vm.frames[i]
		fn := frame.closure.Function
		// ip has already advanced past the faulting instruction.
		line := fn.Chunk.LineAt(frame.ip - 1)
		err.Trace = append(err.Trace, TraceFrame{
			Line:     line,
			Function: functionLabel(fn),
			Module:   moduleLabel(fn.Module),
		})
	}

	vm.lastErr = err
	fmt.Fprintln(vm.stderr, err.Traceback())
	vmLog.Debugf("runtime error: %s", err.Message)
	vm.resetStack()
}

func functionLabel(fn *ObjFunction) string {
	if fn.Kind == FunctionTopLevel {
		return "<module>"
	}
	if fn.Name == nil {
		return "<anonymous>"
	}
	return fn.Name.Chars + "()"
}

func moduleLabel(m *ObjModule) string {
	if m == nil {
		return "<unknown>"
	}
	if m.Path != nil {
		return m.Path.Chars
	}
	return m.Name.Chars
}

// Fail records a runtime error from inside a native and returns Empty,
// the value a native hands back to signal failure:
//
//	return v.Fail("expected %d arguments", 1)
func (vm *VM) Fail(format string, args ...any) Value {
	vm.pendingErr = fmt.Sprintf(format, args...)
	return Empty
}
