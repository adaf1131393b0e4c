package respenvelope

import (
	"fmt"
	"runtime"
)

const maxStackDepth = 32

// Frame is one entry of a captured call stack.
type Frame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// String formats the frame as file:line.
func (f Frame) String() string {
	return fmt.Sprintf("%s:%d", f.File, f.Line)
}

// StackTracer is implemented by failures that captured the call stack at
// the point they were raised.
type StackTracer interface {
	StackTrace() []Frame
}

// stack is embedded by failure types to record where they were created.
type stack struct {
	frames []Frame
}

// StackTrace returns the captured frames, innermost first.
func (s stack) StackTrace() []Frame {
	return s.frames
}

// callers captures the stack, skipping skip frames above its caller.
func callers(skip int) stack {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return stack{}
	}

	frames := runtime.CallersFrames(pcs[:n])
	out := make([]Frame, 0, n)
	for {
		f, more := frames.Next()
		out = append(out, Frame{Function: f.Function, File: f.File, Line: f.Line})
		if !more {
			break
		}
	}
	return stack{frames: out}
}
