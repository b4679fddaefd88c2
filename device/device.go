// Package device wraps a precompiled kernel entry point, its data bindings
// and its launch geometry into a plan that can be executed repeatedly.
package device

import (
	"context"
	"fmt"

	"github.com/weiihann/kernbench/buffer"
)

// Access declares how a binding moves between host and device.
type Access int

const (
	// AccessNone marks scalars passed by value.
	AccessNone Access = iota
	// ReadOnly buffers are copied to the device before each execution.
	ReadOnly
	// WriteOnly buffers are copied back to the host after each execution.
	WriteOnly
	// ReadWrite buffers are copied in both directions.
	ReadWrite
)

func (a Access) String() string {
	switch a {
	case AccessNone:
		return "NONE"
	case ReadOnly:
		return "READ_ONLY"
	case WriteOnly:
		return "WRITE_ONLY"
	case ReadWrite:
		return "READ_WRITE"
	default:
		return fmt.Sprintf("Access(%d)", int(a))
	}
}

func (a Access) copiesIn() bool  { return a == ReadOnly || a == ReadWrite }
func (a Access) copiesOut() bool { return a == WriteOnly || a == ReadWrite }

// Binding pairs a buffer or an int32/float32 scalar with an access mode.
type Binding struct {
	Name   string
	Value  any
	Access Access
}

// Buffer binds b with the given access mode.
func Buffer(name string, b buffer.Buffer, access Access) Binding {
	return Binding{Name: name, Value: b, Access: access}
}

// Scalar binds an int32 or float32 value by value.
func Scalar(name string, v any) Binding {
	return Binding{Name: name, Value: v, Access: AccessNone}
}

// Kernel identifies a kernel by its source location and entry symbol.
type Kernel struct {
	Path  string `json:"path"`
	Entry string `json:"entry"`
}

func (k Kernel) String() string {
	return fmt.Sprintf("%s (%s)", k.Entry, k.Path)
}

// Plan is a kernel bound to its data and geometry.
type Plan interface {
	// Execute runs the kernel once and blocks until the dispatch and
	// its host transfers have completed. Bound buffers may change
	// between calls; the bindings themselves never do.
	Execute() error
	// Release frees device-side resources. It is safe to call more
	// than once.
	Release() error
}

// Executor builds plans for a device.
type Executor interface {
	// BuildPlan resolves kernel and binds it. A nil geometry lets the
	// executor pick one from the bindings.
	BuildPlan(ctx context.Context, k Kernel, bindings []Binding, geom *Geometry) (Plan, error)
}

// Args are the device-side values handed to a kernel port, in binding
// order.
type Args []any

// Int32 returns argument i as an int32 buffer.
func (a Args) Int32(i int) buffer.Int32 { return a[i].(buffer.Int32) }

// Float32 returns argument i as a float32 buffer.
func (a Args) Float32(i int) buffer.Float32 { return a[i].(buffer.Float32) }

// Int16 returns argument i as an int16 buffer.
func (a Args) Int16(i int) buffer.Int16 { return a[i].(buffer.Int16) }

// Int returns scalar argument i.
func (a Args) Int(i int) int { return int(a[i].(int32)) }

// Float returns scalar argument i.
func (a Args) Float(i int) float32 { return a[i].(float32) }
