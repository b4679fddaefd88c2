// Package buffer provides the fixed-length numeric buffers shared by
// workload generators, reference executors, device plans and validators.
package buffer

import "fmt"

// Kind is the element type of a Buffer.
type Kind int

const (
	KindInt32 Kind = iota
	KindFloat32
	KindInt16
)

func (k Kind) String() string {
	switch k {
	case KindInt32:
		return "int32"
	case KindFloat32:
		return "float32"
	case KindInt16:
		return "int16"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Size returns the element size in bytes.
func (k Kind) Size() int {
	switch k {
	case KindInt16:
		return 2
	default:
		return 4
	}
}

// Bytes returns the total size of bufs in bytes.
func Bytes(bufs ...Buffer) uint64 {
	var n uint64
	for _, b := range bufs {
		n += uint64(b.Len() * b.Kind().Size())
	}

	return n
}

// Buffer is an indexable numeric buffer with a length fixed at creation.
// Implementations are plain slices, so callers that know the concrete
// type index it directly and everything else goes through At.
type Buffer interface {
	Len() int
	Kind() Kind
	// At returns element i widened to float64.
	At(i int) float64
	// Fill sets every element to v converted to the element type.
	Fill(v float64)
	// Clone returns an independent copy.
	Clone() Buffer
	// CopyFrom copies src into the receiver. Both must have the same
	// kind and length.
	CopyFrom(src Buffer) error
}

// Int32 is a buffer of 32-bit integers.
type Int32 []int32

// Float32 is a buffer of single-precision floats.
type Float32 []float32

// Int16 is a buffer of 16-bit integers.
type Int16 []int16

// New allocates a zeroed buffer of the given kind and length.
func New(kind Kind, n int) (Buffer, error) {
	if n < 0 {
		return nil, fmt.Errorf("buffer length %d is negative", n)
	}

	switch kind {
	case KindInt32:
		return make(Int32, n), nil
	case KindFloat32:
		return make(Float32, n), nil
	case KindInt16:
		return make(Int16, n), nil
	default:
		return nil, fmt.Errorf("unknown buffer kind %v", kind)
	}
}

func (b Int32) Len() int           { return len(b) }
func (b Int32) Kind() Kind         { return KindInt32 }
func (b Int32) At(i int) float64   { return float64(b[i]) }
func (b Float32) Len() int         { return len(b) }
func (b Float32) Kind() Kind       { return KindFloat32 }
func (b Float32) At(i int) float64 { return float64(b[i]) }
func (b Int16) Len() int           { return len(b) }
func (b Int16) Kind() Kind         { return KindInt16 }
func (b Int16) At(i int) float64   { return float64(b[i]) }

func (b Int32) Fill(v float64) {
	for i := range b {
		b[i] = int32(v)
	}
}

func (b Float32) Fill(v float64) {
	for i := range b {
		b[i] = float32(v)
	}
}

func (b Int16) Fill(v float64) {
	for i := range b {
		b[i] = int16(v)
	}
}

func (b Int32) Clone() Buffer   { return append(Int32(nil), b...) }
func (b Float32) Clone() Buffer { return append(Float32(nil), b...) }
func (b Int16) Clone() Buffer   { return append(Int16(nil), b...) }

func (b Int32) CopyFrom(src Buffer) error {
	s, ok := src.(Int32)
	if !ok || len(s) != len(b) {
		return shapeError(b, src)
	}

	copy(b, s)

	return nil
}

func (b Float32) CopyFrom(src Buffer) error {
	s, ok := src.(Float32)
	if !ok || len(s) != len(b) {
		return shapeError(b, src)
	}

	copy(b, s)

	return nil
}

func (b Int16) CopyFrom(src Buffer) error {
	s, ok := src.(Int16)
	if !ok || len(s) != len(b) {
		return shapeError(b, src)
	}

	copy(b, s)

	return nil
}

// Equal reports whether a and b have the same kind, length and elements.
// Elements are compared by value, so NaN never equals NaN.
func Equal(a, b Buffer) bool {
	if a.Kind() != b.Kind() || a.Len() != b.Len() {
		return false
	}

	for i := 0; i < a.Len(); i++ {
		if a.At(i) != b.At(i) {
			return false
		}
	}

	return true
}

func shapeError(dst, src Buffer) error {
	return fmt.Errorf("copy %s[%d] into %s[%d]: shape mismatch",
		src.Kind(), src.Len(), dst.Kind(), dst.Len())
}
