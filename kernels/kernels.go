// Package kernels holds the host ports of the kernel entry points the
// workloads dispatch, and the default kernel sources next to them.
package kernels

import (
	"fmt"
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/weiihann/kernbench/device"
)

// Entry symbols.
const (
	EntryBFS       = "runBFS"
	EntryMandel    = "mandelbrotTornado"
	EntryMatMul    = "matrixMultiplication"
	EntryMatVec    = "computeMatrixVector"
	EntryMatVecRow = "matrixVectorGeneric"
	EntryPi        = "computePi"
)

// Variants selected by `#pragma kernbench variant`.
const (
	VariantTiled    = "tiled"
	VariantUnrolled = "unrolled"
	VariantGrouped  = "grouped"
)

// Ports returns every built-in port.
func Ports() []device.Port {
	return []device.Port{
		bfsPort(),
		mandelbrotPort(),
		matmulPort(),
		matmulTiledPort(),
		matmulUnrolledPort(),
		matvecPort(),
		matvecUnrolledPort(),
		matvecRowPort(),
		piPort(),
		piGroupedPort(),
	}
}

// Register adds every built-in port to reg.
func Register(reg *device.Registry) error {
	for _, p := range Ports() {
		if err := reg.Register(p); err != nil {
			return fmt.Errorf("register built-in kernels: %w", err)
		}
	}

	return nil
}

// Default returns a registry holding the built-in ports.
func Default() *device.Registry {
	reg := device.NewRegistry()
	if err := Register(reg); err != nil {
		panic(err)
	}

	return reg
}

// atomicAddFloat32 adds v to *addr with a compare-and-swap loop over the
// bit pattern.
func atomicAddFloat32(addr *float32, v float32) {
	bits := (*uint32)(unsafe.Pointer(addr))

	for {
		old := atomic.LoadUint32(bits)
		sum := math.Float32frombits(old) + v

		if atomic.CompareAndSwapUint32(bits, old, math.Float32bits(sum)) {
			return
		}
	}
}
