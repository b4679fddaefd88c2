package kernels

import (
	"github.com/weiihann/kernbench/buffer"
	"github.com/weiihann/kernbench/device"
)

func piParams() []device.Param {
	return []device.Param{
		device.BufferParam("input", buffer.KindFloat32),
		device.BufferParam("result", buffer.KindFloat32),
	}
}

// leibniz returns (-1)^(i+1) / (2i-1) rounded to float32.
func leibniz(i int) float32 {
	v := 1 / float64(2*i-1)
	if i%2 == 0 {
		v = -v
	}

	return float32(v)
}

// piPort adds one series term per work-item straight into result[0].
func piPort() device.Port {
	return device.Port{
		Entry:  EntryPi,
		Params: piParams(),
		Thread: func(tid device.ThreadID, args device.Args) {
			input, result := args.Float32(0), args.Float32(1)

			i := tid.GlobalX()
			if i < 1 || i >= len(input) {
				return
			}

			atomicAddFloat32(&result[0], input[i]+leibniz(i))
		},
	}
}

// piGroupedPort sums the terms of a work-group first and adds the
// partial sum once per group.
func piGroupedPort() device.Port {
	return device.Port{
		Entry:   EntryPi,
		Variant: VariantGrouped,
		Params:  piParams(),
		Group: func(g device.Group, args device.Args) {
			input, result := args.Float32(0), args.Float32(1)

			var partial float32
			for lx := 0; lx < g.LocalDim.X; lx++ {
				i := g.GlobalX(lx)
				if i < 1 || i >= len(input) {
					continue
				}
				partial += input[i] + leibniz(i)
			}

			atomicAddFloat32(&result[0], partial)
		},
	}
}
