package kernels

import (
	"github.com/weiihann/kernbench/buffer"
	"github.com/weiihann/kernbench/device"
)

const mandelbrotIterations = 10000

func mandelbrotPort() device.Port {
	return device.Port{
		Entry: EntryMandel,
		Params: []device.Param{
			device.IntParam("size"),
			device.BufferParam("output", buffer.KindInt16),
		},
		Thread: func(tid device.ThreadID, args device.Args) {
			size := args.Int(0)
			out := args.Int16(1)

			i, j := tid.GlobalX(), tid.GlobalY()
			if i >= size || j >= size {
				return
			}

			space := 2.0 / float32(size)
			out[i*size+j] = escape(float32(j)*space-1.5, float32(i)*space-1.0)
		},
	}
}

// escape returns the 0-255 intensity of c = cr + ci*i.
func escape(cr, ci float32) int16 {
	var zr, zi, zr2, zi2 float32

	y := 0
	for ; y < mandelbrotIterations && zr2+zi2 <= 4.0; y++ {
		zi = 2.0*zr*zi + ci
		zr = zr2 - zi2 + cr
		zi2 = zi * zi
		zr2 = zr * zr
	}

	return int16((y * 255) / mandelbrotIterations)
}
