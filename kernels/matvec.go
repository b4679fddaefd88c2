package kernels

import (
	"github.com/weiihann/kernbench/buffer"
	"github.com/weiihann/kernbench/device"
)

func matvecParams() []device.Param {
	return []device.Param{
		device.BufferParam("matrix", buffer.KindFloat32),
		device.BufferParam("vector", buffer.KindFloat32),
		device.BufferParam("result", buffer.KindFloat32),
	}
}

// matvecPort computes one row per work-item. The row length is the
// vector length.
func matvecPort() device.Port {
	return device.Port{
		Entry:  EntryMatVec,
		Params: matvecParams(),
		Thread: func(tid device.ThreadID, args device.Args) {
			matrix, vector, result := args.Float32(0), args.Float32(1), args.Float32(2)
			n := len(vector)

			i := tid.GlobalX()
			if i >= len(result) {
				return
			}

			var sum float32
			for j := 0; j < n; j++ {
				sum += matrix[i*n+j] * vector[j]
			}
			result[i] = sum
		},
	}
}

func matvecUnrolledPort() device.Port {
	return device.Port{
		Entry:   EntryMatVec,
		Variant: VariantUnrolled,
		Params:  matvecParams(),
		Thread: func(tid device.ThreadID, args device.Args) {
			matrix, vector, result := args.Float32(0), args.Float32(1), args.Float32(2)
			n := len(vector)

			i := tid.GlobalX()
			if i >= len(result) {
				return
			}

			row := matrix[i*n : i*n+n]

			var sum float32
			j := 0
			for ; j+4 <= n; j += 4 {
				sum += row[j] * vector[j]
				sum += row[j+1] * vector[j+1]
				sum += row[j+2] * vector[j+2]
				sum += row[j+3] * vector[j+3]
			}
			for ; j < n; j++ {
				sum += row[j] * vector[j]
			}
			result[i] = sum
		},
	}
}

// matvecRowPort computes one output row per work-group. Each work-item
// accumulates a strided slice of the row into local memory, then the
// group reduces it pairwise.
func matvecRowPort() device.Port {
	return device.Port{
		Entry: EntryMatVecRow,
		Params: []device.Param{
			device.BufferParam("input", buffer.KindFloat32),
			device.BufferParam("output", buffer.KindFloat32),
			device.BufferParam("weights", buffer.KindFloat32),
			device.IntParam("inputDim"),
			device.IntParam("outputDim"),
			device.IntParam("localWorkGroupSize"),
		},
		Group: func(g device.Group, args device.Args) {
			input, output, weights := args.Float32(0), args.Float32(1), args.Float32(2)
			in, out := args.Int(3), args.Int(4)
			ls := min(args.Int(5), g.LocalDim.X)

			row := g.Idx.X
			if row >= out || ls <= 0 {
				return
			}

			local := make([]float32, ls)
			weightsRow := weights[row*in : row*in+in]

			for lid := 0; lid < ls; lid++ {
				var sum float32
				for j := lid; j < in; j += ls {
					sum += weightsRow[j] * input[j]
				}
				local[lid] = sum
			}

			for active := ls; active > 1; {
				half := (active + 1) / 2
				for lid := 0; lid+half < active; lid++ {
					local[lid] += local[lid+half]
				}
				active = half
			}

			output[row] = local[0]
		},
	}
}
