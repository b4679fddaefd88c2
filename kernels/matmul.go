package kernels

import (
	"github.com/weiihann/kernbench/buffer"
	"github.com/weiihann/kernbench/device"
)

func matmulParams() []device.Param {
	return []device.Param{
		device.BufferParam("a", buffer.KindFloat32),
		device.BufferParam("b", buffer.KindFloat32),
		device.BufferParam("c", buffer.KindFloat32),
		device.IntParam("size"),
	}
}

// matmulPort computes one output element per work-item.
func matmulPort() device.Port {
	return device.Port{
		Entry:  EntryMatMul,
		Params: matmulParams(),
		Thread: func(tid device.ThreadID, args device.Args) {
			a, b, c := args.Float32(0), args.Float32(1), args.Float32(2)
			n := args.Int(3)

			i, j := tid.GlobalX(), tid.GlobalY()
			if i >= n || j >= n {
				return
			}

			var sum float32
			for k := 0; k < n; k++ {
				sum += a[i*n+k] * b[k*n+j]
			}
			c[i*n+j] = sum
		},
	}
}

// matmulUnrolledPort walks k four steps at a time with a single
// accumulator, so the summation order matches the plain port.
func matmulUnrolledPort() device.Port {
	return device.Port{
		Entry:   EntryMatMul,
		Variant: VariantUnrolled,
		Params:  matmulParams(),
		Thread: func(tid device.ThreadID, args device.Args) {
			a, b, c := args.Float32(0), args.Float32(1), args.Float32(2)
			n := args.Int(3)

			i, j := tid.GlobalX(), tid.GlobalY()
			if i >= n || j >= n {
				return
			}

			row := a[i*n : i*n+n]

			var sum float32
			k := 0
			for ; k+4 <= n; k += 4 {
				sum += row[k] * b[k*n+j]
				sum += row[k+1] * b[(k+1)*n+j]
				sum += row[k+2] * b[(k+2)*n+j]
				sum += row[k+3] * b[(k+3)*n+j]
			}
			for ; k < n; k++ {
				sum += row[k] * b[k*n+j]
			}
			c[i*n+j] = sum
		},
	}
}

// matmulTiledPort computes a whole work-group tile at once, staging
// tiles of a and b the way a kernel would in local memory.
func matmulTiledPort() device.Port {
	return device.Port{
		Entry:   EntryMatMul,
		Variant: VariantTiled,
		Params:  matmulParams(),
		Group: func(g device.Group, args device.Args) {
			a, b, c := args.Float32(0), args.Float32(1), args.Float32(2)
			n := args.Int(3)

			tx, ty := g.LocalDim.X, g.LocalDim.Y
			tk := tx

			tileA := make([]float32, tx*tk)
			tileB := make([]float32, tk*ty)
			acc := make([]float32, tx*ty)

			for t := 0; t < n; t += tk {
				for lx := 0; lx < tx; lx++ {
					i := g.GlobalX(lx)
					for kk := 0; kk < tk; kk++ {
						var v float32
						if i < n && t+kk < n {
							v = a[i*n+t+kk]
						}
						tileA[lx*tk+kk] = v
					}
				}

				for kk := 0; kk < tk; kk++ {
					for ly := 0; ly < ty; ly++ {
						j := g.GlobalY(ly)
						var v float32
						if j < n && t+kk < n {
							v = b[(t+kk)*n+j]
						}
						tileB[kk*ty+ly] = v
					}
				}

				for lx := 0; lx < tx; lx++ {
					for ly := 0; ly < ty; ly++ {
						sum := acc[lx*ty+ly]
						for kk := 0; kk < tk && t+kk < n; kk++ {
							sum += tileA[lx*tk+kk] * tileB[kk*ty+ly]
						}
						acc[lx*ty+ly] = sum
					}
				}
			}

			for lx := 0; lx < tx; lx++ {
				i := g.GlobalX(lx)
				if i >= n {
					continue
				}
				for ly := 0; ly < ty; ly++ {
					if j := g.GlobalY(ly); j < n {
						c[i*n+j] = acc[lx*ty+ly]
					}
				}
			}
		},
	}
}
