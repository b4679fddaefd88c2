package kernels

import (
	"sync/atomic"

	"github.com/weiihann/kernbench/buffer"
	"github.com/weiihann/kernbench/device"
)

// bfsPort relaxes one edge per work-item: X is the source node, Y the
// target. Work-items run concurrently, so the depth and flag updates are
// atomic. A node reached in this sweep holds level+1 and never matches
// level, which keeps each sweep to exactly one level.
func bfsPort() device.Port {
	return device.Port{
		Entry: EntryBFS,
		Params: []device.Param{
			device.BufferParam("vertices", buffer.KindInt32),
			device.BufferParam("adjacencyMatrix", buffer.KindInt32),
			device.IntParam("numNodes"),
			device.BufferParam("modify", buffer.KindInt32),
			device.BufferParam("currentDepth", buffer.KindInt32),
		},
		Thread: func(tid device.ThreadID, args device.Args) {
			vertices, adj := args.Int32(0), args.Int32(1)
			n := args.Int(2)
			modify, depth := args.Int32(3), args.Int32(4)

			from, to := tid.GlobalX(), tid.GlobalY()
			if from >= n || to >= n || adj[from*n+to] != 1 {
				return
			}

			level := depth[0]
			if atomic.LoadInt32(&vertices[from]) != level {
				return
			}

			if atomic.CompareAndSwapInt32(&vertices[to], -1, level+1) {
				atomic.StoreInt32(&modify[0], 0)
			}
		},
	}
}
