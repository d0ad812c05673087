package util

import "sync"

// ChunkSize is the read size used by channel pumps. Command traffic is
// small, so a modest chunk keeps per-session memory low.
const ChunkSize = 512

// chunkPool holds scratch buffers for channel pump reads.
var chunkPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, ChunkSize)
		return &buf
	},
}

// GetChunk retrieves a scratch buffer. Return it with [PutChunk].
func GetChunk() *[]byte {
	return chunkPool.Get().(*[]byte)
}

// PutChunk returns a buffer to the pool.
func PutChunk(buf *[]byte) {
	if buf == nil {
		return
	}
	chunkPool.Put(buf)
}
