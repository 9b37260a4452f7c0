package mqttv5

import "sync"

// maxPooledBufferSize bounds how large an encode scratch buffer can grow
// before it is discarded instead of returned to the pool, so one oversized
// publish doesn't pin a large allocation in the pool indefinitely.
const maxPooledBufferSize = 64 * 1024

var readerPool = sync.Pool{New: func() any { return new(bytesReader) }}
var bufferPool = sync.Pool{New: func() any { return new(bytesBuffer) }}

// getBytesReader borrows a bytesReader from the pool and points it at data.
func getBytesReader(data []byte) *bytesReader {
	r := readerPool.Get().(*bytesReader)
	r.data = data
	r.pos = 0
	return r
}

// putBytesReader clears and returns r to the pool.
func putBytesReader(r *bytesReader) {
	if r == nil {
		return
	}
	r.data = nil
	r.pos = 0
	readerPool.Put(r)
}

// getBytesBuffer borrows an empty bytesBuffer from the pool.
func getBytesBuffer() *bytesBuffer {
	b := bufferPool.Get().(*bytesBuffer)
	b.data = b.data[:0]
	return b
}

// putBytesBuffer returns b to the pool unless its backing array has grown
// past maxPooledBufferSize, in which case it is left for the GC instead.
func putBytesBuffer(b *bytesBuffer) {
	if b == nil || cap(b.data) > maxPooledBufferSize {
		return
	}
	b.data = b.data[:0]
	bufferPool.Put(b)
}
