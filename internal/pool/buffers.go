// Package pool provides sync.Pool-backed byte buffer pools to reduce GC
// pressure in the UDP query path, where every packet in and out needs a
// scratch buffer.
package pool

import "sync"

const (
	// Buffer sizes for different use cases
	SmallBufferSize  = 512   // UDP DNS queries (most common)
	MediumBufferSize = 4096  // EDNS0 responses
	LargeBufferSize  = 65535 // Maximum DNS message size
)

// SmallBufferPool for UDP queries (512 bytes)
var SmallBufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, SmallBufferSize)
		return &buf
	},
}

// GetSmallBuffer gets a 512-byte buffer
func GetSmallBuffer() []byte {
	bufPtr := SmallBufferPool.Get().(*[]byte)
	return (*bufPtr)[:SmallBufferSize]
}

// PutSmallBuffer returns a buffer to the pool
func PutSmallBuffer(buf []byte) {
	if cap(buf) < SmallBufferSize {
		return // Don't pool undersized buffers
	}
	buf = buf[:cap(buf)] // Reset length to capacity
	SmallBufferPool.Put(&buf)
}

// MediumBufferPool for EDNS0 responses (4096 bytes)
var MediumBufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, MediumBufferSize)
		return &buf
	},
}

// GetMediumBuffer gets a 4096-byte buffer
func GetMediumBuffer() []byte {
	bufPtr := MediumBufferPool.Get().(*[]byte)
	return (*bufPtr)[:MediumBufferSize]
}

// PutMediumBuffer returns a buffer to the pool
func PutMediumBuffer(buf []byte) {
	if cap(buf) < MediumBufferSize {
		return
	}
	buf = buf[:cap(buf)]
	MediumBufferPool.Put(&buf)
}

// LargeBufferPool for large responses (65535 bytes)
var LargeBufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, LargeBufferSize)
		return &buf
	},
}

// GetLargeBuffer gets a 65535-byte buffer
func GetLargeBuffer() []byte {
	bufPtr := LargeBufferPool.Get().(*[]byte)
	return (*bufPtr)[:LargeBufferSize]
}

// PutLargeBuffer returns a buffer to the pool
func PutLargeBuffer(buf []byte) {
	if cap(buf) < LargeBufferSize {
		return
	}
	buf = buf[:cap(buf)]
	LargeBufferPool.Put(&buf)
}

// GetBuffer intelligently selects the right buffer size
func GetBuffer(size int) []byte {
	switch {
	case size <= SmallBufferSize:
		return GetSmallBuffer()
	case size <= MediumBufferSize:
		return GetMediumBuffer()
	default:
		return GetLargeBuffer()
	}
}

// PutBuffer returns a buffer to the appropriate pool
func PutBuffer(buf []byte) {
	capacity := cap(buf)
	switch {
	case capacity == SmallBufferSize:
		PutSmallBuffer(buf)
	case capacity == MediumBufferSize:
		PutMediumBuffer(buf)
	case capacity == LargeBufferSize:
		PutLargeBuffer(buf)
	// else: don't pool weird sizes
	}
}

// WriterPool holds 8 KB scratch buffers for buffered writers. Nothing
// else in this module draws from it.
var WriterPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, 8192)
		return &buf
	},
}

// GetWriterBuffer gets an 8KB writer buffer
func GetWriterBuffer() []byte {
	bufPtr := WriterPool.Get().(*[]byte)
	return *bufPtr
}

// PutWriterBuffer returns writer buffer to pool
func PutWriterBuffer(buf []byte) {
	if cap(buf) >= 8192 {
		WriterPool.Put(&buf)
	}
}

// ResetPools clears all pools (useful for testing or memory pressure)
func ResetPools() {
	SmallBufferPool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, SmallBufferSize)
			return &buf
		},
	}

	MediumBufferPool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, MediumBufferSize)
			return &buf
		},
	}

	LargeBufferPool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, LargeBufferSize)
			return &buf
		},
	}

	WriterPool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, 8192)
			return &buf
		},
	}
}
