package crypto

import (
	"runtime"
	"sync/atomic"
	"unsafe"
)

// eraseSink receives a checksum of every erased buffer so the zeroing
// stores stay observable.
var eraseSink atomic.Uint64

// SecureErase overwrites b with zeros in a way the compiler cannot elide.
// Copies made elsewhere, e.g. by the runtime or in swap, are not reached.
func SecureErase(b []byte) {
	if len(b) == 0 {
		return
	}
	base := unsafe.Pointer(unsafe.SliceData(b))
	for i := range b {
		*(*byte)(unsafe.Add(base, i)) = 0
	}
	runtime.KeepAlive(b)

	var sum uint64
	for _, v := range b {
		sum += uint64(v)
	}
	eraseSink.Add(sum)
}
