package pool

import "sync"

// int32SlicePool reuses the fixed-width frame vectors that the codec's
// history ring draws, three per dispatch pass, so repeated passes over a
// log (indexing, then chunk decodes) reuse them instead of reallocating.
var int32SlicePool = sync.Pool{
	New: func() any { return &[]int32{} },
}

// GetInt32Slice retrieves and resizes an int32 slice from the pool.
//
// The returned slice will have the exact length specified by the size parameter.
// If the pooled slice has insufficient capacity, a new slice will be allocated.
// The caller must call the returned cleanup function to return the slice to the pool.
//
// Example:
//
//	vec, cleanup := pool.GetInt32Slice(fieldCount)
//	defer cleanup()
//	// decode into vec...
func GetInt32Slice(size int) ([]int32, func()) {
	ptr, _ := int32SlicePool.Get().(*[]int32)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]int32, size)
		*ptr = slice
	} else {
		slice = slice[:size]
		*ptr = slice
	}

	return slice, func() { int32SlicePool.Put(ptr) }
}
