package ring

// Ring is a growable FIFO ring buffer. The zero value is an empty ring.
type Ring[T any] struct {
	buf    []T
	head   int
	length int
}

func MakeRing[T any](capacity int) Ring[T] {
	return Ring[T]{
		buf: make([]T, capacity),
	}
}

func NewRing[T any](capacity int) *Ring[T] {
	r := MakeRing[T](capacity)
	return &r
}

func (r *Ring[T]) index(n int) int {
	i := r.head + n
	if i >= len(r.buf) {
		i -= len(r.buf)
	}
	return i
}

func (r *Ring[T]) grow() {
	size := len(r.buf) * 2
	if size == 0 {
		size = 4
	}

	buf := make([]T, size)
	for i := 0; i < r.length; i++ {
		buf[i] = r.buf[r.index(i)]
	}
	r.head = 0
	r.buf = buf
}

// PushBack appends value to the end of the ring.
func (r *Ring[T]) PushBack(value T) {
	if r.length == len(r.buf) {
		r.grow()
	}
	r.buf[r.index(r.length)] = value
	r.length++
}

// PopFront removes and returns the oldest value.
func (r *Ring[T]) PopFront() (T, bool) {
	var zero T
	if r.length == 0 {
		return zero, false
	}

	v := r.buf[r.head]
	// release the reference so popped jobs can be collected
	r.buf[r.head] = zero
	r.head = r.index(1)
	r.length--
	if r.length == 0 {
		r.head = 0
	}
	return v, true
}

// PeekFront returns the oldest value without removing it.
func (r *Ring[T]) PeekFront() (T, bool) {
	if r.length == 0 {
		return *new(T), false
	}
	return r.buf[r.head], true
}

// Get returns the n-th oldest value.
func (r *Ring[T]) Get(n int) T {
	if n < 0 || n >= r.length {
		panic("index out of range")
	}
	return r.buf[r.index(n)]
}

// Clear empties the ring, dropping every reference it held.
func (r *Ring[T]) Clear() {
	clear(r.buf)
	r.head = 0
	r.length = 0
}

func (r *Ring[T]) Length() int {
	return r.length
}

func (r *Ring[T]) Capacity() int {
	return len(r.buf)
}
