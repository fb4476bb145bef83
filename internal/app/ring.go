package app

// ring is a fixed-capacity circular buffer. Once full, a push overwrites the
// oldest entry and reports the evicted value.
type ring[T any] struct {
	buf   []T
	start int
	count int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &ring[T]{buf: make([]T, capacity)}
}

// push appends v. When the buffer is full the oldest entry is dropped and
// returned with ok=true.
func (r *ring[T]) push(v T) (evicted T, ok bool) {
	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = v
		r.count++
		return evicted, false
	}
	evicted = r.buf[r.start]
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
	return evicted, true
}

// newestFirst returns up to n entries, newest first. n <= 0 returns all.
func (r *ring[T]) newestFirst(n int) []T {
	if n <= 0 || n > r.count {
		n = r.count
	}
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		idx := (r.start + r.count - 1 - i) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out
}

// each visits entries oldest first, allowing in-place mutation. Returning
// false stops the walk.
func (r *ring[T]) each(fn func(*T) bool) {
	for i := 0; i < r.count; i++ {
		if !fn(&r.buf[(r.start+i)%len(r.buf)]) {
			return
		}
	}
}

func (r *ring[T]) len() int { return r.count }

func (r *ring[T]) clear() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.start = 0
	r.count = 0
}
