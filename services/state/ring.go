package state

// ring is a fixed-capacity FIFO that silently evicts its oldest entry on overflow.
// It is not safe for concurrent use; the Store guards it.
type ring[T any] struct {
	buf   []T
	start int
	size  int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) push(v T) {
	if len(r.buf) == 0 {
		return
	}
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// last returns up to limit most recent entries in append order.
// A non-positive limit returns every entry.
func (r *ring[T]) last(limit int) []T {
	n := r.size
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]T, n)
	skip := r.size - n
	for i := 0; i < n; i++ {
		out[i] = r.buf[(r.start+skip+i)%len(r.buf)]
	}
	return out
}
