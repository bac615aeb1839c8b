package cache

// Nop is a Cache that never holds anything. Use it to run a sequence
// without a lookaside layer.
type Nop[K comparable, V any] struct{}

func (n *Nop[K, V]) Get(K) (v V, ok bool) { return v, false }

func (n *Nop[K, V]) Put(K, V) {}

func (n *Nop[K, V]) Delete(K) {}

func NewNop[K comparable, V any]() *Nop[K, V] {
	return &Nop[K, V]{}
}
