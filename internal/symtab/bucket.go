package symtab

// chainEntry is one link in a bucket's collision chain.
type chainEntry[T any] struct {
	hash  uint64
	key   string
	value *T
	next  *chainEntry[T]
}

// bucketArray is a fixed-size hash table: each bucket holds a
// singly-linked collision chain.
type bucketArray[T any] struct {
	buckets []*chainEntry[T]
	keyspace uint64
}

func newBucketArray[T any](keyspace uint64) *bucketArray[T] {
	return &bucketArray[T]{buckets: make([]*chainEntry[T], keyspace), keyspace: keyspace}
}

func (b *bucketArray[T]) index(hash uint64) uint64 {
	return hash % b.keyspace
}

// Insert adds value under key/hash, chaining onto any existing bucket
// entry (last-write-wins is not assumed — callers that want shadowing
// semantics get it for free: Lookup finds the most recently inserted
// entry for a name first).
func (b *bucketArray[T]) Insert(key string, hash uint64, value *T) {
	idx := b.index(hash)
	b.buckets[idx] = &chainEntry[T]{hash: hash, key: key, value: value, next: b.buckets[idx]}
}

// Lookup walks the collision chain for hash looking for an exact key
// match.
func (b *bucketArray[T]) Lookup(key string, hash uint64) (*T, bool) {
	for e := b.buckets[b.index(hash)]; e != nil; e = e.next {
		if e.hash == hash && e.key == key {
			return e.value, true
		}
	}
	return nil, false
}

// Each visits every entry across every bucket; order is unspecified.
func (b *bucketArray[T]) Each(fn func(key string, value *T)) {
	for _, head := range b.buckets {
		for e := head; e != nil; e = e.next {
			fn(e.key, e.value)
		}
	}
}

// Default keyspaces for the four symbol tables.
const (
	FunctionKeyspace = 257
	VariableKeyspace = 127
	TypeKeyspace     = 127
	MacroKeyspace    = 61
)
