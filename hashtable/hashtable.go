// Package hashtable implements a bucketed hash table with a lock-free Get,
// the same structure biscuit's hashtable package uses, generalized with Go
// generics so a single implementation serves the TCP connection table's
// {remote-ip, remote-port, local-port} lookup (§4.7) and the xHCI driver's
// VID:PID device index (§4.6) without an interface{} key.
package hashtable

import (
	"sync"
	"sync/atomic"
)

type elem_t[K comparable, V any] struct {
	key     K
	value   V
	keyHash uint32
	next    atomic.Pointer[elem_t[K, V]]
}

type bucket_t[K comparable, V any] struct {
	sync.RWMutex
	first atomic.Pointer[elem_t[K, V]]
}

// Table_t maps keys to values with bucket-level locking for Set/Del and a
// lock-free chain walk for Get.
type Table_t[K comparable, V any] struct {
	buckets []*bucket_t[K, V]
	hashFn  func(K) uint32
	maxchain int
}

// New allocates a table with nbuckets buckets. hashFn must be a stable hash
// of K; callers own collision quality (e.g. fnv of a TCP 4-tuple).
func New[K comparable, V any](nbuckets int, hashFn func(K) uint32) *Table_t[K, V] {
	t := &Table_t[K, V]{
		buckets: make([]*bucket_t[K, V], nbuckets),
		hashFn:  hashFn,
	}
	for i := range t.buckets {
		t.buckets[i] = &bucket_t[K, V]{}
	}
	return t
}

func (t *Table_t[K, V]) bucketFor(kh uint32) *bucket_t[K, V] {
	return t.buckets[kh%uint32(len(t.buckets))]
}

// Get looks up key without taking a lock, following the same
// load-pointer-and-walk discipline biscuit's hashtable uses so a reader
// never blocks behind a writer.
func (t *Table_t[K, V]) Get(key K) (V, bool) {
	kh := t.hashFn(key)
	b := t.bucketFor(kh)
	for e := b.first.Load(); e != nil; e = e.next.Load() {
		if e.keyHash == kh && e.key == key {
			return e.value, true
		}
	}
	var zero V
	return zero, false
}

// Set inserts key/value, returning false without modification if key
// already existed.
func (t *Table_t[K, V]) Set(key K, value V) bool {
	kh := t.hashFn(key)
	b := t.bucketFor(kh)
	b.Lock()
	defer b.Unlock()

	var last *elem_t[K, V]
	for e := b.first.Load(); e != nil; e = e.next.Load() {
		if e.keyHash == kh && e.key == key {
			return false
		}
		last = e
	}
	n := &elem_t[K, V]{key: key, value: value, keyHash: kh}
	if last == nil {
		n.next.Store(b.first.Load())
		b.first.Store(n)
	} else {
		n.next.Store(last.next.Load())
		last.next.Store(n)
	}
	return true
}

// Del removes key, reporting whether it was present.
func (t *Table_t[K, V]) Del(key K) bool {
	kh := t.hashFn(key)
	b := t.bucketFor(kh)
	b.Lock()
	defer b.Unlock()

	var last *elem_t[K, V]
	for e := b.first.Load(); e != nil; e = e.next.Load() {
		if e.keyHash == kh && e.key == key {
			if last == nil {
				b.first.Store(e.next.Load())
			} else {
				last.next.Store(e.next.Load())
			}
			return true
		}
		last = e
	}
	return false
}

// Len returns the number of entries across all buckets.
func (t *Table_t[K, V]) Len() int {
	n := 0
	for _, b := range t.buckets {
		b.RLock()
		for e := b.first.Load(); e != nil; e = e.next.Load() {
			n++
		}
		b.RUnlock()
	}
	return n
}
