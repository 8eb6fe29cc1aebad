// Package bufpool implements the adaptive buffer and pool described in
// spec §4.2: buffers that grow or shrink based on observed throughput, and
// a power-of-two bucketed pool that recycles them.
package bufpool

import (
	"sync"

	"github.com/valyala/bytebufferpool"

	"ferrocp/internal/device"
	"ferrocp/pkg/helper/errors"
)

// bounds holds (min, max) buffer capacity per device kind, from spec §4.2.
type bounds struct{ min, max uint32 }

var boundsByKind = map[device.Kind]bounds{
	device.SSD:     {min: 64 * 1024, max: 8 * 1024 * 1024},
	device.HDD:     {min: 256 * 1024, max: 16 * 1024 * 1024},
	device.Network: {min: 32 * 1024, max: 4 * 1024 * 1024},
	device.RAMDisk: {min: 4 * 1024, max: 1 * 1024 * 1024},
	device.Unknown: {min: 64 * 1024, max: 1 * 1024 * 1024},
}

// AdaptiveBuffer holds a mutable byte region sized for one device kind. It
// records the observed rate of the operation that last used it so the pool
// can grow or shrink it before the next acquisition.
type AdaptiveBuffer struct {
	kind            device.Kind
	currentCapacity uint32
	lastOpRateMbps  float64
	bb              *bytebufferpool.ByteBuffer
}

// Bytes returns the buffer's backing slice, sized to CurrentCapacity.
func (b *AdaptiveBuffer) Bytes() []byte {
	if cap(b.bb.B) < int(b.currentCapacity) {
		b.bb.B = make([]byte, b.currentCapacity)
	} else {
		b.bb.B = b.bb.B[:b.currentCapacity]
	}
	return b.bb.B
}

// CurrentCapacity returns the buffer's current size in bytes.
func (b *AdaptiveBuffer) CurrentCapacity() uint32 { return b.currentCapacity }

// Observe records the throughput achieved by the operation that used this
// buffer and resizes it for the next acquisition per spec §4.2's sizing
// policy: double on sustained high throughput, halve on sustained low
// throughput, clamped to the device kind's bounds.
func (b *AdaptiveBuffer) Observe(rateMbps, theoreticalWriteMbps float64) {
	b.lastOpRateMbps = rateMbps
	bnd := boundsByKind[b.kind]

	switch {
	case rateMbps > 0.9*theoreticalWriteMbps && b.currentCapacity < bnd.max:
		grown := b.currentCapacity * 2
		if grown > bnd.max {
			grown = bnd.max
		}
		b.currentCapacity = grown
	case rateMbps < 0.3*theoreticalWriteMbps && b.currentCapacity > bnd.min:
		shrunk := b.currentCapacity / 2
		if shrunk < bnd.min {
			shrunk = bnd.min
		}
		b.currentCapacity = shrunk
	}
}

// InitialCapacity returns the starting buffer size for a freshly classified
// device, per spec §4.2: initial_capacity(device) = optimal_buffer_bytes.
func InitialCapacity(profile device.Profile) uint32 {
	return profile.OptimalBufferBytes
}

// bucketKey rounds size up to the next power of two, the pool's bucketing
// unit per spec §4.2 and design note §9 ("power-of-two bucketing").
func bucketKey(size uint32) uint32 {
	if size == 0 {
		return 1
	}
	k := uint32(1)
	for k < size {
		k <<= 1
	}
	return k
}

type pooledEntry struct {
	bucket uint32
	buf    *AdaptiveBuffer
}

// Pool is a FIFO-evicted, power-of-two bucketed recycler of AdaptiveBuffers.
// Its total resident memory is capped at a configured ceiling; the oldest
// buffer (by insertion order, across all buckets) is evicted first.
type Pool struct {
	mu         sync.Mutex
	buckets    map[uint32][]*AdaptiveBuffer
	order      []pooledEntry
	totalBytes int64
	ceiling    int64
}

// DefaultCeilingBytes is the default total pool memory ceiling (spec §4.2).
const DefaultCeilingBytes = 64 * 1024 * 1024

// NewPool creates a buffer pool with the given memory ceiling. A
// non-positive ceiling falls back to DefaultCeilingBytes.
func NewPool(ceilingBytes int64) *Pool {
	if ceilingBytes <= 0 {
		ceilingBytes = DefaultCeilingBytes
	}
	return &Pool{
		buckets: make(map[uint32][]*AdaptiveBuffer),
		ceiling: ceilingBytes,
	}
}

// Acquire returns a buffer of at least requestedSize for the given device
// kind, reusing a pooled buffer from the smallest bucket that satisfies the
// request, or allocating a new one when the pool has nothing suitable.
func (p *Pool) Acquire(requestedSize uint32, kind device.Kind) (*AdaptiveBuffer, error) {
	bnd, known := boundsByKind[kind]
	if !known {
		bnd = boundsByKind[device.Unknown]
	}
	if requestedSize < bnd.min {
		requestedSize = bnd.min
	}
	if requestedSize > bnd.max {
		requestedSize = bnd.max
	}
	key := bucketKey(requestedSize)

	p.mu.Lock()
	bestKey, found := uint32(0), false
	for k, bucket := range p.buckets {
		if k < key || len(bucket) == 0 {
			continue
		}
		if !found || k < bestKey {
			bestKey, found = k, true
		}
	}
	if found {
		bucket := p.buckets[bestKey]
		buf := bucket[len(bucket)-1]
		p.buckets[bestKey] = bucket[:len(bucket)-1]
		p.totalBytes -= int64(buf.currentCapacity)
		p.removeFromOrder(buf)
		p.mu.Unlock()
		buf.currentCapacity = requestedSize
		return buf, nil
	}
	p.mu.Unlock()

	buf := &AdaptiveBuffer{
		kind:            kind,
		currentCapacity: key,
		bb:              bytebufferpool.Get(),
	}
	return buf, nil
}

// Release returns a buffer to the pool, evicting the oldest pooled buffers
// if the memory ceiling would otherwise be exceeded.
func (p *Pool) Release(buf *AdaptiveBuffer) {
	key := bucketKey(buf.currentCapacity)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.buckets[key] = append(p.buckets[key], buf)
	p.order = append(p.order, pooledEntry{bucket: key, buf: buf})
	p.totalBytes += int64(buf.currentCapacity)

	for p.totalBytes > p.ceiling && len(p.order) > 0 {
		oldest := p.order[0]
		p.order = p.order[1:]

		bucket := p.buckets[oldest.bucket]
		for i, b := range bucket {
			if b == oldest.buf {
				bucket = append(bucket[:i], bucket[i+1:]...)
				break
			}
		}
		p.buckets[oldest.bucket] = bucket
		p.totalBytes -= int64(oldest.buf.currentCapacity)
		bytebufferpool.Put(oldest.buf.bb)
	}
}

// removeFromOrder drops buf's eviction-order entry when it is reused
// directly out of Acquire rather than evicted. Caller holds p.mu.
func (p *Pool) removeFromOrder(buf *AdaptiveBuffer) {
	for i, e := range p.order {
		if e.buf == buf {
			p.order = append(p.order[:i], p.order[i+1:]...)
			return
		}
	}
}

// Stats reports the pool's current footprint, for diagnostics and metrics.
func (p *Pool) Stats() (totalBytes int64, bufferCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalBytes, len(p.order)
}

// ErrPoolExhausted is returned by callers that choose to surface
// out-of-memory conditions under a bufpool name. It is the same value as
// the errors package's ErrOutOfMemory, so errors.Is matches either name.
var ErrPoolExhausted = errors.ErrOutOfMemory
