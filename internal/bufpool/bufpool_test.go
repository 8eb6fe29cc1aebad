package bufpool

import (
	"testing"

	"ferrocp/internal/device"
)

func TestAcquireRespectsKindBounds(t *testing.T) {
	pool := NewPool(DefaultCeilingBytes)

	buf, err := pool.Acquire(1, device.SSD)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bnd := boundsByKind[device.SSD]
	if buf.CurrentCapacity() < bnd.min || buf.CurrentCapacity() > bnd.max {
		t.Errorf("capacity %d out of bounds [%d, %d]", buf.CurrentCapacity(), bnd.min, bnd.max)
	}
}

func TestObserveGrowsOnHighThroughput(t *testing.T) {
	pool := NewPool(DefaultCeilingBytes)
	buf, _ := pool.Acquire(64*1024, device.SSD)
	before := buf.CurrentCapacity()

	buf.Observe(1000, 450) // far above 0.9x theoretical write speed

	if buf.CurrentCapacity() <= before {
		t.Errorf("expected capacity to grow from %d, got %d", before, buf.CurrentCapacity())
	}
}

func TestObserveShrinksOnLowThroughput(t *testing.T) {
	pool := NewPool(DefaultCeilingBytes)
	buf, _ := pool.Acquire(1024*1024, device.SSD)
	before := buf.CurrentCapacity()

	buf.Observe(10, 450) // far below 0.3x theoretical write speed

	if buf.CurrentCapacity() >= before {
		t.Errorf("expected capacity to shrink from %d, got %d", before, buf.CurrentCapacity())
	}
}

func TestObserveNeverExceedsBounds(t *testing.T) {
	pool := NewPool(DefaultCeilingBytes)
	bnd := boundsByKind[device.SSD]

	buf, _ := pool.Acquire(bnd.max, device.SSD)
	for i := 0; i < 10; i++ {
		buf.Observe(10000, 1) // always grow
	}
	if buf.CurrentCapacity() > bnd.max {
		t.Errorf("capacity %d exceeded max %d", buf.CurrentCapacity(), bnd.max)
	}

	buf2, _ := pool.Acquire(bnd.min, device.SSD)
	for i := 0; i < 10; i++ {
		buf2.Observe(0, 1000) // always shrink
	}
	if buf2.CurrentCapacity() < bnd.min {
		t.Errorf("capacity %d under min %d", buf2.CurrentCapacity(), bnd.min)
	}
}

func TestReleaseThenAcquireReusesBuffer(t *testing.T) {
	pool := NewPool(DefaultCeilingBytes)

	buf, _ := pool.Acquire(128*1024, device.SSD)
	pool.Release(buf)

	totalBefore, countBefore := pool.Stats()
	if countBefore != 1 {
		t.Fatalf("expected 1 pooled buffer, got %d", countBefore)
	}

	reused, _ := pool.Acquire(64*1024, device.SSD)
	if reused == nil {
		t.Fatal("expected to acquire a buffer")
	}

	_, countAfter := pool.Stats()
	if countAfter != 0 {
		t.Errorf("expected pool to be drained after reuse, got %d buffers, totalBefore=%d", countAfter, totalBefore)
	}
}

func TestPoolEvictsUnderMemoryCeiling(t *testing.T) {
	// Ceiling small enough that only one 1 MiB buffer fits.
	pool := NewPool(1024 * 1024)

	buf1, _ := pool.Acquire(1024*1024, device.SSD)
	buf2, _ := pool.Acquire(1024*1024, device.SSD)

	pool.Release(buf1)
	pool.Release(buf2)

	total, _ := pool.Stats()
	if total > pool.ceiling {
		t.Errorf("pool exceeded ceiling: %d > %d", total, pool.ceiling)
	}
}

func TestBucketKeyRoundsToPowerOfTwo(t *testing.T) {
	cases := map[uint32]uint32{
		0:     1,
		1:     1,
		2:     2,
		3:     4,
		1000:  1024,
		1024:  1024,
		1025:  2048,
	}
	for in, want := range cases {
		if got := bucketKey(in); got != want {
			t.Errorf("bucketKey(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestInitialCapacityMatchesProfile(t *testing.T) {
	profile := device.Profile{OptimalBufferBytes: 256 * 1024}
	if got := InitialCapacity(profile); got != 256*1024 {
		t.Errorf("InitialCapacity() = %d, want %d", got, 256*1024)
	}
}
