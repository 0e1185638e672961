package synthetic

import (
	"crypto/md5"
	"encoding/binary"
)

const lcgMask = 0x7fffffff

// Rand is a deterministic generator seeded from an arbitrary string.
// The seed is hashed with MD5 and advanced with a 31-bit linear
// congruential step, so the same seed always yields the same sequence
// across runs and hosts. Not safe for concurrent use.
type Rand struct {
	state uint64
}

// NewRand seeds a generator from the given string.
func NewRand(seed string) *Rand {
	sum := md5.Sum([]byte(seed))
	// Only the low 31 bits of the digest survive the first masked step.
	return &Rand{state: binary.BigEndian.Uint64(sum[8:]) & lcgMask}
}

// Float64 returns the next value in [0, 1].
func (r *Rand) Float64() float64 {
	r.state = (r.state*1103515245 + 12345) & lcgMask
	return float64(r.state) / float64(lcgMask)
}

// Intn returns the next value in [0, n), clamped so a draw of exactly 1.0
// cannot index out of range.
func (r *Rand) Intn(n int) int {
	v := int(r.Float64() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}
