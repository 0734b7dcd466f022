// Package rng provides the deterministic random source used by the engine.
//
// The generator is a 32-bit xorshift (13, 17, 5). The same seed produces
// the same purchase decisions on every platform.
package rng

// XorShift32 is a single sequential stream. It is not safe for concurrent
// use; each engine owns its own instance.
type XorShift32 struct {
	state uint32
}

// New seeds a generator. A zero seed is replaced by 1 because the all-zero
// state is a fixed point of the transform.
func New(seed uint32) *XorShift32 {
	if seed == 0 {
		seed = 1
	}
	return &XorShift32{state: seed}
}

// NextUint32 advances the state and returns it.
func (x *XorShift32) NextUint32() uint32 {
	s := x.state
	s ^= s << 13
	s ^= s >> 17
	s ^= s << 5
	x.state = s
	return s
}

// NextFloat returns a draw in [0, 1).
func (x *XorShift32) NextFloat() float64 {
	return float64(x.NextUint32()) / (1 << 32)
}

// Uniform returns a draw in [min, max).
func (x *XorShift32) Uniform(min, max float64) float64 {
	return min + (max-min)*x.NextFloat()
}

// Bernoulli returns true with probability p.
func (x *XorShift32) Bernoulli(p float64) bool {
	return x.NextFloat() < p
}

// State returns the current internal state without advancing it.
func (x *XorShift32) State() uint32 {
	return x.state
}
