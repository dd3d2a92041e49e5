package sampler

// Source yields deterministic pseudo-random floats in [0, 1). All
// sampling code draws from a Source instead of seeding its own
// generator, so a fixed seed reproduces a dataset exactly.
type Source interface {
	Next() float64
}

// Mulberry32 is a small 32-bit PRNG with good statistical behaviour for
// shuffling. Identical seeds produce identical sequences across runs
// and platforms.
type Mulberry32 struct {
	state uint32
}

func NewMulberry32(seed uint32) *Mulberry32 {
	return &Mulberry32{state: seed}
}

func (m *Mulberry32) Next() float64 {
	m.state += 0x6D2B79F5
	z := m.state
	z = (z ^ (z >> 15)) * (z | 1)
	z ^= z + (z^(z>>7))*(z|61)
	return float64(z^(z>>14)) / 4294967296.0
}

// shuffle permutes xs in place with a Fisher-Yates pass driven by src.
func shuffle[T any](xs []T, src Source) {
	for i := len(xs) - 1; i > 0; i-- {
		j := int(src.Next() * float64(i+1))
		if j > i {
			j = i
		}
		xs[i], xs[j] = xs[j], xs[i]
	}
}
