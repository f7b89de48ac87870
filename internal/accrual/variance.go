package accrual

import "math/rand"

// Regime simulates daily market conditions: a volatility factor in
// [0.8, 1.2) combined with an occasional regime multiplier (bear 0.7,
// volatile 1.3, bull 1.1). Factors are drawn from the supplied source, so
// a fixed seed reproduces the exact sequence.
type Regime struct {
	rnd *rand.Rand
}

func NewRegime(src rand.Source) *Regime {
	return &Regime{rnd: rand.New(src)}
}

func (r *Regime) DayFactor(day int) float64 {
	volatility := 0.8 + r.rnd.Float64()*0.4

	regime := 1.0
	switch roll := r.rnd.Float64(); {
	case roll < 0.10:
		regime = 0.7 // bear
	case roll < 0.25:
		regime = 1.3 // volatile
	case roll < 0.60:
		regime = 1.1 // bull
	}

	return volatility * regime
}
