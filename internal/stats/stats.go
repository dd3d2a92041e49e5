package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean, NaN for empty input.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// PopStdDev returns the population standard deviation, NaN for empty input.
func PopStdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	m := Mean(xs)
	var s float64
	for _, x := range xs {
		d := x - m
		s += d * d
	}
	return math.Sqrt(s / float64(len(xs)))
}

// Median returns the median, averaging the two middle elements for
// even-length input. Empty input yields 0 so downstream ratios can
// treat "no signal" explicitly instead of crashing.
func Median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Variance returns the population variance, NaN for empty input.
func Variance(xs []float64) float64 {
	sd := PopStdDev(xs)
	return sd * sd
}

// Winsorize clips every value to the [lowPct, highPct] percentile
// bounds of the input. Outliers are clipped, never dropped, so the
// output length equals the input length and every output value stays
// inside [min(xs), max(xs)].
func Winsorize(xs []float64, lowPct, highPct float64) []float64 {
	n := len(xs)
	if n == 0 {
		return nil
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	loIdx := int(lowPct * float64(n-1))
	hiIdx := int(highPct * float64(n-1))
	if loIdx < 0 {
		loIdx = 0
	}
	if hiIdx > n-1 {
		hiIdx = n - 1
	}
	lo, hi := sorted[loIdx], sorted[hiIdx]

	out := make([]float64, n)
	for i, x := range xs {
		switch {
		case x < lo:
			out[i] = lo
		case x > hi:
			out[i] = hi
		default:
			out[i] = x
		}
	}
	return out
}

// RankWithTies ranks ascending and assigns the average of the tied
// positions to every member of a tie group:
// [1,2,2,4] -> [1, 2.5, 2.5, 4].
func RankWithTies(xs []float64) []float64 {
	n := len(xs)
	if n == 0 {
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && xs[idx[j+1]] == xs[idx[i]] {
			j++
		}
		// positions i..j (0-based) share the average rank
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

// Spearman computes the rank correlation of two equal-length series
// using tie-averaged ranks: 1 - 6*sum(d^2)/(n(n^2-1)). NaN for n < 2
// or mismatched lengths.
func Spearman(a, b []float64) float64 {
	n := len(a)
	if n != len(b) || n < 2 {
		return math.NaN()
	}
	ra := RankWithTies(a)
	rb := RankWithTies(b)
	var sum float64
	for i := 0; i < n; i++ {
		d := ra[i] - rb[i]
		sum += d * d
	}
	nf := float64(n)
	return 1 - 6*sum/(nf*(nf*nf-1))
}

// RollingMeans returns the mean of every contiguous window of the given
// size. Shorter input collapses to a single window over all entries.
func RollingMeans(xs []float64, window int) []float64 {
	n := len(xs)
	if n == 0 {
		return nil
	}
	if window <= 0 || window > n {
		window = n
	}
	out := make([]float64, 0, n-window+1)
	var s float64
	for i := 0; i < window; i++ {
		s += xs[i]
	}
	out = append(out, s/float64(window))
	for i := window; i < n; i++ {
		s += xs[i] - xs[i-window]
		out = append(out, s/float64(window))
	}
	return out
}

// LogLoss scores a probability against a boolean label. Probabilities
// at exactly 0 or 1 can produce +Inf; callers rely on that to detect
// catastrophically confident predictors, so no clamping happens here.
func LogLoss(p float64, label bool) float64 {
	if label {
		return -math.Log(p)
	}
	return -math.Log(1 - p)
}

// Brier scores a probability against a boolean label.
func Brier(p float64, label bool) float64 {
	y := 0.0
	if label {
		y = 1.0
	}
	d := p - y
	return d * d
}

// Entropy computes -sum(w*ln(w)) over the weights, treating w=0 as
// contributing 0.
func Entropy(ws map[string]float64) float64 {
	var e float64
	for _, w := range ws {
		if w > 0 {
			e -= w * math.Log(w)
		}
	}
	return e
}
