package synth

import (
	"math/rand"
	"time"

	"github.com/levtul/synthdb/model"
)

// Source tells where a blended value came from.
type Source int

const (
	SourceNull Source = iota
	SourceSample
	SourceSynthetic
)

func (s Source) String() string {
	switch s {
	case SourceNull:
		return "null"
	case SourceSample:
		return "sample"
	}

	return "synthetic"
}

// ClampPercent limits p to 0..100.
func ClampPercent(p int) int {
	return min(max(p, 0), 100)
}

// Blend picks a value for an ordinary column. A nullable column yields NULL
// with nullProbability; otherwise a captured sample is used with probability
// samplePercent/100 when samples exist, and a hinted or type-based value in
// every other case. It reads nothing but its arguments.
func Blend(col *model.Column, samplePercent int, nullProbability float64, r *rand.Rand, now time.Time) (any, Source) {
	if col.Nullable && r.Float64() < nullProbability {
		return nil, SourceNull
	}

	if len(col.Samples) > 0 && r.Intn(100) < ClampPercent(samplePercent) {
		return col.Samples[r.Intn(len(col.Samples))], SourceSample
	}

	if col.Hint != nil {
		if v := col.Hint.Generate(r); v != nil {
			return v, SourceSynthetic
		}
	}

	v := Synthesize(col, r, now)
	if v == nil {
		return nil, SourceNull
	}

	return v, SourceSynthetic
}
