package synth

import (
	"math/rand"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levtul/synthdb/model"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestClampPercent(t *testing.T) {
	assert.Equal(t, 0, ClampPercent(-5))
	assert.Equal(t, 0, ClampPercent(0))
	assert.Equal(t, 42, ClampPercent(42))
	assert.Equal(t, 100, ClampPercent(100))
	assert.Equal(t, 100, ClampPercent(250))
}

func TestBlend_AlwaysSampleAtHundredPercent(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	col := &model.Column{Name: "status", Type: model.TypeText, Samples: []any{"new", "paid"}}
	for i := 0; i < 200; i++ {
		v, src := Blend(col, 100, 0.5, r, now)
		assert.Equal(t, SourceSample, src)
		assert.Contains(t, []any{"new", "paid"}, v)
	}
}

func TestBlend_NeverSampleAtZeroPercent(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	col := &model.Column{Name: "qty", Type: model.TypeInteger, Samples: []any{int64(-1)}}
	for i := 0; i < 200; i++ {
		v, src := Blend(col, 0, 0, r, now)
		assert.Equal(t, SourceSynthetic, src)
		assert.NotEqual(t, int64(-1), v)
	}
}

func TestBlend_OutOfRangePercentIsClamped(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	col := &model.Column{Name: "qty", Type: model.TypeInteger, Samples: []any{int64(-1)}}
	for i := 0; i < 50; i++ {
		_, src := Blend(col, 300, 0, r, now)
		assert.Equal(t, SourceSample, src)
		_, src = Blend(col, -10, 0, r, now)
		assert.Equal(t, SourceSynthetic, src)
	}
}

func TestBlend_NullOnlyForNullableColumns(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	nullable := &model.Column{Name: "note", Type: model.TypeText, Nullable: true}
	required := &model.Column{Name: "note", Type: model.TypeText}
	for i := 0; i < 100; i++ {
		v, src := Blend(nullable, 0, 1, r, now)
		assert.Nil(t, v)
		assert.Equal(t, SourceNull, src)

		v, src = Blend(required, 0, 1, r, now)
		assert.NotNil(t, v)
		assert.Equal(t, SourceSynthetic, src)
	}
}

func TestBlend_SampleRatioRoughlyMatchesPercent(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	col := &model.Column{Name: "qty", Type: model.TypeInteger, Samples: []any{int64(1)}}
	samples := 0
	const n = 10000
	for i := 0; i < n; i++ {
		if _, src := Blend(col, 30, 0, r, now); src == SourceSample {
			samples++
		}
	}
	assert.InDelta(t, 0.3, float64(samples)/n, 0.03)
}

func TestBlend_HintWins(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	col := &model.Column{Name: "status", Type: model.TypeText, Hint: model.NewOneOf(model.TypeText, "a", "b")}
	for i := 0; i < 50; i++ {
		v, src := Blend(col, 0, 0, r, now)
		assert.Equal(t, SourceSynthetic, src)
		assert.Contains(t, []any{"a", "b"}, v)
	}
}

func TestSynthesize_Types(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	for i := 0; i < 100; i++ {
		n := Synthesize(&model.Column{Type: model.TypeInteger}, r, now).(int64)
		assert.GreaterOrEqual(t, n, int64(0))
		assert.LessOrEqual(t, n, int64(maxInteger))

		f := Synthesize(&model.Column{Type: model.TypeFloat}, r, now).(float64)
		assert.GreaterOrEqual(t, f, 0.0)
		assert.LessOrEqual(t, f, float64(maxFloat))

		d := Synthesize(&model.Column{Type: model.TypeDate}, r, now).(time.Time)
		assert.False(t, d.After(now))
		assert.True(t, d.After(now.AddDate(-11, 0, 0)))
		assert.Zero(t, d.Hour())

		ts := Synthesize(&model.Column{Type: model.TypeTimestamp}, r, now).(time.Time)
		assert.False(t, ts.After(now))
		assert.True(t, ts.After(now.AddDate(-1, 0, -1)))

		tm := Synthesize(&model.Column{Type: model.TypeTime}, r, now).(string)
		_, err := time.Parse("15:04:05", tm)
		assert.NoError(t, err)

		assert.IsType(t, true, Synthesize(&model.Column{Type: model.TypeBoolean}, r, now))
		assert.IsType(t, uuid.UUID{}, Synthesize(&model.Column{Type: model.TypeUUID}, r, now))
		assert.IsType(t, time.Duration(0), Synthesize(&model.Column{Type: model.TypeInterval}, r, now))
		assert.IsType(t, []byte{}, Synthesize(&model.Column{Type: model.TypeBytes}, r, now))
	}
}

func TestSynthesize_TextRespectsMaxLength(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	for _, name := range []string{"code", "email", "full_name", "description"} {
		col := &model.Column{Name: name, Type: model.TypeText, MaxLength: 4}
		for i := 0; i < 20; i++ {
			s := Synthesize(col, r, now).(string)
			assert.LessOrEqual(t, utf8.RuneCountInString(s), 4, name)
			assert.NotEmpty(t, s)
		}
	}
}

func TestSynthesize_UnknownType(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	assert.Nil(t, Synthesize(&model.Column{Nullable: true}, r, now))
	assert.NotNil(t, Synthesize(&model.Column{}, r, now))
}

func TestKeyPool_FrozenRejectsAppend(t *testing.T) {
	pools := NewPools()
	p, err := pools.Create("users", []string{"id"})
	require.NoError(t, err)

	require.NoError(t, p.Append(model.Row{"id": int64(1), "name": "x"}))
	p.Freeze()
	assert.ErrorIs(t, p.Append(model.Row{"id": int64(2)}), ErrPoolFrozen)
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, model.Row{"id": int64(1)}, p.Row(0))
	assert.Nil(t, p.Values("name"))

	_, err = pools.Create("users", []string{"id"})
	assert.Error(t, err)
	assert.Same(t, p, pools.Get("users"))
	assert.Nil(t, pools.Get("orders"))
}
