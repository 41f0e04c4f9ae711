package synth

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/google/uuid"

	"github.com/levtul/synthdb/model"
)

const (
	maxInteger = 100000
	maxFloat   = 10000

	dateSpanDays       = 3650
	timestampSpanHours = 365 * 24
)

var letterRunes = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

// Synthesize builds a plausible value from the column type alone. It returns
// nil only for a nullable column of an unknown type.
func Synthesize(col *model.Column, r *rand.Rand, now time.Time) any {
	switch col.Type {
	case model.TypeInteger:
		return r.Int63n(maxInteger + 1)
	case model.TypeFloat:
		return math.Round(r.Float64()*maxFloat*100) / 100
	case model.TypeBoolean:
		return r.Intn(2) == 0
	case model.TypeText:
		return clamp(text(col.Name, r), col.MaxLength)
	case model.TypeDate:
		d := now.UTC().AddDate(0, 0, -r.Intn(dateSpanDays+1))
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	case model.TypeTime:
		return fmt.Sprintf("%02d:%02d:%02d", r.Intn(24), r.Intn(60), r.Intn(60))
	case model.TypeTimestamp:
		back := time.Duration(r.Int63n(int64(timestampSpanHours*time.Hour/time.Second))) * time.Second
		return now.UTC().Add(-back).Truncate(time.Second)
	case model.TypeInterval:
		return time.Duration(r.Intn(30*24*3600)) * time.Second
	case model.TypeUUID:
		return newUUID(r)
	case model.TypeJSON:
		return fmt.Sprintf(`{"id": %d, "value": %q}`, r.Intn(maxInteger), randomLetters(r, 5, 12))
	case model.TypeBytes:
		b := make([]byte, 8+r.Intn(25))
		r.Read(b)
		return b
	}

	if col.Nullable {
		return nil
	}

	return clamp(randomLetters(r, 5, 20), col.MaxLength)
}

// text picks a faker generator from the column name, falling back to random
// letters.
func text(name string, r *rand.Rand) string {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "email"):
		return faker.Email()
	case strings.Contains(n, "phone"):
		return faker.Phonenumber()
	case strings.Contains(n, "url"), strings.Contains(n, "link"), strings.Contains(n, "website"):
		return faker.URL()
	case strings.Contains(n, "first_name"):
		return faker.FirstName()
	case strings.Contains(n, "last_name"), strings.Contains(n, "surname"):
		return faker.LastName()
	case strings.Contains(n, "username"), strings.Contains(n, "login"):
		return faker.Username()
	case strings.Contains(n, "name"):
		return faker.Name()
	case strings.Contains(n, "address"):
		if s, ok := (&model.HintPreset{Preset: model.PresetAddress}).Generate(r).(string); ok {
			return s
		}
	case strings.Contains(n, "title"):
		return faker.Sentence()
	case strings.Contains(n, "description"), strings.Contains(n, "comment"), strings.Contains(n, "body"):
		return faker.Paragraph()
	}

	return randomLetters(r, 5, 20)
}

func randomLetters(r *rand.Rand, minLen, maxLen int) string {
	b := make([]rune, minLen+r.Intn(maxLen-minLen+1))
	for i := range b {
		b[i] = letterRunes[r.Intn(len(letterRunes))]
	}

	return string(b)
}

func clamp(s string, maxLength int) string {
	if maxLength <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}

	return string(runes[:maxLength])
}

func newUUID(r *rand.Rand) uuid.UUID {
	id, err := uuid.NewRandomFromReader(r)
	if err != nil {
		return uuid.New()
	}

	return id
}
