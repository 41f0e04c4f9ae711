package model

import (
	"fmt"
	"math/rand"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-faker/faker/v4"
)

type Preset int

const (
	PresetName Preset = iota
	PresetSurname
	PresetNameRu
	PresetSurnameRu
	PresetEmail
	PresetPhone
	PresetAddress
	PresetUsername
	PresetURL
	PresetWord
	PresetSentence
)

var presetNames = map[Preset]string{
	PresetName:      "name",
	PresetSurname:   "surname",
	PresetNameRu:    "name_ru",
	PresetSurnameRu: "surname_ru",
	PresetEmail:     "email",
	PresetPhone:     "phone",
	PresetAddress:   "address",
	PresetUsername:  "username",
	PresetURL:       "url",
	PresetWord:      "word",
	PresetSentence:  "sentence",
}

func (p Preset) String() string {
	return presetNames[p]
}

func PresetFromString(s string) (Preset, error) {
	for p, name := range presetNames {
		if name == s {
			return p, nil
		}
	}

	return 0, fmt.Errorf("unknown generation preset: %s", s)
}

// Hint overrides type-based synthesis for one column.
type Hint interface {
	hint()
	CommentString() string
	ValidateType(t ColumnType) error
	SetValue(v string) error
	Generate(r *rand.Rand) any
}

type HintOneOf struct {
	Type   ColumnType
	Values []any
}

type HintRange struct {
	Type ColumnType
	From any
	To   any
}

type HintPreset struct {
	Preset Preset
}

func (*HintOneOf) hint()  {}
func (*HintRange) hint()  {}
func (*HintPreset) hint() {}

func (*HintOneOf) CommentString() string  { return "oneof" }
func (*HintRange) CommentString() string  { return "range" }
func (*HintPreset) CommentString() string { return "type" }

// NewOneOf builds a oneof hint from already typed values, as used for
// enum labels read from the catalog.
func NewOneOf(t ColumnType, values ...any) *HintOneOf {
	return &HintOneOf{Type: t, Values: values}
}

func unbracket(kind, v string) (string, error) {
	v = strings.TrimSpace(v)
	if len(v) < 2 || v[0] != '[' || v[len(v)-1] != ']' {
		return "", fmt.Errorf("invalid %s value: %s", kind, v)
	}

	return v[1 : len(v)-1], nil
}

func (h *HintOneOf) SetValue(v string) error {
	inner, err := unbracket("oneof", v)
	if err != nil {
		return err
	}
	if strings.TrimSpace(inner) == "" {
		return fmt.Errorf("invalid oneof value: %s", v)
	}

	arr := strings.Split(inner, ",")
	h.Values = make([]any, 0, len(arr))
	for _, item := range arr {
		item = strings.TrimSpace(item)
		switch h.Type {
		case TypeInteger:
			n, err := strconv.ParseInt(item, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid oneof value: %v, cannot parse int: %w", item, err)
			}
			h.Values = append(h.Values, n)
		case TypeFloat:
			f, err := strconv.ParseFloat(item, 64)
			if err != nil {
				return fmt.Errorf("invalid oneof value: %v, cannot parse float: %w", item, err)
			}
			h.Values = append(h.Values, f)
		default:
			h.Values = append(h.Values, strings.Trim(item, `'"`))
		}
	}

	return nil
}

func (h *HintRange) SetValue(v string) error {
	inner, err := unbracket("range", v)
	if err != nil {
		return err
	}
	arr := strings.Split(inner, " - ")
	if len(arr) != 2 || strings.TrimSpace(arr[0]) == "" || strings.TrimSpace(arr[1]) == "" {
		return fmt.Errorf("invalid range value: %s", v)
	}
	from, to := strings.TrimSpace(arr[0]), strings.TrimSpace(arr[1])

	switch h.Type {
	case TypeInteger:
		fromInt, err := strconv.ParseInt(from, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid range value: %v, cannot parse int: %w", v, err)
		}
		toInt, err := strconv.ParseInt(to, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid range value: %v, cannot parse int: %w", v, err)
		}
		if toInt < fromInt {
			return fmt.Errorf("invalid range value: %v, lower bound exceeds upper bound", v)
		}
		h.From, h.To = fromInt, toInt
	case TypeFloat:
		fromFloat, err := strconv.ParseFloat(from, 64)
		if err != nil {
			return fmt.Errorf("invalid range value: %v, cannot parse float: %w", v, err)
		}
		toFloat, err := strconv.ParseFloat(to, 64)
		if err != nil {
			return fmt.Errorf("invalid range value: %v, cannot parse float: %w", v, err)
		}
		if toFloat < fromFloat {
			return fmt.Errorf("invalid range value: %v, lower bound exceeds upper bound", v)
		}
		h.From, h.To = fromFloat, toFloat
	case TypeTime, TypeDate, TypeTimestamp:
		layout := map[ColumnType]string{
			TypeTime:      "15:04:05",
			TypeDate:      "02.01.2006",
			TypeTimestamp: "02.01.2006 15:04:05",
		}[h.Type]
		fromTime, err := time.Parse(layout, from)
		if err != nil {
			return fmt.Errorf("invalid range value: %v, cannot parse %s: %w", v, h.Type, err)
		}
		toTime, err := time.Parse(layout, to)
		if err != nil {
			return fmt.Errorf("invalid range value: %v, cannot parse %s: %w", v, h.Type, err)
		}
		if toTime.Before(fromTime) {
			return fmt.Errorf("invalid range value: %v, lower bound exceeds upper bound", v)
		}
		h.From, h.To = fromTime, toTime
	default:
		return fmt.Errorf("invalid range value: %v, cannot parse range for type %s", v, h.Type)
	}

	return nil
}

func (h *HintPreset) SetValue(v string) error {
	p, err := PresetFromString(strings.TrimSpace(v))
	if err != nil {
		return err
	}

	h.Preset = p
	return nil
}

func (h *HintOneOf) ValidateType(t ColumnType) error {
	switch t {
	case TypeInteger, TypeFloat, TypeText, TypeDate, TypeTimestamp, TypeTime, TypeUnknown:
		return nil
	default:
		return fmt.Errorf("generation type oneof can be used only with numeric, string, date and time types, got %s", t)
	}
}

func (h *HintRange) ValidateType(t ColumnType) error {
	switch t {
	case TypeInteger, TypeFloat, TypeDate, TypeTimestamp, TypeTime:
		return nil
	default:
		return fmt.Errorf("generation type range can be used only with numeric, date and time types, got %s", t)
	}
}

func (h *HintPreset) ValidateType(t ColumnType) error {
	if _, ok := presetNames[h.Preset]; !ok {
		return fmt.Errorf("unknown generation preset: %d", h.Preset)
	}
	if t != TypeText {
		return fmt.Errorf("generation type %s can be used only with text type, got %s", h.Preset, t)
	}

	return nil
}

func (h *HintOneOf) Generate(r *rand.Rand) any {
	if len(h.Values) == 0 {
		return nil
	}

	return h.Values[r.Intn(len(h.Values))]
}

func (h *HintRange) Generate(r *rand.Rand) any {
	switch from := h.From.(type) {
	case int64:
		to := h.To.(int64)
		return from + r.Int63n(to-from+1)
	case float64:
		to := h.To.(float64)
		return from + r.Float64()*(to-from)
	case time.Time:
		to := h.To.(time.Time)
		span := to.Unix() - from.Unix()
		t := time.Unix(from.Unix()+r.Int63n(span+1), 0).UTC()
		switch h.Type {
		case TypeTime:
			return t.Format("15:04:05")
		case TypeDate:
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
		return t
	}

	return nil
}

func (h *HintPreset) Generate(_ *rand.Rand) any {
	switch h.Preset {
	case PresetName:
		return faker.FirstName()
	case PresetSurname:
		return faker.LastName()
	case PresetNameRu:
		s, _ := faker.GetPerson().RussianFirstNameMale(reflect.Value{})
		return s
	case PresetSurnameRu:
		s, _ := faker.GetPerson().RussianLastNameMale(reflect.Value{})
		return s
	case PresetEmail:
		return faker.Email()
	case PresetPhone:
		return faker.Phonenumber()
	case PresetAddress:
		addr, _ := faker.GetAddress().RealWorld(reflect.Value{})
		if a, ok := addr.(faker.RealAddress); ok {
			return a.Address
		}
		return nil
	case PresetUsername:
		return faker.Username()
	case PresetURL:
		return faker.URL()
	case PresetWord:
		return faker.Word()
	case PresetSentence:
		return faker.Sentence()
	}

	return nil
}

func hintFromString(s string, t ColumnType) (Hint, error) {
	switch s {
	case "oneof":
		return &HintOneOf{Type: t}, nil
	case "range":
		return &HintRange{Type: t}, nil
	case "type":
		return &HintPreset{}, nil
	}

	return nil, fmt.Errorf("unknown generation type: %s", s)
}

// NewHintFromString parses "kind:value" (for example "range:[1 - 10]") and
// validates the result against the column type.
func NewHintFromString(s string, t ColumnType) (Hint, error) {
	kind, val, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return nil, fmt.Errorf("unknown generation type: %s", s)
	}

	h, err := hintFromString(kind, t)
	if err != nil {
		return nil, err
	}
	if err := h.ValidateType(t); err != nil {
		return nil, err
	}
	if err := h.SetValue(val); err != nil {
		return nil, err
	}

	return h, nil
}
