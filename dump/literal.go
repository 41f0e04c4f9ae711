package dump

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/levtul/synthdb/model"
)

const (
	dateLayout      = "2006-01-02"
	timeLayout      = "15:04:05"
	timestampLayout = "2006-01-02 15:04:05.999999Z07:00"
)

// Literal renders v as a PostgreSQL literal for a column of type t. nil is
// NULL.
func Literal(t model.ColumnType, v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return float(float64(v), 32)
	case float64:
		return float(v, 64)
	case string:
		return pq.QuoteLiteral(v)
	case []byte:
		if t == model.TypeBytes {
			return `'\x` + hex.EncodeToString(v) + `'`
		}
		return pq.QuoteLiteral(string(v))
	case uuid.UUID:
		return pq.QuoteLiteral(v.String())
	case time.Time:
		return pq.QuoteLiteral(formatTime(t, v))
	case time.Duration:
		return pq.QuoteLiteral(fmt.Sprintf("%d seconds", int64(v/time.Second)))
	case fmt.Stringer:
		return pq.QuoteLiteral(v.String())
	}

	return pq.QuoteLiteral(fmt.Sprint(v))
}

func float(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "'NaN'"
	case math.IsInf(f, 1):
		return "'Infinity'"
	case math.IsInf(f, -1):
		return "'-Infinity'"
	}

	return strconv.FormatFloat(f, 'f', -1, bits)
}

func formatTime(t model.ColumnType, v time.Time) string {
	switch t {
	case model.TypeDate:
		return v.Format(dateLayout)
	case model.TypeTime:
		return v.Format(timeLayout)
	}

	return v.Format(timestampLayout)
}
