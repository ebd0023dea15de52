package exporter

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"instaetl/pkg/contracts/domain"
)

// FormatValue renders one table cell for CSV output. Nulls become empty
// strings, dates use domain.DateLayout, booleans are 1/0 and floats use the
// shortest representation that round-trips.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return formatInt(x)
	case float64:
		return formatFloat(x)
	case bool:
		return formatBool(x)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format(domain.DateLayout)
	default:
		return fmt.Sprint(x)
	}
}

// FormatRow renders every cell of a row
func FormatRow(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = FormatValue(v)
	}
	return out
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
