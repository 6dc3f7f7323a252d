package loader

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"sqlbridge/internal/typemap"
)

// transfer writes one non-NULL value into the dataset.
func (l *Loader) transfer(d *ColumnDescriptor, obs int64, val any, loc *time.Location) error {
	switch d.Code.Category() {
	case typemap.CategoryInteger, typemap.CategoryFloat:
		f, err := toFloat64(val)
		if err != nil {
			return err
		}
		return l.host.StoreNum(d.Index, obs, f)
	case typemap.CategoryBoolean:
		b, err := toBool(val)
		if err != nil {
			return err
		}
		var f float64
		if b {
			f = 1
		}
		return l.host.StoreNum(d.Index, obs, f)
	case typemap.CategoryText:
		return l.host.StoreStr(d.Index, obs, toString(val))
	case typemap.CategoryTemporal:
		t, err := toTime(val, loc)
		if err != nil {
			return err
		}
		s, err := typemap.Format(d.Code, t, loc)
		if err != nil {
			return err
		}
		return l.host.StoreStr(d.Index, obs, s)
	default:
		return fmt.Errorf("no transfer rule for %s", d.Code)
	}
}

func toFloat64(val any) (float64, error) {
	switch v := val.(type) {
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return parseNumber(string(v))
	case string:
		return parseNumber(v)
	default:
		return 0, fmt.Errorf("cannot convert %T to a number", val)
	}
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return float64(i), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed numeric value %q", s)
	}
	return f, nil
}

// toBool accepts native booleans, numbers, text forms ("t", "true", "1")
// and raw BIT bytes, where any set bit is true.
func toBool(val any) (bool, error) {
	switch v := val.(type) {
	case bool:
		return v, nil
	case []byte:
		if len(v) == 1 && v[0] <= 1 {
			return v[0] == 1, nil
		}
		if b, err := strconv.ParseBool(strings.TrimSpace(string(v))); err == nil {
			return b, nil
		}
		for _, c := range v {
			if c != 0 {
				return true, nil
			}
		}
		return false, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("malformed boolean value %q", v)
		}
		return b, nil
	default:
		f, err := toFloat64(val)
		if err != nil {
			return false, fmt.Errorf("cannot convert %T to a boolean", val)
		}
		return f != 0, nil
	}
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

func toTime(val any, loc *time.Location) (time.Time, error) {
	switch v := val.(type) {
	case time.Time:
		return v, nil
	case []byte:
		return typemap.ParseTemporal(string(v), loc)
	case string:
		return typemap.ParseTemporal(v, loc)
	case int64:
		// SQLite stores dates as unix seconds when asked to.
		return time.Unix(v, 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to a date/time", val)
	}
}
