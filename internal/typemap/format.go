package typemap

import (
	"fmt"
	"strings"
	"time"
)

// Layouts of the fixed string forms. Zones are written as a numeric offset.
const (
	DateLayout        = "2006-01-02"
	TimeLayout        = "15:04:05.000000"
	TimeTZLayout      = "15:04:05.000000-0700"
	TimestampLayout   = "2006-01-02 15:04:05.000000"
	TimestampTZLayout = "2006-01-02T15:04:05.000000-0700"
)

// Format renders t for a temporal column. Zoned values are shown in loc
// when it is non-nil, otherwise in their own zone.
func Format(code TypeCode, t time.Time, loc *time.Location) (string, error) {
	switch code {
	case TypeDate:
		return t.Format(DateLayout), nil
	case TypeTime:
		return t.Format(TimeLayout), nil
	case TypeTimeTZ:
		return timeOfDayInZone(t, loc, time.Now()).Format(TimeTZLayout), nil
	case TypeTimestamp:
		return t.Format(TimestampLayout), nil
	case TypeTimestampTZ:
		return inZone(t, loc).Format(TimestampTZLayout), nil
	default:
		return "", fmt.Errorf("%s is not a date/time type", code)
	}
}

func inZone(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return t.In(loc)
}

// timeOfDayInZone converts a zoned time of day. The value has no real date
// (lib/pq dates it 0000-01-01), so loc's offset is taken at now instead of
// the zone's historical offset for year 0.
func timeOfDayInZone(t time.Time, loc *time.Location, now time.Time) time.Time {
	if loc == nil {
		return t
	}
	name, offset := now.In(loc).Zone()
	return t.In(time.FixedZone(name, offset))
}

// textLayouts are tried in order when a driver hands a temporal value over
// as text (MySQL TIME, PostgreSQL TIMETZ, SQLite).
var textLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z07",
	"2006-01-02T15:04:05Z07",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"15:04:05Z07:00",
	"15:04:05Z07",
	"15:04:05",
}

// ParseTemporal parses the textual form of a date/time value. Values without
// a zone are read in loc (UTC when nil).
func ParseTemporal(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	for _, layout := range textLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed date/time value %q", s)
}
