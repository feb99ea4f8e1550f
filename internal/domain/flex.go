package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FlexInt is an integer that tolerates the numeric schema drift found in
// campaign data: values may be stored as int32, int64, double or string.
type FlexInt int64

func (f FlexInt) Int() int { return int(f) }

// UnmarshalBSONValue implements bson.ValueUnmarshaler.
func (f *FlexInt) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bson.TypeNull, bson.TypeUndefined:
		*f = 0
		return nil
	case bson.TypeInt32:
		var v int32
		if err := bson.UnmarshalValue(t, data, &v); err != nil {
			return err
		}
		*f = FlexInt(v)
		return nil
	case bson.TypeInt64:
		var v int64
		if err := bson.UnmarshalValue(t, data, &v); err != nil {
			return err
		}
		*f = FlexInt(v)
		return nil
	case bson.TypeDouble:
		var v float64
		if err := bson.UnmarshalValue(t, data, &v); err != nil {
			return err
		}
		*f = FlexInt(int64(v))
		return nil
	case bson.TypeString:
		var s string
		if err := bson.UnmarshalValue(t, data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			// Tolerate "10.0" style strings
			fv, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil {
				return fmt.Errorf("cannot coerce %q to int: %w", s, err)
			}
			v = int64(fv)
		}
		*f = FlexInt(v)
		return nil
	default:
		return fmt.Errorf("cannot coerce bson type %s to int", t)
	}
}

// MarshalBSONValue implements bson.ValueMarshaler.
func (f FlexInt) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(int64(f))
}

// FlexDate is a calendar date that may arrive as a BSON datetime or as an
// ISO string, with or without a time component. The zero value means unset.
type FlexDate struct {
	Year  int
	Month time.Month
	Day   int
}

func (d FlexDate) IsZero() bool { return d.Year == 0 }

func (d FlexDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Before reports whether d is strictly earlier than the calendar date of t.
func (d FlexDate) Before(t time.Time) bool {
	y, m, day := t.Date()
	if d.Year != y {
		return d.Year < y
	}
	if d.Month != m {
		return d.Month < m
	}
	return d.Day < day
}

// After reports whether d is strictly later than the calendar date of t.
func (d FlexDate) After(t time.Time) bool {
	y, m, day := t.Date()
	if d.Year != y {
		return d.Year > y
	}
	if d.Month != m {
		return d.Month > m
	}
	return d.Day > day
}

// ParseFlexDate accepts "YYYY-MM-DD" or a full ISO timestamp; anything after
// a 'T' is discarded.
func ParseFlexDate(s string) (FlexDate, error) {
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return FlexDate{}, err
	}
	y, m, d := t.Date()
	return FlexDate{Year: y, Month: m, Day: d}, nil
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler.
func (d *FlexDate) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bson.TypeNull, bson.TypeUndefined:
		*d = FlexDate{}
		return nil
	case bson.TypeDateTime:
		var dt primitive.DateTime
		if err := bson.UnmarshalValue(t, data, &dt); err != nil {
			return err
		}
		tm := dt.Time().UTC()
		y, m, day := tm.Date()
		*d = FlexDate{Year: y, Month: m, Day: day}
		return nil
	case bson.TypeString:
		var s string
		if err := bson.UnmarshalValue(t, data, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*d = FlexDate{}
			return nil
		}
		parsed, err := ParseFlexDate(s)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("cannot coerce bson type %s to date", t)
	}
}

// MarshalBSONValue implements bson.ValueMarshaler.
func (d FlexDate) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if d.IsZero() {
		return bson.MarshalValue(primitive.Null{})
	}
	return bson.MarshalValue(d.String())
}

// FlexID normalizes identifier values that may be stored as ObjectIDs or as
// plain strings. The domain only ever sees the opaque string form.
type FlexID string

func (f FlexID) String() string { return string(f) }

// UnmarshalBSONValue implements bson.ValueUnmarshaler.
func (f *FlexID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bson.TypeNull, bson.TypeUndefined:
		*f = ""
		return nil
	case bson.TypeObjectID:
		var oid primitive.ObjectID
		if err := bson.UnmarshalValue(t, data, &oid); err != nil {
			return err
		}
		*f = FlexID(oid.Hex())
		return nil
	case bson.TypeString:
		var s string
		if err := bson.UnmarshalValue(t, data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	default:
		return fmt.Errorf("cannot coerce bson type %s to id", t)
	}
}

// MarshalBSONValue implements bson.ValueMarshaler. Identifiers the engine
// writes itself are plain strings.
func (f FlexID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(string(f))
}
