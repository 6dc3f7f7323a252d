// Package typemap maps database column types onto dataset variable kinds and
// renders date/time values in their fixed string form.
package typemap

import "fmt"

// TypeCode is the closed set of source column types the loader understands.
// Database drivers report type names; Classify turns them into a TypeCode.
type TypeCode int

const (
	TypeUnknown TypeCode = iota
	TypeBigInt
	TypeRowID
	TypeInteger
	TypeSmallInt
	TypeTinyInt
	TypeBoolean
	TypeBit
	TypeDecimal
	TypeNumeric
	TypeDouble
	TypeFloat
	TypeReal
	TypeChar
	TypeNChar
	TypeVarChar
	TypeNVarChar
	TypeLongVarChar
	TypeLongNVarChar
	TypeClob
	TypeNClob
	TypeDate
	TypeTime
	TypeTimeTZ
	TypeTimestamp
	TypeTimestampTZ
)

var typeNames = [...]string{
	TypeUnknown:      "UNKNOWN",
	TypeBigInt:       "BIGINT",
	TypeRowID:        "ROWID",
	TypeInteger:      "INTEGER",
	TypeSmallInt:     "SMALLINT",
	TypeTinyInt:      "TINYINT",
	TypeBoolean:      "BOOLEAN",
	TypeBit:          "BIT",
	TypeDecimal:      "DECIMAL",
	TypeNumeric:      "NUMERIC",
	TypeDouble:       "DOUBLE",
	TypeFloat:        "FLOAT",
	TypeReal:         "REAL",
	TypeChar:         "CHAR",
	TypeNChar:        "NCHAR",
	TypeVarChar:      "VARCHAR",
	TypeNVarChar:     "NVARCHAR",
	TypeLongVarChar:  "LONGVARCHAR",
	TypeLongNVarChar: "LONGNVARCHAR",
	TypeClob:         "CLOB",
	TypeNClob:        "NCLOB",
	TypeDate:         "DATE",
	TypeTime:         "TIME",
	TypeTimeTZ:       "TIME_WITH_TIMEZONE",
	TypeTimestamp:    "TIMESTAMP",
	TypeTimestampTZ:  "TIMESTAMP_WITH_TIMEZONE",
}

func (c TypeCode) String() string {
	if c >= 0 && int(c) < len(typeNames) {
		return typeNames[c]
	}
	return fmt.Sprintf("TypeCode(%d)", int(c))
}

// Category groups type codes that share a transfer rule.
type Category int

const (
	CategoryUnsupported Category = iota
	CategoryInteger
	CategoryBoolean
	CategoryFloat
	CategoryText
	CategoryTemporal
)

// Category returns the transfer category of c.
func (c TypeCode) Category() Category {
	switch c {
	case TypeBigInt, TypeRowID, TypeInteger, TypeSmallInt, TypeTinyInt:
		return CategoryInteger
	case TypeBoolean, TypeBit:
		return CategoryBoolean
	case TypeDecimal, TypeNumeric, TypeDouble, TypeFloat, TypeReal:
		return CategoryFloat
	case TypeChar, TypeNChar, TypeVarChar, TypeNVarChar, TypeLongVarChar, TypeLongNVarChar, TypeClob, TypeNClob:
		return CategoryText
	case TypeDate, TypeTime, TypeTimeTZ, TypeTimestamp, TypeTimestampTZ:
		return CategoryTemporal
	case TypeUnknown:
		return CategoryUnsupported
	default:
		return CategoryUnsupported
	}
}
