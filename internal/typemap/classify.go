package typemap

import (
	"strconv"
	"strings"
)

// Dialect names as reported by driver.Driver.Name.
const (
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
	DialectMongo    = "mongo"
)

// ansiTypes covers standard SQL spellings. SQLite reports the declared type
// verbatim, so most of its columns resolve here.
var ansiTypes = map[string]TypeCode{
	"BIGINT":                      TypeBigInt,
	"INT8":                        TypeBigInt,
	"ROWID":                       TypeRowID,
	"INTEGER":                     TypeInteger,
	"INT":                         TypeInteger,
	"MEDIUMINT":                   TypeInteger,
	"SMALLINT":                    TypeSmallInt,
	"TINYINT":                     TypeTinyInt,
	"BOOLEAN":                     TypeBoolean,
	"BOOL":                        TypeBoolean,
	"BIT":                         TypeBit,
	"DECIMAL":                     TypeDecimal,
	"DEC":                         TypeDecimal,
	"NUMERIC":                     TypeNumeric,
	"DOUBLE":                      TypeDouble,
	"DOUBLE PRECISION":            TypeDouble,
	"FLOAT":                       TypeFloat,
	"REAL":                        TypeReal,
	"CHAR":                        TypeChar,
	"CHARACTER":                   TypeChar,
	"NCHAR":                       TypeNChar,
	"NATIONAL CHARACTER":          TypeNChar,
	"VARCHAR":                     TypeVarChar,
	"CHARACTER VARYING":           TypeVarChar,
	"VARYING CHARACTER":           TypeVarChar,
	"NVARCHAR":                    TypeNVarChar,
	"NATIONAL VARCHAR":            TypeNVarChar,
	"TEXT":                        TypeLongVarChar,
	"LONG VARCHAR":                TypeLongVarChar,
	"LONGVARCHAR":                 TypeLongVarChar,
	"LONGNVARCHAR":                TypeLongNVarChar,
	"CLOB":                        TypeClob,
	"NCLOB":                       TypeNClob,
	"DATE":                        TypeDate,
	"TIME":                        TypeTime,
	"TIME WITH TIME ZONE":         TypeTimeTZ,
	"TIMESTAMP":                   TypeTimestamp,
	"DATETIME":                    TypeTimestamp,
	"TIMESTAMP WITH TIME ZONE":    TypeTimestampTZ,
	"TIMESTAMP WITHOUT TIME ZONE": TypeTimestamp,
	"TIME WITHOUT TIME ZONE":      TypeTime,
}

// dialectTypes override ansiTypes for names a driver spells its own way.
var dialectTypes = map[string]map[string]TypeCode{
	DialectMySQL: {
		// go-sql-driver/mysql reports "UNSIGNED <TYPE>" for unsigned columns.
		"UNSIGNED BIGINT":    TypeBigInt,
		"UNSIGNED INT":       TypeBigInt,
		"UNSIGNED MEDIUMINT": TypeInteger,
		"UNSIGNED SMALLINT":  TypeInteger,
		"UNSIGNED TINYINT":   TypeSmallInt,
		"YEAR":               TypeSmallInt,
		"FLOAT":              TypeReal,
		"TINYTEXT":           TypeLongVarChar,
		"MEDIUMTEXT":         TypeLongVarChar,
		"LONGTEXT":           TypeLongVarChar,
		"ENUM":               TypeChar,
		"SET":                TypeChar,
	},
	DialectPostgres: {
		"INT4":        TypeInteger,
		"INT2":        TypeSmallInt,
		"FLOAT8":      TypeDouble,
		"FLOAT4":      TypeReal,
		"BPCHAR":      TypeChar,
		"TIMETZ":      TypeTimeTZ,
		"TIMESTAMPTZ": TypeTimestampTZ,
	},
	DialectMongo: {
		"DOCUMENT": TypeClob,
	},
}

// Classify resolves a driver type name, e.g. "VARCHAR(50)" or
// "unsigned int", to a TypeCode. Unknown names yield TypeUnknown.
func Classify(dialect, typeName string) TypeCode {
	base, _, _ := SplitTypeName(typeName)
	if base == "" {
		return TypeUnknown
	}
	if m, ok := dialectTypes[dialect]; ok {
		if code, ok := m[base]; ok {
			return code
		}
	}
	if code, ok := ansiTypes[base]; ok {
		return code
	}
	return TypeUnknown
}

// SplitTypeName normalizes a type name and extracts a length parameter:
// "varchar(50)" gives ("VARCHAR", 50, true), "DECIMAL(10,2)" gives
// ("DECIMAL", 10, true).
func SplitTypeName(typeName string) (base string, length int64, ok bool) {
	s := strings.ToUpper(strings.TrimSpace(typeName))
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return strings.Join(strings.Fields(s), " "), 0, false
	}

	// "TIMESTAMP(6) WITH TIME ZONE" keeps its suffix.
	words := strings.Fields(s[:open])
	rest := s[open+1:]
	if closing := strings.IndexByte(rest, ')'); closing >= 0 {
		words = append(words, strings.Fields(rest[closing+1:])...)
		rest = rest[:closing]
	}
	base = strings.Join(words, " ")
	if comma := strings.IndexByte(rest, ','); comma >= 0 {
		rest = rest[:comma]
	}
	n, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
	if err != nil || n <= 0 {
		return base, 0, false
	}
	return base, n, true
}
