package typemap

import (
	"fmt"

	"sqlbridge/internal/dataset"
)

// Widths of the fixed string forms of temporal values.
const (
	DateWidth        = 10
	TimeWidth        = 15
	TimeTZWidth      = 20
	TimestampWidth   = 26
	TimestampTZWidth = 31
)

// UnsupportedColumnTypeError aborts a query whose result has a column the
// dataset cannot hold.
type UnsupportedColumnTypeError struct {
	Label    string
	TypeName string
}

func (e *UnsupportedColumnTypeError) Error() string {
	if e.TypeName == "" {
		return fmt.Sprintf("unsupported result column type for column: %s", e.Label)
	}
	return fmt.Sprintf("unsupported result column type %s for column: %s", e.TypeName, e.Label)
}

// Declaration is the dataset variable a source column becomes.
type Declaration struct {
	Kind  dataset.Kind
	Width int
}

// DeclareHostColumn returns the variable kind (and width, for fixed strings)
// for a source column. Text columns get a Str of their display size, except:
//   - displaySize <= 0 means the driver did not report one. Such columns
//     become StrL. This is every CHAR/VARCHAR column on MySQL, whose driver
//     exposes no column length.
//   - columns wider than dataset.MaxStrWidth, the dataset's fixed-string
//     limit, also become StrL.
func DeclareHostColumn(code TypeCode, displaySize int64, label string) (Declaration, error) {
	switch code {
	case TypeBigInt, TypeRowID:
		return Declaration{Kind: dataset.Long}, nil
	case TypeInteger, TypeSmallInt, TypeTinyInt:
		return Declaration{Kind: dataset.Int}, nil
	case TypeBoolean, TypeBit:
		return Declaration{Kind: dataset.Byte}, nil
	case TypeDecimal, TypeNumeric, TypeDouble:
		return Declaration{Kind: dataset.Double}, nil
	case TypeFloat, TypeReal:
		return Declaration{Kind: dataset.Float}, nil
	case TypeChar, TypeNChar, TypeVarChar, TypeNVarChar:
		if displaySize <= 0 || displaySize > dataset.MaxStrWidth {
			return Declaration{Kind: dataset.StrL}, nil
		}
		return Declaration{Kind: dataset.Str, Width: int(displaySize)}, nil
	case TypeLongVarChar, TypeLongNVarChar, TypeClob, TypeNClob:
		return Declaration{Kind: dataset.StrL}, nil
	case TypeDate:
		return Declaration{Kind: dataset.Str, Width: DateWidth}, nil
	case TypeTime:
		return Declaration{Kind: dataset.Str, Width: TimeWidth}, nil
	case TypeTimeTZ:
		return Declaration{Kind: dataset.Str, Width: TimeTZWidth}, nil
	case TypeTimestamp:
		return Declaration{Kind: dataset.Str, Width: TimestampWidth}, nil
	case TypeTimestampTZ:
		return Declaration{Kind: dataset.Str, Width: TimestampTZWidth}, nil
	case TypeUnknown:
		return Declaration{}, &UnsupportedColumnTypeError{Label: label}
	default:
		return Declaration{}, &UnsupportedColumnTypeError{Label: label, TypeName: code.String()}
	}
}
