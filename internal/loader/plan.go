package loader

import (
	"fmt"
	"strconv"

	"sqlbridge/internal/dataset"
	"sqlbridge/internal/driver"
	"sqlbridge/internal/typemap"
)

// ColumnDescriptor records how one result column is loaded.
type ColumnDescriptor struct {
	Label    string
	TypeName string
	Code     typemap.TypeCode
	// Name and Index identify the dataset variable.
	Name  string
	Index int
	Kind  dataset.Kind
	Width int
	// Reused is set when the variable existed before the query.
	Reused bool
}

// plan maps every column to a variable without touching the host, so a
// column that cannot be loaded aborts the query before anything is declared.
func (l *Loader) plan(dialect string, cols []driver.Column) ([]ColumnDescriptor, error) {
	descs := make([]ColumnDescriptor, len(cols))
	taken := make(map[string]bool, len(cols))
	for i, c := range cols {
		code := typemap.Classify(dialect, c.TypeName)
		decl, err := typemap.DeclareHostColumn(code, c.Length, c.Label)
		if err != nil {
			return nil, err
		}

		name := uniqueName(l.host.MakeVarName(c.Label), taken)
		taken[name] = true

		d := ColumnDescriptor{
			Label:    c.Label,
			TypeName: c.TypeName,
			Code:     code,
			Name:     name,
			Index:    -1,
			Kind:     decl.Kind,
			Width:    decl.Width,
		}
		if idx, ok := l.host.VarIndex(name); ok {
			info, _ := l.host.VarInfo(idx)
			if !compatible(info, decl) {
				return nil, fmt.Errorf("%w: column %q needs %s, variable %s is %s",
					ErrColumnTypeConflict, c.Label, describeKind(decl.Kind, decl.Width), name, describeKind(info.Kind, info.Width))
			}
			d.Index, d.Kind, d.Width, d.Reused = idx, info.Kind, info.Width, true
		}
		descs[i] = d
	}
	return descs, nil
}

// declare adds the variables the plan does not reuse.
func (l *Loader) declare(descs []ColumnDescriptor) error {
	for i := range descs {
		d := &descs[i]
		if d.Reused {
			continue
		}
		idx, err := l.host.AddVar(d.Name, d.Kind, d.Width)
		if err != nil {
			return newExecutionError("declare variable %s: %w", d.Name, err)
		}
		d.Index = idx
		if d.Kind == dataset.Str {
			l.printf("Added new Str variable '%s' of length %d to dataset.\n", d.Name, d.Width)
		} else {
			l.printf("Added new %s variable '%s' to dataset.\n", d.Kind, d.Name)
		}
	}
	return nil
}

func compatible(existing dataset.VarInfo, want typemap.Declaration) bool {
	switch {
	case existing.Kind == dataset.StrL && want.Kind.IsString():
		return true
	case existing.Kind == dataset.Str && want.Kind == dataset.Str:
		return existing.Width >= want.Width
	default:
		return existing.Kind == want.Kind
	}
}

// uniqueName suffixes _2, _3, ... until name is not taken, keeping the
// result within the maximum name length.
func uniqueName(name string, taken map[string]bool) string {
	if !taken[name] {
		return name
	}
	for n := 2; ; n++ {
		suffix := "_" + strconv.Itoa(n)
		base := name
		if len(base)+len(suffix) > dataset.MaxNameLength {
			base = base[:dataset.MaxNameLength-len(suffix)]
		}
		if candidate := base + suffix; !taken[candidate] {
			return candidate
		}
	}
}

func describeKind(kind dataset.Kind, width int) string {
	if kind == dataset.Str {
		return "Str" + strconv.Itoa(width)
	}
	return kind.String()
}
