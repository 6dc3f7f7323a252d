package dataset

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
)

// Describe writes the variable list with storage types.
func (d *Dataset) Describe(w io.Writer) error {
	fmt.Fprintf(w, "Observations: %d\nVariables:    %d\n\n", d.obs, len(d.vars))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tvariable\ttype")
	for i, v := range d.vars {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, v.info.Name, storageType(v.info))
	}
	return tw.Flush()
}

// List writes the first n observations (all when n <= 0).
func (d *Dataset) List(w io.Writer, n int64) error {
	if n <= 0 || n > d.obs {
		n = d.obs
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "obs")
	for _, v := range d.vars {
		fmt.Fprintf(tw, "\t%s", v.info.Name)
	}
	fmt.Fprintln(tw)
	for obs := int64(1); obs <= n; obs++ {
		fmt.Fprint(tw, obs)
		for i := range d.vars {
			fmt.Fprintf(tw, "\t%s", display(d.Value(i, obs)))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func storageType(v VarInfo) string {
	switch v.Kind {
	case Byte:
		return "byte"
	case Int:
		return "int"
	case Long:
		return "long"
	case Float:
		return "float"
	case Double:
		return "double"
	case Str:
		return "str" + strconv.Itoa(v.Width)
	case StrL:
		return "strL"
	default:
		return v.Kind.String()
	}
}

func display(val any) string {
	switch v := val.(type) {
	case nil:
		return "."
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
