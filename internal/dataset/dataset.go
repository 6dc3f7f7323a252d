package dataset

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// Kind is the storage type of a dataset variable.
type Kind int

const (
	Byte Kind = iota + 1
	Int
	Long
	Float
	Double
	Str
	StrL
)

// MaxStrWidth is the widest fixed-width string variable the dataset supports.
// Wider text has to be stored as StrL.
const MaxStrWidth = 2045

func (k Kind) String() string {
	switch k {
	case Byte:
		return "Byte"
	case Int:
		return "Integer"
	case Long:
		return "Long"
	case Float:
		return "Float"
	case Double:
		return "Double"
	case Str:
		return "Str"
	case StrL:
		return "StrL"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsString reports whether values of this kind are stored with StoreStr.
func (k Kind) IsString() bool {
	return k == Str || k == StrL
}

var (
	ErrNoSuchVariable    = errors.New("no such variable")
	ErrVariableExists    = errors.New("variable already exists")
	ErrObsOutOfRange     = errors.New("observation out of range")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrValueOutOfRange   = errors.New("value out of range for variable type")
	ErrShrinkObservation = errors.New("observation count can only grow")
)

// VarInfo describes one variable.
type VarInfo struct {
	Name  string
	Kind  Kind
	Width int // only meaningful for Str
}

type variable struct {
	info VarInfo
	nums []float64
	strs []string
	set  []bool
}

// Dataset is an in-memory, append-only columnar table of observations.
// Variables are addressed by 0-based index, observations are 1-based.
// It is not safe for concurrent use.
type Dataset struct {
	vars  []*variable
	index map[string]int
	obs   int64
}

// New returns an empty dataset.
func New() *Dataset {
	return &Dataset{index: make(map[string]int)}
}

// ObsTotal returns the number of observations.
func (d *Dataset) ObsTotal() int64 {
	return d.obs
}

// SetObsTotal grows the dataset to n observations. New cells are missing.
func (d *Dataset) SetObsTotal(n int64) error {
	if n < d.obs {
		return fmt.Errorf("%w: %d < %d", ErrShrinkObservation, n, d.obs)
	}
	for _, v := range d.vars {
		v.grow(n)
	}
	d.obs = n
	return nil
}

// VarCount returns the number of variables.
func (d *Dataset) VarCount() int {
	return len(d.vars)
}

// VarIndex looks a variable up by name.
func (d *Dataset) VarIndex(name string) (int, bool) {
	idx, ok := d.index[name]
	return idx, ok
}

// VarInfo returns the declaration of the variable at idx.
func (d *Dataset) VarInfo(idx int) (VarInfo, bool) {
	if idx < 0 || idx >= len(d.vars) {
		return VarInfo{}, false
	}
	return d.vars[idx].info, true
}

// Vars returns the declarations of all variables in index order.
func (d *Dataset) Vars() []VarInfo {
	out := make([]VarInfo, len(d.vars))
	for i, v := range d.vars {
		out[i] = v.info
	}
	return out
}

// AddVar declares a new variable and returns its index. Existing
// observations of the new variable are missing.
func (d *Dataset) AddVar(name string, kind Kind, width int) (int, error) {
	if _, ok := d.index[name]; ok {
		return 0, fmt.Errorf("%w: %s", ErrVariableExists, name)
	}
	if !IsValidName(name) {
		return 0, fmt.Errorf("invalid variable name %q", name)
	}
	switch kind {
	case Byte, Int, Long, Float, Double, StrL:
		width = 0
	case Str:
		if width < 1 || width > MaxStrWidth {
			return 0, fmt.Errorf("invalid string width %d for %s", width, name)
		}
	default:
		return 0, fmt.Errorf("invalid kind %v for %s", kind, name)
	}

	v := &variable{info: VarInfo{Name: name, Kind: kind, Width: width}}
	v.grow(d.obs)
	d.vars = append(d.vars, v)
	d.index[name] = len(d.vars) - 1
	return len(d.vars) - 1, nil
}

// StoreNum stores a numeric value. Integer kinds truncate towards zero and
// reject values outside their range.
func (d *Dataset) StoreNum(idx int, obs int64, val float64) error {
	v, err := d.cell(idx, obs)
	if err != nil {
		return err
	}
	if v.info.Kind.IsString() {
		return fmt.Errorf("%w: cannot store number in string variable %s", ErrTypeMismatch, v.info.Name)
	}
	val, err = fit(v.info.Kind, val)
	if err != nil {
		return fmt.Errorf("%s[%d]: %w", v.info.Name, obs, err)
	}
	v.nums[obs-1] = val
	v.set[obs-1] = true
	return nil
}

// StoreStr stores a string value. Str variables keep at most Width bytes,
// cut on a rune boundary.
func (d *Dataset) StoreStr(idx int, obs int64, val string) error {
	v, err := d.cell(idx, obs)
	if err != nil {
		return err
	}
	if !v.info.Kind.IsString() {
		return fmt.Errorf("%w: cannot store string in numeric variable %s", ErrTypeMismatch, v.info.Name)
	}
	if v.info.Kind == Str {
		val = truncate(val, v.info.Width)
	}
	v.strs[obs-1] = val
	v.set[obs-1] = true
	return nil
}

// Value returns the cell at (idx, obs): int64 for integer kinds, float64
// for Float and Double, string for string kinds and nil when missing.
func (d *Dataset) Value(idx int, obs int64) any {
	v, err := d.cell(idx, obs)
	if err != nil || !v.set[obs-1] {
		return nil
	}
	switch v.info.Kind {
	case Byte, Int, Long:
		return int64(v.nums[obs-1])
	case Float, Double:
		return v.nums[obs-1]
	default:
		return v.strs[obs-1]
	}
}

// Row returns all values of one observation.
func (d *Dataset) Row(obs int64) []any {
	row := make([]any, len(d.vars))
	for i := range d.vars {
		row[i] = d.Value(i, obs)
	}
	return row
}

// Clear drops all variables and observations.
func (d *Dataset) Clear() {
	d.vars = nil
	d.index = make(map[string]int)
	d.obs = 0
}

func (d *Dataset) cell(idx int, obs int64) (*variable, error) {
	if idx < 0 || idx >= len(d.vars) {
		return nil, fmt.Errorf("%w: index %d", ErrNoSuchVariable, idx)
	}
	if obs < 1 || obs > d.obs {
		return nil, fmt.Errorf("%w: %d not in 1..%d", ErrObsOutOfRange, obs, d.obs)
	}
	return d.vars[idx], nil
}

func (v *variable) grow(n int64) {
	extra := int(n) - len(v.set)
	if extra <= 0 {
		return
	}
	v.set = append(v.set, make([]bool, extra)...)
	if v.info.Kind.IsString() {
		v.strs = append(v.strs, make([]string, extra)...)
	} else {
		v.nums = append(v.nums, make([]float64, extra)...)
	}
}

func fit(kind Kind, val float64) (float64, error) {
	if math.IsNaN(val) {
		return 0, ErrValueOutOfRange
	}
	var lo, hi float64
	switch kind {
	case Byte:
		lo, hi = math.MinInt8, math.MaxInt8
	case Int:
		lo, hi = math.MinInt32, math.MaxInt32
	case Long:
		lo, hi = math.MinInt64, math.Nextafter(math.MaxInt64, 0)
	case Float:
		if math.Abs(val) > math.MaxFloat32 && !math.IsInf(val, 0) {
			return 0, ErrValueOutOfRange
		}
		return float64(float32(val)), nil
	default:
		return val, nil
	}
	val = math.Trunc(val)
	if val < lo || val > hi {
		return 0, ErrValueOutOfRange
	}
	return val, nil
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	cut := width
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
