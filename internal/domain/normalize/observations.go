// Package normalize turns heterogeneous food-waste observations into
// canonical record batches.
//
// Three input shapes are accepted: a mapping of food name to mass, a list of
// loosely-keyed records, and tabular rows with named columns. Callers either
// build one of the Observations variants directly or pass any value to
// Detect, which picks the variant from the value's structure.
package normalize

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
)

// Shape identifies which variant of Observations a batch is.
type Shape int

// Supported shapes.
const (
	ShapeMapping Shape = iota + 1
	ShapeItems
	ShapeTable
)

func (s Shape) String() string {
	switch s {
	case ShapeMapping:
		return "mapping"
	case ShapeItems:
		return "items"
	case ShapeTable:
		return "table"
	default:
		return "unknown"
	}
}

// Observations is the closed set of accepted input shapes.
// The unexported methods keep the variants inside this package.
type Observations interface {
	Shape() Shape
	parse(p params) (parsed, error)
	writeCanonical(w io.Writer)
}

// Masses maps food name to disposal mass. Output is ordered by name.
type Masses map[string]float64

// Mapping is a loosely-typed name to mass mapping, typically a decoded JSON
// object. Values are coerced to numbers; entries that do not coerce are dropped.
type Mapping map[string]any

// Pair is one entry of an ordered mapping.
type Pair struct {
	Name string
	Mass float64
}

// Pairs is a mapping that keeps caller order.
type Pairs []Pair

// Items is a list of loosely-keyed records. A nil element stands for an
// entry that was not a string-keyed map and is always dropped.
type Items []map[string]any

// Tabular is satisfied by anything that exposes named columns and rows.
type Tabular interface {
	Columns() []string
	Rows() [][]any
}

// Default table column names.
const (
	DefaultNameColumn     = "food_name"
	DefaultMassColumn     = "disposal_mass"
	DefaultLocationColumn = "location"
)

// Table holds tabular rows. Empty column names fall back to the defaults.
type Table struct {
	Header []string `json:"columns"`
	Data   [][]any  `json:"rows"`

	NameColumn     string `json:"name_column,omitempty"`
	MassColumn     string `json:"mass_column,omitempty"`
	LocationColumn string `json:"location_column,omitempty"`
}

// Columns implements Tabular.
func (t Table) Columns() []string { return t.Header }

// Rows implements Tabular.
func (t Table) Rows() [][]any { return t.Data }

func (Masses) Shape() Shape  { return ShapeMapping }
func (Mapping) Shape() Shape { return ShapeMapping }
func (Pairs) Shape() Shape   { return ShapeMapping }
func (Items) Shape() Shape   { return ShapeItems }
func (Table) Shape() Shape   { return ShapeTable }

// Detect classifies v by its structure: Observations pass through, anything
// implementing Tabular is a table, string-keyed maps are mappings, and
// slices or arrays of maps (or of interface values) are item lists.
func Detect(v any) (Observations, error) {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, fmt.Errorf("%w: nil %s", ErrDataFormat, rv.Type())
	}
	switch t := v.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil input", ErrDataFormat)
	case Observations:
		return t, nil
	case Tabular:
		return Table{Header: t.Columns(), Data: t.Rows()}, nil
	case map[string]float64:
		return Masses(t), nil
	case map[string]any:
		return Mapping(t), nil
	case []map[string]any:
		return Items(t), nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil %s", ErrDataFormat, rv.Type())
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map key must be text, got %s", ErrDataFormat, rv.Type().Key())
		}
		return Mapping(stringKeyedMap(rv)), nil
	case reflect.Slice, reflect.Array:
		elem := rv.Type().Elem()
		switch {
		case elem.Kind() == reflect.Map && elem.Key().Kind() == reflect.String:
		case elem.Kind() == reflect.Interface:
		default:
			return nil, fmt.Errorf("%w: unsupported element type %s", ErrDataFormat, elem)
		}
		items := make(Items, rv.Len())
		for i := range items {
			items[i] = asItem(rv.Index(i))
		}
		return items, nil
	default:
		return nil, fmt.Errorf("%w: unsupported type %s", ErrDataFormat, rv.Type())
	}
}

// asItem returns the element as a string-keyed map, or nil when it is not one.
func asItem(v reflect.Value) map[string]any {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
		return nil
	}
	return stringKeyedMap(v)
}

func stringKeyedMap(v reflect.Value) map[string]any {
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// writeCanonical implementations feed the content fingerprint. Each shape
// writes a stable encoding so equal content always hashes equally.

func (m Masses) writeCanonical(w io.Writer) {
	fmt.Fprint(w, "mapping\n")
	for _, k := range sortedKeys(m) {
		fmt.Fprintf(w, "%q=%v\n", k, m[k])
	}
}

func (m Mapping) writeCanonical(w io.Writer) {
	fmt.Fprint(w, "mapping\n")
	for _, k := range sortedKeys(m) {
		fmt.Fprintf(w, "%q=%v\n", k, m[k])
	}
}

func (p Pairs) writeCanonical(w io.Writer) {
	fmt.Fprint(w, "mapping\n")
	for _, e := range p {
		fmt.Fprintf(w, "%q=%v\n", e.Name, e.Mass)
	}
}

func (it Items) writeCanonical(w io.Writer) {
	fmt.Fprint(w, "items\n")
	for _, item := range it {
		// encoding/json sorts map keys.
		b, err := json.Marshal(item)
		if err != nil {
			fmt.Fprintf(w, "%v\n", item)
			continue
		}
		_, _ = w.Write(b)
		fmt.Fprint(w, "\n")
	}
}

func (t Table) writeCanonical(w io.Writer) {
	fmt.Fprint(w, "table\n")
	fmt.Fprintf(w, "%q\n", t.Header)
	for _, row := range t.Data {
		fmt.Fprintf(w, "%v\n", row)
	}
}

// SortedPairs converts m to Pairs ordered by name.
func SortedPairs(m map[string]float64) Pairs {
	out := make(Pairs, 0, len(m))
	for _, k := range sortedKeys(m) {
		out = append(out, Pair{Name: k, Mass: m[k]})
	}
	return out
}
