package flow

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ParamType is the primitive type tag of a parameter.
type ParamType int

const (
	ParamInt ParamType = iota + 1
	ParamDouble
	ParamString
	ParamEnum
	ParamBool
)

func (t ParamType) String() string {
	switch t {
	case ParamInt:
		return "int"
	case ParamDouble:
		return "double"
	case ParamString:
		return "string"
	case ParamEnum:
		return "enum"
	case ParamBool:
		return "bool"
	}
	return "unknown"
}

// ParamVerbosity is the base parameter every filter carries.
const ParamVerbosity = "Verbosity"

// Verbosity gates per-filter diagnostics. At VerbosityMax handler timing is
// always recorded.
type Verbosity int

const (
	VerbosityNone Verbosity = iota
	VerbosityLow
	VerbosityMedium
	VerbosityHigh
	VerbosityMax
)

var verbosityNames = [...]string{"none", "low", "medium", "high", "max"}

func (v Verbosity) String() string {
	if v < 0 || int(v) >= len(verbosityNames) {
		return fmt.Sprintf("Verbosity(%d)", int(v))
	}
	return verbosityNames[v]
}

// ParseVerbosity resolves a verbosity name.
func ParseVerbosity(s string) (Verbosity, error) {
	for i, name := range verbosityNames {
		if strings.EqualFold(s, name) {
			return Verbosity(i), nil
		}
	}
	return VerbosityNone, fmt.Errorf("unknown verbosity %q", s)
}

// ParamSpec declares one parameter. For ParamEnum, Default is an index into
// Enum.
type ParamSpec struct {
	Name    string    `json:"name"`
	Type    ParamType `json:"type"`
	Default any       `json:"default"`
	Enum    []string  `json:"enum,omitempty"`
}

// Declaration is a parameter spec with its current value, the surface
// editors and persistence read.
type Declaration struct {
	ParamSpec
	Value any `json:"value"`
}

// Parameters is a filter's ordered parameter set.
type Parameters struct {
	owner  string
	specs  []ParamSpec
	index  map[string]int
	values []any
}

func (p *Parameters) declare(spec ParamSpec) {
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if i, ok := p.index[spec.Name]; ok {
		p.specs[i] = spec
		p.values[i] = spec.Default
		return
	}
	p.index[spec.Name] = len(p.specs)
	p.specs = append(p.specs, spec)
	p.values = append(p.values, spec.Default)
}

// Declarations returns every parameter in declaration order.
func (p *Parameters) Declarations() []Declaration {
	out := make([]Declaration, len(p.specs))
	for i, spec := range p.specs {
		out[i] = Declaration{ParamSpec: spec, Value: p.values[i]}
	}
	return out
}

// Values returns the current values keyed by name. Enums are reported by
// name.
func (p *Parameters) Values() map[string]any {
	out := make(map[string]any, len(p.specs))
	for i, spec := range p.specs {
		v := p.values[i]
		if spec.Type == ParamEnum {
			v = spec.Enum[v.(int)]
		}
		out[spec.Name] = v
	}
	return out
}

// Int returns an int parameter, or 0 if name is not an int parameter.
func (p *Parameters) Int(name string) int {
	v, _ := p.lookup(name, ParamInt).(int)
	return v
}

// Double returns a double parameter, or 0 if name is not a double parameter.
func (p *Parameters) Double(name string) float64 {
	v, _ := p.lookup(name, ParamDouble).(float64)
	return v
}

// Text returns a string parameter.
func (p *Parameters) Text(name string) string {
	v, _ := p.lookup(name, ParamString).(string)
	return v
}

// Bool returns a bool parameter.
func (p *Parameters) Bool(name string) bool {
	v, _ := p.lookup(name, ParamBool).(bool)
	return v
}

// EnumIndex returns the index of an enum parameter's value.
func (p *Parameters) EnumIndex(name string) int {
	v, _ := p.lookup(name, ParamEnum).(int)
	return v
}

// Enum returns the name of an enum parameter's value.
func (p *Parameters) Enum(name string) string {
	i, ok := p.index[name]
	if !ok || p.specs[i].Type != ParamEnum {
		return ""
	}
	return p.specs[i].Enum[p.values[i].(int)]
}

func (p *Parameters) lookup(name string, t ParamType) any {
	i, ok := p.index[name]
	if !ok || p.specs[i].Type != t {
		return nil
	}
	return p.values[i]
}

func (p *Parameters) set(name string, v any) {
	if i, ok := p.index[name]; ok {
		p.values[i] = v
	}
}

func (p *Parameters) snapshot() []any {
	return append([]any(nil), p.values...)
}

func (p *Parameters) restore(values []any) {
	p.values = values
}

// apply converts and binds values atomically.
func (p *Parameters) apply(values map[string]any) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	next := p.snapshot()
	for _, name := range names {
		raw := values[name]
		i, ok := p.index[name]
		if !ok {
			return &ParameterConversionError{Filter: p.owner, Parameter: name, Value: raw, Err: errors.New("no such parameter")}
		}
		v, err := convertParam(p.specs[i], raw)
		if err != nil {
			return &ParameterConversionError{Filter: p.owner, Parameter: name, Value: raw, Want: p.specs[i].Type, Err: err}
		}
		next[i] = v
	}
	p.values = next
	return nil
}

func convertParam(spec ParamSpec, raw any) (any, error) {
	switch spec.Type {
	case ParamInt:
		return toInt(raw)
	case ParamDouble:
		return toFloat(raw)
	case ParamString:
		s, ok := raw.(string)
		if !ok {
			return nil, errors.New("not a string")
		}
		return s, nil
	case ParamBool:
		return toBool(raw)
	case ParamEnum:
		if s, ok := raw.(string); ok {
			for i, name := range spec.Enum {
				if strings.EqualFold(s, name) {
					return i, nil
				}
			}
			if n, err := strconv.Atoi(s); err == nil {
				raw = n
			} else {
				return nil, fmt.Errorf("not one of %s", strings.Join(spec.Enum, "|"))
			}
		}
		n, err := toInt(raw)
		if err != nil {
			return nil, err
		}
		if n < 0 || n >= len(spec.Enum) {
			return nil, fmt.Errorf("index %d out of range [0,%d)", n, len(spec.Enum))
		}
		return n, nil
	}
	return nil, fmt.Errorf("undeclared type %d", int(spec.Type))
}

func toInt(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint8:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint32:
		return int(v), nil
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, errors.New("not an integer")
		}
		return n, nil
	}
	return 0, errors.New("not an integer")
}

func floatToInt(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, errors.New("not an integral number")
	}
	if f < math.MinInt || f >= math.MaxInt {
		return 0, errors.New("integer out of range")
	}
	return int(f), nil
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, errors.New("not a number")
		}
		return f, nil
	}
	return 0, errors.New("not a number")
}

func toBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, errors.New("not a boolean")
		}
		return b, nil
	case int, int64, float64:
		n, err := toInt(v)
		if err != nil || (n != 0 && n != 1) {
			return false, errors.New("not a boolean")
		}
		return n == 1, nil
	}
	return false, errors.New("not a boolean")
}
