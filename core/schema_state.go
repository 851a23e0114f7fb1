package icon

import (
	"encoding/json"
	"sort"
	"strings"
)

// Mode selects which half of a scalar's (load, dump) pair a pass invokes.
type Mode string

const (
	ModeLoad Mode = "load"
	ModeDump Mode = "dump"
)

// State is the schema engine's immutable-by-convention working value
// (spec.md §3 "Schema state"): each pass returns a new Data/Errors pair
// rather than mutating in place, though for efficiency this implementation
// builds the new maps directly rather than copying on every field.
type State struct {
	Mode   Mode
	Root   Type
	Params map[string]any
	Data   map[string]any
}

// nestedErrors marks a sub-map of per-field error messages so a parent
// record field can store it wholesale instead of flattening it too early
// (spec.md §4.2: "propagate nested errors as a sub-map under the parent
// field").
type nestedErrors map[string]any

func (nestedErrors) Error() string { return "nested validation error" }

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok && s == "" {
		return true
	}
	return false
}

// retrieveField implements the `retrieve` pass for a single field
// (spec.md §4.2 item 1): fetch params[field]; substitute a default
// (evaluating a DefaultFunc thunk exactly once) when missing; enforce
// `required`; skip empty, non-required fields.
func retrieveField(s *State, name string, f Field) (raw any, present bool, requiredErr bool, err error) {
	v, ok := s.Params[name]
	if !ok || isEmptyValue(v) {
		if f.Default != nil {
			switch d := f.Default.(type) {
			case DefaultFunc:
				dv, derr := d(s)
				if derr != nil {
					return nil, false, false, derr
				}
				return dv, true, false, nil
			default:
				return d, true, false, nil
			}
		}
		if f.Required {
			return nil, false, true, nil
		}
		return nil, false, false, nil
	}
	return v, true, false, nil
}

// transformValue implements the `transform` pass (spec.md §4.2 item 2):
// dispatch on the type's kind, recursing into nested records/lists and
// resolving Any choices via the sibling discriminant already present in
// s.Data (handled one level up, in transformRecord).
func transformValue(s *State, t Type, raw any) (any, error) {
	switch t.Kind {
	case KindScalar:
		codec, ok := Scalars[t.ScalarTag]
		if !ok {
			panic("icon: schema error: unknown scalar tag " + t.ScalarTag)
		}
		if s.Mode == ModeLoad {
			return codec.Load(raw)
		}
		return codec.Dump(raw)

	case KindEnum:
		tag, ok := raw.(string)
		if !ok {
			return nil, errInvalid
		}
		for _, v := range t.EnumValues {
			if v == tag {
				return tag, nil
			}
		}
		return nil, errInvalid

	case KindList:
		arr, ok := raw.([]any)
		if !ok {
			return nil, errInvalid
		}
		out := make([]any, 0, len(arr))
		for _, el := range arr {
			v, err := transformValue(s, *t.ListElem, el)
			if err != nil {
				return nil, errInvalid
			}
			out = append(out, v)
		}
		return out, nil

	case KindRecord:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, errInvalid
		}
		sub := &State{Mode: s.Mode, Root: t, Params: m, Data: map[string]any{}}
		data, errs := transformRecord(sub, t)
		if len(errs) > 0 {
			return nil, nestedErrors(errs)
		}
		return data, nil

	case KindAny:
		// Any is only ever resolved by transformRecord, which has access
		// to the sibling discriminant value; reaching here is a
		// programmer error (an Any type used outside a record field).
		panic("icon: schema error: {any,...} used outside a record field")

	default:
		panic("icon: schema error: unknown type kind")
	}
}

// orderedFieldNames returns field names with Any-typed fields moved last,
// guaranteeing their discriminant (an ordinary sibling field) has already
// been loaded into s.Data — the "topological sort" the Any design note
// calls for, done at apply time rather than at compile time.
func orderedFieldNames(t Type) []string {
	var plain, anyFields []string
	order := t.FieldOrder
	if len(order) == 0 {
		for name := range t.Fields {
			order = append(order, name)
		}
		sort.Strings(order)
	}
	for _, name := range order {
		if t.Fields[name].Type.Kind == KindAny {
			anyFields = append(anyFields, name)
		} else {
			plain = append(plain, name)
		}
	}
	return append(plain, anyFields...)
}

// transformRecord applies retrieve+transform across every field of a
// record, including the `$variable` wildcard and Any discriminated
// union resolution (spec.md §3, §4.2).
func transformRecord(s *State, t Type) (map[string]any, map[string]any) {
	result := map[string]any{}
	errs := map[string]any{}

	if wf, ok := t.Fields[Variable]; ok {
		keys := make([]string, 0, len(s.Params))
		for k := range s.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, named := t.Fields[k]; named {
				continue
			}
			v := s.Params[k]
			val, err := transformValue(s, wf.Type, v)
			if err != nil {
				if ne, ok := err.(nestedErrors); ok {
					errs[k] = map[string]any(ne)
				} else {
					errs[k] = "is invalid"
				}
				continue
			}
			result[k] = val
			s.Data[k] = val
		}
	}

	for _, name := range orderedFieldNames(t) {
		f := t.Fields[name]

		if f.Type.Kind == KindAny {
			discVal, ok := s.Data[f.Type.AnyDiscriminant]
			if !ok {
				if f.Required {
					errs[name] = "is required"
				}
				continue
			}
			discStr, ok := discVal.(string)
			if !ok {
				errs[name] = "is invalid"
				continue
			}
			choiceType, ok := f.Type.AnyChoices[discStr]
			if !ok {
				errs[name] = "is invalid"
				continue
			}
			raw, present, reqErr, err := retrieveField(s, name, f)
			if err != nil {
				errs[name] = err.Error()
				continue
			}
			if reqErr {
				errs[name] = "is required"
				continue
			}
			if !present {
				continue
			}
			val, terr := transformValue(s, choiceType, raw)
			if terr != nil {
				if ne, ok := terr.(nestedErrors); ok {
					errs[name] = map[string]any(ne)
				} else {
					errs[name] = "is invalid"
				}
				continue
			}
			result[name] = val
			s.Data[name] = val
			continue
		}

		raw, present, reqErr, err := retrieveField(s, name, f)
		if err != nil {
			errs[name] = err.Error()
			continue
		}
		if reqErr {
			errs[name] = "is required"
			continue
		}
		if !present {
			continue
		}
		if f.Nullable && raw == nil {
			result[name] = nil
			s.Data[name] = nil
			continue
		}
		val, terr := transformValue(s, f.Type, raw)
		if terr != nil {
			if ne, ok := terr.(nestedErrors); ok {
				errs[name] = map[string]any(ne)
			} else {
				errs[name] = "is invalid"
			}
			continue
		}
		result[name] = val
		s.Data[name] = val
	}

	return result, errs
}

// flattenErrors renders the nested error map into the dotted-path message
// format required by spec.md §7/§8 ("a.b.c is invalid").
func flattenErrors(errs map[string]any, prefix string) string {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		switch v := errs[k].(type) {
		case map[string]any:
			parts = append(parts, flattenErrors(v, path))
		case string:
			parts = append(parts, path+" "+v)
		}
	}
	return strings.Join(parts, "; ")
}

// Load runs the load pass of a compiled schema over params, producing
// host values or a structured invalid_params *Error (spec.md §4.2 item 3
// "Application").
func Load(schema *CompiledSchema, params map[string]any) (map[string]any, error) {
	return apply(ModeLoad, schema.Root, params)
}

// Dump runs the dump pass, converting host values back to wire form.
func Dump(schema *CompiledSchema, data map[string]any) (map[string]any, error) {
	return apply(ModeDump, schema.Root, data)
}

func apply(mode Mode, root Type, params map[string]any) (map[string]any, error) {
	s := &State{Mode: mode, Root: root, Params: params, Data: map[string]any{}}
	data, errs := transformRecord(s, root)
	if len(errs) > 0 {
		return nil, NewInvalidParamsError(flattenErrors(errs, ""))
	}
	return data, nil
}

// Into projects a loaded map onto a named Go struct template, recursively
// for nested and list fields, via the `into` option described in
// spec.md §4.2. A JSON round-trip is sufficient here since every loaded
// scalar value is already JSON-marshalable (string, bool, []byte, map).
func Into(data map[string]any, target any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return wrap(err, "schema: into: marshal intermediate")
	}
	if err := json.Unmarshal(b, target); err != nil {
		return wrap(err, "schema: into: unmarshal target")
	}
	return nil
}
