package icon

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
)

// Kind tags the internal type representation, replacing the source
// engine's runtime module dispatch with a plain tagged union (spec.md
// Design Note 1: "Runtime reflection over types → tagged variant plus
// dispatch table").
type Kind int

const (
	KindScalar Kind = iota
	KindEnum
	KindList
	KindAny
	KindRecord
)

// Type is a node in a schema's type tree.
type Type struct {
	Kind Kind

	ScalarTag string // KindScalar

	EnumValues []string // KindEnum

	ListElem *Type // KindList

	AnyChoices      map[string]Type // KindAny
	AnyDiscriminant string          // KindAny: field within the record that selects the choice

	Fields     map[string]Field // KindRecord
	FieldOrder []string         // KindRecord: declaration order
}

// Field is one entry of a record's field→(type,options) mapping
// (spec.md §3 "Schema tree").
type Field struct {
	Type     Type
	Required bool
	Nullable bool
	// Default is either a literal value or a DefaultFunc, evaluated
	// exactly once per retrieve (spec.md Design Note 3).
	Default any
}

// DefaultFunc is a late-bound default: a pure function of the current
// schema state, used for values such as `timestamp` (now) and `nonce`
// (random) that cannot be literal constants (spec.md §4.4).
type DefaultFunc func(*State) (any, error)

// Variable is the reserved field name meaning "every key present in the
// input map with this value type" (spec.md §3, the `$variable` wildcard).
const Variable = "$variable"

func Scalar(tag string) Type { return Type{Kind: KindScalar, ScalarTag: tag} }

func Enum(values ...string) Type { return Type{Kind: KindEnum, EnumValues: values} }

func List(elem Type) Type { return Type{Kind: KindList, ListElem: &elem} }

func Any(choices map[string]Type, discriminant string) Type {
	return Type{Kind: KindAny, AnyChoices: choices, AnyDiscriminant: discriminant}
}

// Record builds a named-record type. Field order is taken from orderHint
// when given (fields not listed there are appended in map-iteration
// order, which is fine since Go map order is irrelevant to correctness —
// Any fields are moved after their discriminants at apply time by
// orderedFieldNames, whatever the hint says).
func Record(fields map[string]Field, orderHint ...string) Type {
	order := append([]string{}, orderHint...)
	seen := make(map[string]bool, len(order))
	for _, f := range order {
		seen[f] = true
	}
	for name := range fields {
		if !seen[name] {
			order = append(order, name)
		}
	}
	return Type{Kind: KindRecord, Fields: fields, FieldOrder: order}
}

// Req marks a field required with no default.
func Req(t Type) Field { return Field{Type: t, Required: true} }

// Opt marks a field optional with no default.
func Opt(t Type) Field { return Field{Type: t} }

// WithDefault attaches a default (literal or DefaultFunc) to a field and
// implicitly marks it required, satisfying the "Required default"
// invariant in spec.md §8: the field validates even when absent.
func WithDefault(t Type, def any) Field {
	return Field{Type: t, Required: true, Default: def}
}

// WithNullable marks a field as accepting explicit null.
func WithNullable(f Field) Field {
	f.Nullable = true
	return f
}

// CompiledSchema is the process-wide-cached, validated form of a Type
// tree (spec.md §4.2 "Compilation").
type CompiledSchema struct {
	Root Type
	Hash string
}

var (
	compileCacheMu sync.RWMutex
	compileCache   = map[string]*CompiledSchema{}
)

// Generate compiles (and caches) a schema's type tree. Repeated calls on
// structurally equal trees are O(1) after the first, per spec.md §4.2 and
// the idempotence property in spec.md §8
// (generate(generate(S)) == generate(S)).
func Generate(root Type) (*CompiledSchema, error) {
	if err := validateNoAnyUnderList(root, false); err != nil {
		return nil, err
	}
	h := contentHash(root)

	compileCacheMu.RLock()
	if cs, ok := compileCache[h]; ok {
		compileCacheMu.RUnlock()
		return cs, nil
	}
	compileCacheMu.RUnlock()

	cs := &CompiledSchema{Root: root, Hash: h}

	compileCacheMu.Lock()
	// Lost-update-safe: a concurrent compile of the structurally equal
	// tree just overwrites with an equivalent value (spec.md §5/§9).
	compileCache[h] = cs
	compileCacheMu.Unlock()
	return cs, nil
}

// validateNoAnyUnderList walks the tree enforcing the one programmer-error
// constraint the compiler raises synchronously (spec.md §4.2, §7):
// {any,…} must never appear beneath {list,…}, at any depth.
func validateNoAnyUnderList(t Type, underList bool) error {
	switch t.Kind {
	case KindAny:
		if underList {
			return fmt.Errorf("icon: schema error: {any,...} beneath {list,...} is not allowed")
		}
		for _, choice := range t.AnyChoices {
			if err := validateNoAnyUnderList(choice, underList); err != nil {
				return err
			}
		}
	case KindList:
		if err := validateNoAnyUnderList(*t.ListElem, true); err != nil {
			return err
		}
	case KindRecord:
		for _, f := range t.Fields {
			if err := validateNoAnyUnderList(f.Type, underList); err != nil {
				return err
			}
		}
	}
	return nil
}

// contentHash renders a canonical, deterministic string for a type tree
// (sorted map keys at every level) and hashes it with FNV-1a, giving the
// stable content hash the process-wide cache is keyed by (spec.md §3
// "Schema state", Design Note 2).
func contentHash(t Type) string {
	var b strings.Builder
	writeTypeCanon(&b, t)
	h := fnv.New64a()
	_, _ = h.Write([]byte(b.String()))
	return fmt.Sprintf("%x", h.Sum64())
}

func writeTypeCanon(b *strings.Builder, t Type) {
	switch t.Kind {
	case KindScalar:
		b.WriteString("scalar(")
		b.WriteString(t.ScalarTag)
		b.WriteString(")")
	case KindEnum:
		b.WriteString("enum(")
		vals := append([]string{}, t.EnumValues...)
		sort.Strings(vals)
		b.WriteString(strings.Join(vals, ","))
		b.WriteString(")")
	case KindList:
		b.WriteString("list(")
		writeTypeCanon(b, *t.ListElem)
		b.WriteString(")")
	case KindAny:
		b.WriteString("any(")
		b.WriteString(t.AnyDiscriminant)
		b.WriteString(";")
		keys := make([]string, 0, len(t.AnyChoices))
		for k := range t.AnyChoices {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(k)
			b.WriteString("=")
			writeTypeCanon(b, t.AnyChoices[k])
			b.WriteString(",")
		}
		b.WriteString(")")
	case KindRecord:
		b.WriteString("record(")
		keys := make([]string, 0, len(t.Fields))
		for k := range t.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			f := t.Fields[k]
			b.WriteString(k)
			b.WriteString(":")
			writeTypeCanon(b, f.Type)
			b.WriteString(fmt.Sprintf("[req=%v,null=%v,def=%v]", f.Required, f.Nullable, f.Default))
			b.WriteString(",")
		}
		b.WriteString(")")
	}
}
