package icon

import (
	"strings"
	"testing"
)

func TestSchemaIdempotence(t *testing.T) {
	s := Record(map[string]Field{
		"to":    Req(Scalar("address")),
		"value": Req(Scalar("loop")),
	}, "to", "value")

	a, err := Generate(s)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := Generate(a.Root)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a != b {
		t.Fatalf("generate(generate(S)) should return the cached *CompiledSchema, got distinct pointers")
	}
	if a.Hash != b.Hash {
		t.Fatalf("structurally equal schemas must hash equal")
	}
}

func TestSchemaRejectsAnyUnderList(t *testing.T) {
	bad := List(Any(map[string]Type{"a": Scalar("str")}, "kind"))
	if _, err := Generate(bad); err == nil {
		t.Fatalf("expected {any,...} beneath {list,...} to be rejected")
	}
}

func TestRequiredDefaultResolvesWhenAbsent(t *testing.T) {
	s := Record(map[string]Field{
		"version": WithDefault(Scalar("int"), 3),
	}, "version")
	compiled, err := Generate(s)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	host, err := Load(compiled, map[string]any{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	n, err := toBigInt(host["version"])
	if err != nil || n.Int64() != 3 {
		t.Fatalf("version = %v, want 3", host["version"])
	}
}

func TestNestedPathNaming(t *testing.T) {
	s := Record(map[string]Field{
		"a": Req(Record(map[string]Field{
			"b": Req(Record(map[string]Field{
				"c": Req(Scalar("address")),
			}, "c")),
		}, "b")),
	}, "a")
	compiled, err := Generate(s)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	_, err = Load(compiled, map[string]any{
		"a": map[string]any{"b": map[string]any{"c": "not-an-address"}},
	})
	if err == nil {
		t.Fatalf("expected a validation error")
	}
	if !strings.Contains(err.Error(), "a.b.c") {
		t.Fatalf("error message %q does not contain path a.b.c", err.Error())
	}
}

func TestVariableWildcard(t *testing.T) {
	s := Record(map[string]Field{Variable: Opt(Scalar("str"))})
	compiled, err := Generate(s)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	host, err := Load(compiled, map[string]any{"foo": "bar", "baz": "qux"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if host["foo"] != "bar" || host["baz"] != "qux" {
		t.Fatalf("host = %v, want foo=bar baz=qux", host)
	}
}

func TestAnyResolvesAgainstSiblingDiscriminant(t *testing.T) {
	s := Record(map[string]Field{
		"kind": Req(Enum("a", "b")),
		"payload": Req(Any(map[string]Type{
			"a": Scalar("str"),
			"b": Scalar("int"),
		}, "kind")),
	}, "kind", "payload")
	compiled, err := Generate(s)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	host, err := Load(compiled, map[string]any{"kind": "a", "payload": "hello"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if host["payload"] != "hello" {
		t.Fatalf("payload = %v, want hello", host["payload"])
	}

	host, err = Load(compiled, map[string]any{"kind": "b", "payload": "0x2a"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	n, err := toBigInt(host["payload"])
	if err != nil || n.Int64() != 42 {
		t.Fatalf("payload = %v, want 42", host["payload"])
	}
}
