package wiz

import "testing"

func TestOrderedMapPreservesDeclarationOrder(t *testing.T) {
	m := NewOrderedMap([]string{"c", "a", "b"}, map[string]string{"a": "1", "b": "2", "c": "3"})
	want := []string{"c", "a", "b"}
	got := m.Keys()
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestOrderedMapOverlayLastWriterWins(t *testing.T) {
	base := NewOrderedMap([]string{"a", "b"}, map[string]string{"a": "1", "b": "2"})
	overlay := NewOrderedMap([]string{"b", "c"}, map[string]string{"b": "20", "c": "3"})

	merged := base.Overlay(overlay)

	if v, _ := merged.Get("b"); v != "20" {
		t.Errorf("overlay should override shared key b: got %q, want 20", v)
	}
	wantKeys := []string{"a", "b", "c"}
	gotKeys := merged.Keys()
	if len(gotKeys) != len(wantKeys) {
		t.Fatalf("Keys() = %v, want %v", gotKeys, wantKeys)
	}
	for i := range wantKeys {
		if gotKeys[i] != wantKeys[i] {
			t.Errorf("Keys()[%d] = %q, want %q (new keys should append, not reorder base keys)", i, gotKeys[i], wantKeys[i])
		}
	}
}

func TestDefinitionEffectiveVersionFallsBackToZero(t *testing.T) {
	d := Definition{Identifier: "foo"}
	if d.EffectiveVersion().Compare(zeroVersion) != 0 {
		t.Error("a definition with no declared version should report the zero-version sentinel")
	}
}

func TestDefinitionQualifiedID(t *testing.T) {
	d := Definition{Identifier: "foo"}
	if d.QualifiedID() != "foo" {
		t.Errorf("QualifiedID() = %q, want foo for an unnamespaced definition", d.QualifiedID())
	}
	d.Namespace = "ns"
	if d.QualifiedID() != "ns::foo" {
		t.Errorf("QualifiedID() = %q, want ns::foo", d.QualifiedID())
	}
}

func TestDefinitionHasVariant(t *testing.T) {
	d := Definition{Identifier: "foo", Variants: []VariantDecl{{Identifier: "static"}, {Identifier: "shared"}}}
	idx, ok := d.HasVariant("shared")
	if !ok || idx != 1 {
		t.Errorf("HasVariant(shared) = (%d, %v), want (1, true)", idx, ok)
	}
	if _, ok := d.HasVariant("missing"); ok {
		t.Error("HasVariant(missing) should report false")
	}
}

func TestDefinitionRequirementPinsExactVersion(t *testing.T) {
	d := Definition{Identifier: "foo", Namespace: "ns", Version: MustParseVersion("1.2.3"), HasVersion: true}
	req := d.Requirement()
	if req.ID() != "ns::foo" {
		t.Errorf("Requirement().ID() = %q, want ns::foo", req.ID())
	}
	if !req.Specifiers.Matches(MustParseVersion("1.2.3")) {
		t.Error("the pinning requirement should match exactly its own version")
	}
	if req.Specifiers.Matches(MustParseVersion("1.2.4")) {
		t.Error("the pinning requirement should not match any other version")
	}
}
