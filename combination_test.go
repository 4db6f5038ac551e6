package wiz

import "testing"

func buildVariantRegistry(t *testing.T) *RegistryIndex {
	t.Helper()
	c := &Definition{
		Identifier: "c", Version: MustParseVersion("1.0"), HasVersion: true,
		Variants: []VariantDecl{{Identifier: "static"}, {Identifier: "shared"}},
	}
	d := &Definition{
		Identifier: "d", Version: MustParseVersion("1.0"), HasVersion: true,
		Variants: []VariantDecl{{Identifier: "x"}, {Identifier: "y"}},
	}
	idx, err := BuildRegistryIndex([]DefinitionRecord{rec(c, "/reg"), rec(d, "/reg")}, SystemDescriptor{})
	if err != nil {
		t.Fatalf("BuildRegistryIndex: %v", err)
	}
	return idx
}

func TestCombinationIteratorEnumeratesFullSpace(t *testing.T) {
	idx := buildVariantRegistry(t)
	g := NewGraph(idx, nil, nil, nil)
	reqC, _ := ParseRequirement("c")
	reqD, _ := ParseRequirement("d")
	if err := g.UpdateFromRequirements([]Requirement{reqC, reqD}, RootNodeID); err != nil {
		t.Fatalf("UpdateFromRequirements: %v", err)
	}

	it := newCombinationIterator(g)
	seen := map[string]bool{}
	count := 0
	for {
		combo, ok := it.Next()
		if !ok {
			break
		}
		count++
		key := combo.Choices["c"] + "|" + combo.Choices["d"]
		if seen[key] {
			t.Errorf("combination %q was emitted more than once", key)
		}
		seen[key] = true
	}
	if count != 4 {
		t.Errorf("two independent 2-member variant groups should yield 4 combinations, got %d", count)
	}
}

func TestCombinationIteratorNoVariantGroupsYieldsOneCombination(t *testing.T) {
	idx := buildTestRegistry(t)
	g := NewGraph(idx, nil, nil, nil)
	reqA, _ := ParseRequirement("a")
	if err := g.UpdateFromRequirements([]Requirement{reqA}, RootNodeID); err != nil {
		t.Fatalf("UpdateFromRequirements: %v", err)
	}

	it := newCombinationIterator(g)
	_, ok := it.Next()
	if !ok {
		t.Fatal("a graph with no variant groups should still yield exactly one combination")
	}
	if _, ok := it.Next(); ok {
		t.Error("a graph with no variant groups should yield only one combination")
	}
}

func TestCombinationIteratorPrunesRejectedSiblings(t *testing.T) {
	idx := buildVariantRegistry(t)
	g := NewGraph(idx, nil, nil, nil)
	reqC, _ := ParseRequirement("c")
	if err := g.UpdateFromRequirements([]Requirement{reqC}, RootNodeID); err != nil {
		t.Fatalf("UpdateFromRequirements: %v", err)
	}

	it := newCombinationIterator(g)
	combo, ok := it.Next()
	if !ok {
		t.Fatal("expected at least one combination")
	}
	if len(combo.Graph.Nodes()) != 1 {
		t.Errorf("the rejected sibling variant should be pruned from each combination's graph, got %d nodes", len(combo.Graph.Nodes()))
	}
}
