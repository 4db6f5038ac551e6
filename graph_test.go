package wiz

import "testing"

// buildTestRegistry builds a small registry index of unnamespaced
// definitions for graph/driver-level tests: "a" depends on "b" and "b" has
// two versions, "c" declares two variants, and "gated" is conditional on
// "trigger" being present in the graph.
func buildTestRegistry(t *testing.T) *RegistryIndex {
	t.Helper()
	reqB, _ := ParseRequirement("b>=1.0")
	a := &Definition{Identifier: "a", Version: MustParseVersion("1.0"), HasVersion: true, Requirements: []Requirement{reqB}}
	b1 := &Definition{Identifier: "b", Version: MustParseVersion("1.0"), HasVersion: true}
	b2 := &Definition{Identifier: "b", Version: MustParseVersion("1.1"), HasVersion: true}
	c := &Definition{
		Identifier: "c", Version: MustParseVersion("1.0"), HasVersion: true,
		Variants: []VariantDecl{{Identifier: "static"}, {Identifier: "shared"}},
	}
	trigger := &Definition{Identifier: "trigger", Version: MustParseVersion("1.0"), HasVersion: true}
	gatedCond, _ := ParseRequirement("trigger")
	gated := &Definition{Identifier: "gated", Version: MustParseVersion("1.0"), HasVersion: true, Conditions: []Requirement{gatedCond}}

	idx, err := BuildRegistryIndex([]DefinitionRecord{
		rec(a, "/reg"), rec(b1, "/reg"), rec(b2, "/reg"), rec(c, "/reg"), rec(trigger, "/reg"), rec(gated, "/reg"),
	}, SystemDescriptor{})
	if err != nil {
		t.Fatalf("BuildRegistryIndex: %v", err)
	}
	return idx
}

func TestUpdateFromRequirementsTransitiveClosure(t *testing.T) {
	idx := buildTestRegistry(t)
	g := NewGraph(idx, nil, nil, nil)
	reqA, _ := ParseRequirement("a")
	if err := g.UpdateFromRequirements([]Requirement{reqA}, RootNodeID); err != nil {
		t.Fatalf("UpdateFromRequirements: %v", err)
	}

	if len(g.Find(Requirement{Name: "a", Specifiers: Any()})) != 1 {
		t.Error("a should be present in the graph")
	}
	if len(g.Find(Requirement{Name: "b", Specifiers: Any()})) != 1 {
		t.Error("b should be pulled in transitively through a's requirement")
	}
}

func TestUpdateFromRequirementsExpandsAllVariants(t *testing.T) {
	idx := buildTestRegistry(t)
	g := NewGraph(idx, nil, nil, nil)
	reqC, _ := ParseRequirement("c")
	if err := g.UpdateFromRequirements([]Requirement{reqC}, RootNodeID); err != nil {
		t.Fatalf("UpdateFromRequirements: %v", err)
	}

	nodes := g.Find(Requirement{Name: "c", Specifiers: Any()})
	if len(nodes) != 2 {
		t.Fatalf("an unpinned variant request should expand into one node per declared variant, got %d", len(nodes))
	}

	groups := g.variantGroupOrder()
	if len(groups) != 1 || len(groups[0]) != 2 {
		t.Errorf("expected a single variant group of size 2, got %v", groups)
	}
}

func TestUpdateFromRequirementsPinnedVariant(t *testing.T) {
	idx := buildTestRegistry(t)
	g := NewGraph(idx, nil, nil, nil)
	reqC, _ := ParseRequirement("c[static]")
	if err := g.UpdateFromRequirements([]Requirement{reqC}, RootNodeID); err != nil {
		t.Fatalf("UpdateFromRequirements: %v", err)
	}
	nodes := g.Find(Requirement{Name: "c", Specifiers: Any()})
	if len(nodes) != 1 {
		t.Fatalf("a pinned variant request should only add one node, got %d", len(nodes))
	}
}

func TestUpdateFromRequirementsConditionalGating(t *testing.T) {
	idx := buildTestRegistry(t)
	g := NewGraph(idx, nil, nil, nil)
	reqGated, _ := ParseRequirement("gated")
	if err := g.UpdateFromRequirements([]Requirement{reqGated}, RootNodeID); err != nil {
		t.Fatalf("UpdateFromRequirements: %v", err)
	}
	if len(g.Find(Requirement{Name: "gated", Specifiers: Any()})) != 0 {
		t.Error("gated should not join the graph before its condition (trigger) is present")
	}

	reqTrigger, _ := ParseRequirement("trigger")
	if err := g.UpdateFromRequirements([]Requirement{reqTrigger}, RootNodeID); err != nil {
		t.Fatalf("UpdateFromRequirements: %v", err)
	}
	if len(g.Find(Requirement{Name: "gated", Specifiers: Any()})) != 1 {
		t.Error("gated should be promoted once trigger joins the graph, since UpdateFromRequirements re-scans pending conditionals after each addition")
	}
}

func TestAddEdgeFirstWins(t *testing.T) {
	idx := buildTestRegistry(t)
	g := NewGraph(idx, nil, nil, nil)
	reqLoose, _ := ParseRequirement("b>=1.0")
	reqTight, _ := ParseRequirement("b>=1.1")

	g.addEdge(RootNodeID, "b==1.0", reqLoose)
	g.addEdge(RootNodeID, "b==1.0", reqTight)

	got, ok := g.EdgeRequirement(RootNodeID, "b==1.0")
	if !ok {
		t.Fatal("edge should exist")
	}
	if got.String() != reqLoose.String() {
		t.Errorf("EdgeRequirement = %q, want the first-recorded requirement %q", got.String(), reqLoose.String())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	idx := buildTestRegistry(t)
	g := NewGraph(idx, nil, nil, nil)
	reqA, _ := ParseRequirement("a")
	if err := g.UpdateFromRequirements([]Requirement{reqA}, RootNodeID); err != nil {
		t.Fatalf("UpdateFromRequirements: %v", err)
	}

	clone := g.clone()
	clone.removeNode("a==1.0")

	if len(g.Find(Requirement{Name: "a", Specifiers: Any()})) != 1 {
		t.Error("mutating a clone should not affect the original graph")
	}
	if len(clone.Find(Requirement{Name: "a", Specifiers: Any()})) != 0 {
		t.Error("the clone should reflect its own mutation")
	}
}

func TestPruneRemovesUnreachableNodes(t *testing.T) {
	idx := buildTestRegistry(t)
	g := NewGraph(idx, nil, nil, nil)
	reqA, _ := ParseRequirement("a")
	if err := g.UpdateFromRequirements([]Requirement{reqA}, RootNodeID); err != nil {
		t.Fatalf("UpdateFromRequirements: %v", err)
	}

	g.relinkParents("b==1.1", "", Requirement{})
	g.prune()

	if _, ok := g.Node("b==1.1"); ok {
		t.Error("a node detached from its only parent with no substitute should be pruned")
	}
}

func TestDowngradeVersionsPicksNextOlderMatchingVersion(t *testing.T) {
	idx := buildTestRegistry(t)
	g := NewGraph(idx, nil, nil, nil)
	reqB, _ := ParseRequirement("b>=1.0")
	if err := g.UpdateFromRequirements([]Requirement{reqB}, RootNodeID); err != nil {
		t.Fatalf("UpdateFromRequirements: %v", err)
	}

	// Registry selects the highest match (1.1) initially.
	nodes := g.Find(Requirement{Name: "b", Specifiers: Any()})
	if len(nodes) != 1 || nodes[0] != "b==1.1" {
		t.Fatalf("expected initial selection b==1.1, got %v", nodes)
	}

	if !g.downgradeVersions([]string{"b"}) {
		t.Fatal("downgradeVersions should find a next-older version (1.0)")
	}
	nodes = g.Find(Requirement{Name: "b", Specifiers: Any()})
	if len(nodes) != 1 || nodes[0] != "b==1.0" {
		t.Errorf("after downgrade expected b==1.0, got %v", nodes)
	}
}
