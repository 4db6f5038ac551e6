package wiz

import "testing"

func TestResolveSimpleTransitiveRequest(t *testing.T) {
	idx := buildTestRegistry(t)
	reqA, _ := ParseRequirement("a")
	ctx, err := Resolve(idx, []Requirement{reqA}, DefaultOptions(SystemDescriptor{}))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	names := map[string]bool{}
	for _, p := range ctx.Packages {
		names[p.QualifiedIdentifier] = true
	}
	if !names["a==1.0"] {
		t.Error("resolved packages should include a==1.0")
	}
	if !names["b==1.1"] {
		t.Error("resolved packages should include the highest matching version of b (1.1)")
	}
}

func TestResolveOrdersPackagesByIncreasingDistance(t *testing.T) {
	idx := buildTestRegistry(t)
	reqA, _ := ParseRequirement("a")
	ctx, err := Resolve(idx, []Requirement{reqA}, DefaultOptions(SystemDescriptor{}))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(ctx.Packages) < 2 {
		t.Fatalf("expected at least 2 packages, got %d", len(ctx.Packages))
	}
	if ctx.Packages[0].QualifiedIdentifier != "a==1.0" {
		t.Errorf("a, at distance 1 from ROOT, should be ordered before its dependency b, at distance 2; got order %v", ctx.Packages)
	}
}

func TestResolveFailsOnUnreconcilableConflict(t *testing.T) {
	idx := buildConflictRegistry(t)
	reqLow, _ := ParseRequirement("b<1.2")
	reqHigh, _ := ParseRequirement("b>=1.2,<1.8")

	// Both requests are individually satisfiable by a single version (1.0
	// for the first, 1.5 for the second) but not jointly — Resolve must
	// surface a GraphResolutionError rather than silently pick one.
	_, err := Resolve(idx, []Requirement{reqLow, reqHigh}, DefaultOptions(SystemDescriptor{}))
	if err == nil {
		t.Fatal("expected Resolve to fail when no single version satisfies all requests")
	}
	if _, ok := err.(*GraphResolutionError); !ok {
		t.Errorf("err = %T, want *GraphResolutionError", err)
	}
}

func TestResolveIncludesImplicitPackagesByDefault(t *testing.T) {
	implicitDef := &Definition{Identifier: "always", Version: MustParseVersion("1.0"), HasVersion: true, AutoUse: true}
	idx, err := BuildRegistryIndex([]DefinitionRecord{rec(implicitDef, "/reg")}, SystemDescriptor{})
	if err != nil {
		t.Fatalf("BuildRegistryIndex: %v", err)
	}

	ctx, err := Resolve(idx, nil, DefaultOptions(SystemDescriptor{}))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(ctx.Packages) != 1 || ctx.Packages[0].QualifiedIdentifier != "always==1.0" {
		t.Errorf("an auto-use definition should be included even with no explicit requests, got %v", ctx.Packages)
	}
}

func TestResolveCanExcludeImplicitPackages(t *testing.T) {
	implicitDef := &Definition{Identifier: "always", Version: MustParseVersion("1.0"), HasVersion: true, AutoUse: true}
	idx, err := BuildRegistryIndex([]DefinitionRecord{rec(implicitDef, "/reg")}, SystemDescriptor{})
	if err != nil {
		t.Fatalf("BuildRegistryIndex: %v", err)
	}

	opts := DefaultOptions(SystemDescriptor{})
	opts.IncludeImplicit = false
	ctx, err := Resolve(idx, nil, opts)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(ctx.Packages) != 0 {
		t.Errorf("IncludeImplicit=false should exclude auto-use definitions, got %v", ctx.Packages)
	}
}

func TestHashPackagesIsOrderSensitive(t *testing.T) {
	a := hashPackages([]string{"ns::a==1.0", "ns::b==2.0"})
	b := hashPackages([]string{"ns::b==2.0", "ns::a==1.0"})
	if a == b {
		t.Error("hashPackages should be sensitive to package order")
	}
}

func TestHashPackagesAvoidsConcatenationCollision(t *testing.T) {
	a := hashPackages([]string{"ns", "ab"})
	b := hashPackages([]string{"nsa", "b"})
	if a == b {
		t.Error("hashPackages should not collide on inputs that would concatenate identically")
	}
}
