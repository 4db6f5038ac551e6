package wiz

import "fmt"

// Package is a materialized Definition at a specific version with at most
// one variant selected — the unit placed in the graph. Packages are value
// types: two packages with the same qualified identifier and the same
// source definition are interchangeable.
type Package struct {
	QualifiedIdentifier string
	Version             Version
	VariantID           string // empty if none
	Environ             OrderedMap
	Command             map[string]string
	Requirements        []Requirement
	Conditions          []Requirement
	SourceDefinition    *Definition
}

// packageCacheKey identifies a (definition, variant-index) materialization.
// No cache is keyed by it: each materialization builds a new Package.
type packageCacheKey struct {
	definitionID string
	variantIndex int // -1 for "no variant requested"
}

// materialize builds the Package for a definition, optionally overlaid
// with one of its declared variants. variantIndex is -1 when no variant
// was requested; if the definition declares variants and variantIndex is
// -1, the caller (graph.go) is responsible for expanding one package per
// variant rather than calling materialize with an unresolved index — this
// function always produces one concrete package per call.
func materialize(def *Definition, variantIndex int) (Package, error) {
	pkg := Package{
		Version:          def.EffectiveVersion(),
		Environ:          def.Environ,
		Command:          def.Command,
		Requirements:     append([]Requirement{}, def.Requirements...),
		Conditions:       append([]Requirement{}, def.Conditions...),
		SourceDefinition: def,
	}

	if variantIndex >= 0 {
		if variantIndex >= len(def.Variants) {
			return Package{}, fmt.Errorf("variant index %d out of range for %s (%d variants)", variantIndex, def.QualifiedID(), len(def.Variants))
		}
		v := def.Variants[variantIndex]
		pkg.VariantID = v.Identifier
		pkg.Environ = def.Environ.Overlay(v.Environ)
		pkg.Command = overlayCommand(def.Command, v.Command)
		pkg.Requirements = append(pkg.Requirements, v.Requirements...)
	}

	pkg.QualifiedIdentifier = buildQualifiedIdentifier(def.Namespace, def.Identifier, pkg.VariantID, pkg.Version)
	return pkg, nil
}

func buildQualifiedIdentifier(namespace, name, variant string, v Version) string {
	id := name
	if namespace != "" {
		id = namespace + "::" + name
	}
	if variant != "" {
		id = fmt.Sprintf("%s[%s]", id, variant)
	}
	return fmt.Sprintf("%s==%s", id, v.String())
}

// match reports whether req names pkg and pkg's version/variant satisfies
// it: name and namespace (when the requirement carries one) must match
// exactly, a requested variant extra must equal pkg's variant id, and the
// specifier set must match pkg's version.
func match(req Requirement, pkg Package) bool {
	def := pkg.SourceDefinition
	if def == nil {
		return false
	}
	if def.Identifier != req.Name {
		return false
	}
	if req.Namespace != "" && req.Namespace != def.Namespace {
		return false
	}
	if req.Variant != "" && req.Variant != pkg.VariantID {
		return false
	}
	return req.Specifiers.Matches(pkg.Version)
}

// checkConflictingRequirements returns a conflict record for every
// definition id that both packages require with non-overlapping specifier
// sets.
func checkConflictingRequirements(a, b Package, parentA, parentB string) []RequirementConflict {
	bReqs := make(map[string]Requirement, len(b.Requirements))
	for _, r := range b.Requirements {
		bReqs[r.ID()] = r
	}

	var conflicts []RequirementConflict
	for _, ra := range a.Requirements {
		rb, ok := bReqs[ra.ID()]
		if !ok {
			continue
		}
		if isOverlapping(ra, rb) {
			continue
		}
		combined, _ := intersectSpecifiers(ra, rb)
		conflicts = append(conflicts, RequirementConflict{
			DefinitionID: ra.ID(),
			ReqA:         ra,
			ReqB:         rb,
			ParentA:      parentA,
			ParentB:      parentB,
			Combined:     combined,
		})
	}
	return conflicts
}
