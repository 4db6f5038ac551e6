package wiz

import "sort"

// SystemConstraint narrows which SystemDescriptor a definition may run
// under. Each field is optional; an empty Platform/Arch matches anything,
// and an empty OS specifier set matches any OS version.
type SystemConstraint struct {
	Platform string
	Arch     string
	OS       SpecifierSet
}

// SystemDescriptor is the caller-supplied description of the environment a
// resolution is being performed for.
type SystemDescriptor struct {
	Platform   string
	Arch       string
	OSVersion  Version
}

// Matches reports whether the descriptor d satisfies c. A zero-value
// field on the constraint is treated as "don't care".
func (c SystemConstraint) Matches(d SystemDescriptor) bool {
	if c.Platform != "" && c.Platform != d.Platform {
		return false
	}
	if c.Arch != "" && c.Arch != d.Arch {
		return false
	}
	if !c.OS.IsAny() && !c.OS.Matches(d.OSVersion) {
		return false
	}
	return true
}

// VariantDecl is one declared sub-configuration of a Definition. It
// overlays the parent definition's environ/command/requirements when a
// package is materialized against it.
type VariantDecl struct {
	Identifier      string
	Environ         OrderedMap
	Command         map[string]string
	Requirements    []Requirement
	InstallLocation string
}

// Definition is the immutable record loaded from a registry's definition
// file. A Definition without an explicit version is treated as version
// "0!0" (see zeroVersion) and is still orderable against versioned peers.
type Definition struct {
	Identifier      string
	Namespace       string
	Version         Version
	HasVersion      bool
	Description     string
	System          *SystemConstraint
	Environ         OrderedMap
	Command         map[string]string
	Requirements    []Requirement
	Conditions      []Requirement
	Variants        []VariantDecl
	AutoUse         bool
	Disabled        bool
	InstallLocation string
	InstallRoot     string

	SourceRegistryPath string
	SourceFilePath     string
}

var zeroVersion = MustParseVersion("0!0")

// EffectiveVersion returns the definition's version, or the shared zero
// version sentinel when none was declared.
func (d Definition) EffectiveVersion() Version {
	if d.HasVersion {
		return d.Version
	}
	return zeroVersion
}

// QualifiedID returns "namespace::identifier", or bare "identifier" when
// the definition carries no namespace.
func (d Definition) QualifiedID() string {
	if d.Namespace == "" {
		return d.Identifier
	}
	return d.Namespace + "::" + d.Identifier
}

// HasVariant reports whether the definition declares a variant with the
// given identifier, and returns its index within Variants.
func (d Definition) HasVariant(id string) (int, bool) {
	for i, v := range d.Variants {
		if v.Identifier == id {
			return i, true
		}
	}
	return 0, false
}

// Requirement builds the requirement a dependent would use to pin this
// exact definition version, used when constructing implicit-package
// requirements.
func (d Definition) Requirement() Requirement {
	spec, _ := ParseSpecifierSet("==" + d.EffectiveVersion().String())
	return Requirement{Namespace: d.Namespace, Name: d.Identifier, Specifiers: spec}
}

// OrderedMap preserves declaration order for a string->string mapping
// loaded from JSON, since environment-variable substitution folding is
// order-sensitive within one package's key set and Go's map iteration
// order is randomized.
type OrderedMap struct {
	keys   []string
	values map[string]string
}

// NewOrderedMap builds an OrderedMap from an explicit key order.
func NewOrderedMap(keys []string, values map[string]string) OrderedMap {
	return OrderedMap{keys: keys, values: values}
}

func (m OrderedMap) Get(key string) (string, bool) {
	if m.values == nil {
		return "", false
	}
	v, ok := m.values[key]
	return v, ok
}

func (m OrderedMap) Keys() []string { return m.keys }

func (m OrderedMap) Len() int { return len(m.keys) }

// Overlay returns a new OrderedMap where keys from o replace or append onto
// m, with o's declaration order appended after any of m's keys it does not
// override, matching the "last writer wins per key" overlay semantics used
// for variant environ/command merges.
func (m OrderedMap) Overlay(o OrderedMap) OrderedMap {
	values := make(map[string]string, len(m.values)+len(o.values))
	for k, v := range m.values {
		values[k] = v
	}
	keys := append([]string{}, m.keys...)
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}
	for _, k := range o.keys {
		values[k] = o.values[k]
		if !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	return OrderedMap{keys: keys, values: values}
}

// overlayCommand applies the same last-writer-wins overlay to plain command
// maps. The result is a plain Go map, so it carries no key order.
func overlayCommand(base, overlay map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// sortedDefinitionKeys returns m's keys in sorted order, giving a
// deterministic iteration order over a key set. The registry index does
// not call it.
func sortedDefinitionKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
