package wiz

import (
	"sort"

	radix "github.com/armon/go-radix"
)

// DefinitionRecord pairs a loaded Definition with the registry path it was
// discovered under, the unit the external discovery collaborator streams
// into BuildRegistryIndex.
type DefinitionRecord struct {
	Definition   *Definition
	RegistryPath string
}

// versionEntry is one (version, definition) pair in a definition's
// descending-by-version list.
type versionEntry struct {
	version Version
	def     *Definition
	path    string
}

// RegistryIndex is the read-only, shareable lookup built once from a
// stream of discovered definitions. It is safe for concurrent fetch calls
// since nothing mutates it after BuildRegistryIndex returns.
type RegistryIndex struct {
	byQualifiedID map[string][]versionEntry // descending version order
	commandIndex  map[string]string
	namespaceOf   map[string]map[string]bool // bare name -> set of namespaces
	implicit      []Requirement
	names         *radix.Tree // bare-name -> []string of qualified ids sharing that bare name, for prefix lookups
	system        SystemDescriptor
}

// BuildRegistryIndex constructs the index from discovered definitions in
// discovery order. Definitions are filtered to Disabled == false and, when
// a System constraint is present, definitions incompatible with sys are
// dropped entirely (never stored, never returned by fetch). Later records
// for a colliding command name override earlier ones.
func BuildRegistryIndex(records []DefinitionRecord, sys SystemDescriptor) (*RegistryIndex, error) {
	idx := &RegistryIndex{
		byQualifiedID: make(map[string][]versionEntry),
		commandIndex:  make(map[string]string),
		namespaceOf:   make(map[string]map[string]bool),
		names:         radix.New(),
		system:        sys,
	}

	for _, rec := range records {
		d := rec.Definition
		if d.Disabled {
			continue
		}
		if d.System != nil && !d.System.Matches(sys) {
			continue
		}

		qid := d.QualifiedID()
		idx.byQualifiedID[qid] = append(idx.byQualifiedID[qid], versionEntry{
			version: d.EffectiveVersion(),
			def:     d,
			path:    rec.RegistryPath,
		})

		if _, ok := idx.namespaceOf[d.Identifier]; !ok {
			idx.namespaceOf[d.Identifier] = make(map[string]bool)
		}
		idx.namespaceOf[d.Identifier][d.Namespace] = true

		existing, _ := idx.names.Get(d.Identifier)
		var qids []string
		if existing != nil {
			qids = existing.([]string)
		}
		if !containsString(qids, qid) {
			qids = append(qids, qid)
		}
		idx.names.Insert(d.Identifier, qids)

		for cmd := range d.Command {
			idx.commandIndex[cmd] = qid
		}
	}

	for qid, entries := range idx.byQualifiedID {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].version.Compare(entries[j].version) > 0
		})
		idx.byQualifiedID[qid] = entries
	}

	// implicit_packages: auto-use definitions contribute their latest
	// version's requirement, ordered reverse of discovery so later
	// registries' implicits outrank earlier ones.
	var autoUse []*Definition
	for _, rec := range records {
		d := rec.Definition
		if d.AutoUse && !d.Disabled && (d.System == nil || d.System.Matches(sys)) {
			autoUse = append(autoUse, d)
		}
	}
	latestByID := make(map[string]*Definition)
	var order []string
	for _, d := range autoUse {
		qid := d.QualifiedID()
		if prev, ok := latestByID[qid]; !ok || d.EffectiveVersion().Compare(prev.EffectiveVersion()) > 0 {
			if !ok {
				order = append(order, qid)
			}
			latestByID[qid] = d
		}
	}
	for i := len(order) - 1; i >= 0; i-- {
		idx.implicit = append(idx.implicit, latestByID[order[i]].Requirement())
	}

	return idx, nil
}

func containsString(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// ImplicitRequirements returns the ordered implicit-package requirement
// list described in §4.B.
func (idx *RegistryIndex) ImplicitRequirements() []Requirement {
	return append([]Requirement{}, idx.implicit...)
}

// resolveNamespace implements the §4.B namespace-resolution algorithm.
func (idx *RegistryIndex) resolveNamespace(req Requirement, namespaceHints map[string]bool, namespaceCounter map[string]int) (string, error) {
	if req.Namespace != "" {
		return req.Namespace, nil
	}

	known := idx.namespaceOf[req.Name]
	if len(known) == 1 {
		for ns := range known {
			return ns, nil
		}
	}
	if len(known) == 0 {
		return "", &DefinitionError{Kind: DefinitionNotFound, Request: req.String()}
	}

	if known[req.Name] {
		return req.Name, nil
	}

	if len(namespaceHints) > 0 {
		var candidates []string
		for ns := range known {
			if namespaceHints[ns] {
				candidates = append(candidates, ns)
			}
		}
		if len(candidates) > 0 {
			sort.Slice(candidates, func(i, j int) bool {
				ci, cj := namespaceCounter[candidates[i]], namespaceCounter[candidates[j]]
				if ci != cj {
					return ci > cj
				}
				return candidates[i] < candidates[j]
			})
			return candidates[0], nil
		}
	}

	var all []string
	for ns := range known {
		all = append(all, ns)
	}
	sort.Strings(all)
	return "", &DefinitionError{
		Kind:    DefinitionAmbiguousNamespace,
		Request: req.String(),
		Detail:  joinStrings(all, ", "),
	}
}

func joinStrings(ss []string, sep string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += sep
		}
		out += s
	}
	return out
}

// Fetch resolves a requirement to a single Definition following the
// namespace-resolution and version-selection algorithm of §4.B.
func (idx *RegistryIndex) Fetch(req Requirement, namespaceHints map[string]bool, namespaceCounter map[string]int) (*Definition, string, error) {
	ns, err := idx.resolveNamespace(req, namespaceHints, namespaceCounter)
	if err != nil {
		return nil, "", err
	}

	qid := req.Name
	if ns != "" {
		qid = ns + "::" + req.Name
	}

	entries := idx.byQualifiedID[qid]
	if len(entries) == 0 {
		return nil, "", &DefinitionError{Kind: DefinitionNotFound, Request: req.String()}
	}

	for _, e := range entries {
		if !req.Specifiers.Matches(e.version) {
			continue
		}
		if req.Variant != "" {
			if _, ok := e.def.HasVariant(req.Variant); !ok {
				continue
			}
		}
		return e.def, e.path, nil
	}

	return nil, "", &DefinitionError{
		Kind:    DefinitionNoMatchingVersion,
		Request: req.String(),
		Detail:  req.Specifiers.String(),
	}
}

// FetchFromCommand resolves a command alias to the qualified identifier of
// the definition that provides it.
func (idx *RegistryIndex) FetchFromCommand(command string) (string, bool) {
	qid, ok := idx.commandIndex[command]
	return qid, ok
}

// NamesWithPrefix returns every qualified identifier whose bare name
// starts with prefix, using the radix index built for exactly this kind
// of fast prefix lookup ("everything starting with foo").
func (idx *RegistryIndex) NamesWithPrefix(prefix string) []string {
	var out []string
	idx.names.WalkPrefix(prefix, func(_ string, v interface{}) bool {
		out = append(out, v.([]string)...)
		return false
	})
	sort.Strings(out)
	return out
}
