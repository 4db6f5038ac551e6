package wiz

import (
	"hash/fnv"
	"sort"

	nuts "github.com/jmank88/nuts"
)

// ResolveOptions configures a single resolution call.
type ResolveOptions struct {
	MaxAttempts      int
	MaxCombinations  int
	IncludeImplicit  bool
	SystemDescriptor SystemDescriptor
	NamespaceHints   map[string]bool
	InitialEnviron   map[string]string
	History          *HistoryLog
}

// DefaultOptions returns the §4.H default budgets with implicit packages
// included and no namespace hints.
func DefaultOptions(sys SystemDescriptor) ResolveOptions {
	return ResolveOptions{
		MaxAttempts:      15,
		MaxCombinations:  10000,
		IncludeImplicit:  true,
		SystemDescriptor: sys,
	}
}

type resolvedPackage struct {
	pkg          Package
	registryPath string
}

// Resolve is the resolver driver's public entry point: it normalizes
// requests, seeds the initial graph, and iterates combinations until one
// validates or the attempt/combination budgets are exhausted.
func Resolve(registry *RegistryIndex, requests []Requirement, opts ResolveOptions) (*Context, error) {
	history := opts.History

	requirements := append([]Requirement{}, requests...)
	if opts.IncludeImplicit {
		requirements = append(append([]Requirement{}, registry.ImplicitRequirements()...), requirements...)
	}

	namespaceCounter := buildNamespaceCounter(requirements, opts.NamespaceHints)

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 15
	}
	maxCombinations := opts.MaxCombinations
	if maxCombinations <= 0 {
		maxCombinations = 10000
	}

	graph := NewGraph(registry, opts.NamespaceHints, namespaceCounter, history)
	if err := graph.UpdateFromRequirements(requirements, RootNodeID); err != nil {
		return nil, err
	}

	var lastErrors []error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		it := newCombinationIterator(graph)
		combosUsed := 0
		lastErrors = nil

		for combosUsed < maxCombinations {
			combo, ok := it.Next()
			if !ok {
				break
			}
			combosUsed++
			history.record("combination-extracted", "")

			if resolveCombination(combo) {
				history.record("resolution-success", "")
				packages := orderedPackages(combo.Graph)
				return buildContext(packages, opts.InitialEnviron), nil
			}
			lastErrors = append(lastErrors, combo.Errors...)
		}

		if !graph.downgradeVersions(conflictDefinitionIDs(lastErrors)) {
			history.record("resolution-failure", "no further downgrades available")
			return nil, &GraphResolutionError{AttemptsUsed: attempt + 1, CombinationsUsed: combosUsed, Causes: lastErrors}
		}
	}

	history.record("resolution-failure", "attempt budget exhausted")
	return nil, &GraphResolutionError{AttemptsUsed: maxAttempts, CombinationsUsed: opts.MaxCombinations, Causes: lastErrors}
}

func conflictDefinitionIDs(errs []error) []string {
	seen := map[string]bool{}
	var out []string
	for _, err := range errs {
		if ce, ok := err.(*GraphConflictsError); ok {
			for _, c := range ce.Conflicts {
				if !seen[c.DefinitionID] {
					seen[c.DefinitionID] = true
					out = append(out, c.DefinitionID)
				}
			}
		}
	}
	return out
}

func buildNamespaceCounter(reqs []Requirement, hints map[string]bool) map[string]int {
	counter := make(map[string]int)
	for _, r := range reqs {
		if r.Namespace != "" {
			counter[r.Namespace]++
		}
	}
	for ns := range hints {
		if _, ok := counter[ns]; !ok {
			counter[ns] = 0
		}
	}
	return counter
}

// orderedPackages returns the graph's non-ROOT nodes ordered by strictly
// increasing distance, stable on ties by insertion order, as required of
// the final emitted package list.
func orderedPackages(g *Graph) []resolvedPackage {
	dist := g.computeDistanceMapping()
	nodes := g.Nodes()
	sort.SliceStable(nodes, func(i, j int) bool {
		di, dj := dist[nodes[i].ID].Distance, dist[nodes[j].ID].Distance
		if di != dj {
			return di < dj
		}
		return nodes[i].seq < nodes[j].seq
	})

	out := make([]resolvedPackage, 0, len(nodes))
	for _, n := range nodes {
		path := ""
		if n.Package.SourceDefinition != nil {
			path = n.Package.SourceDefinition.SourceRegistryPath
		}
		out = append(out, resolvedPackage{pkg: n.Package, registryPath: path})
	}
	return out
}

// hashPackages packs the ordered qualified identifiers of a resolved
// package list into a binary key before digesting, so the digest can't
// collide the way naive string concatenation can (e.g. "ns"+"a"+"1" vs
// "n"+"sa"+"1"). Each identifier's fnv hash is packed into
// a fixed-width nuts.Key slot ahead of the final sum.
func hashPackages(ids []string) uint64 {
	buf := make(nuts.Key, 8*len(ids))
	for i, id := range ids {
		h := fnv.New64a()
		h.Write([]byte(id))
		buf[i*8 : i*8+8].Put(h.Sum64())
	}
	out := fnv.New64a()
	out.Write(buf)
	return out.Sum64()
}
