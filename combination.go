package wiz

// Combination is a chosen subset of variant-group selections together
// with the working graph derived from pruning every rejected sibling
// variant and its now-unreachable descendants.
type Combination struct {
	Graph   *Graph
	Choices map[string]string // definition id -> chosen node id
	Errors  []error
}

// CombinationIterator is the pull-based lazy permutation walker described
// in the resolver's design notes: the driver calls Next repeatedly and
// stops as soon as one combination validates.
type CombinationIterator struct {
	base    *Graph
	groups  [][]string
	sizes   []int
	total   int
	counter int
	single  bool
	emitted bool
}

// newCombinationIterator builds the iterator over graph's current variant
// groups. Groups with a single member impose no choice and are excluded
// from the permutation space entirely (variantGroupOrder already only
// returns groups with more than one member).
func newCombinationIterator(g *Graph) *CombinationIterator {
	groups := g.variantGroupOrder()
	if len(groups) == 0 {
		return &CombinationIterator{base: g, single: true}
	}
	sizes := make([]int, len(groups))
	total := 1
	for i, grp := range groups {
		sizes[i] = len(grp)
		total *= len(grp)
	}
	return &CombinationIterator{base: g, groups: groups, sizes: sizes, total: total}
}

// Next produces the next surviving combination, or ok=false once the
// permutation space is exhausted.
func (it *CombinationIterator) Next() (*Combination, bool) {
	if it.single {
		if it.emitted {
			return nil, false
		}
		it.emitted = true
		clone := it.base.clone()
		clone.prune()
		return &Combination{Graph: clone, Choices: map[string]string{}}, true
	}

	for it.counter < it.total {
		idx := it.decode(it.counter)
		it.counter++

		choice := make(map[string]string, len(it.groups))
		chosenNodes := make([]string, 0, len(it.groups))
		for gi, member := range idx {
			nodeID := it.groups[gi][member]
			choice[groupDefID(it.base, gi, it.groups)] = nodeID
			chosenNodes = append(chosenNodes, nodeID)
		}

		if it.hasIncompatiblePair(chosenNodes) {
			continue
		}

		clone := it.base.clone()
		for gi, grp := range it.groups {
			keep := it.groups[gi][idx[gi]]
			for _, nid := range grp {
				if nid != keep {
					clone.removeNode(nid)
				}
			}
		}
		clone.prune()

		return &Combination{Graph: clone, Choices: choice}, true
	}
	return nil, false
}

// decode turns a linear counter into one index per group such that the
// first group varies slowest and the last group fastest.
func (it *CombinationIterator) decode(counter int) []int {
	idx := make([]int, len(it.groups))
	radixAfter := make([]int, len(it.groups))
	acc := 1
	for i := len(it.sizes) - 1; i >= 0; i-- {
		radixAfter[i] = acc
		acc *= it.sizes[i]
	}
	for i := range it.groups {
		idx[i] = (counter / radixAfter[i]) % it.sizes[i]
	}
	return idx
}

func (it *CombinationIterator) hasIncompatiblePair(nodeIDs []string) bool {
	for i := 0; i < len(nodeIDs); i++ {
		ni, ok := it.base.Node(nodeIDs[i])
		if !ok {
			continue
		}
		for j := i + 1; j < len(nodeIDs); j++ {
			nj, ok := it.base.Node(nodeIDs[j])
			if !ok {
				continue
			}
			if len(checkConflictingRequirements(ni.Package, nj.Package, ni.ID, nj.ID)) > 0 {
				return true
			}
		}
	}
	return false
}

// groupDefID recovers the definition id a given group index corresponds
// to by looking up which node in the group has a source definition.
func groupDefID(g *Graph, groupIndex int, groups [][]string) string {
	for _, nid := range groups[groupIndex] {
		if n, ok := g.Node(nid); ok && n.Package.SourceDefinition != nil {
			return n.Package.SourceDefinition.QualifiedID()
		}
	}
	return ""
}
