package wiz

import "sort"

// maxConflictRounds backstops the fixed-point loop in resolveCombination;
// termination is otherwise already guaranteed by the driver's
// attempt/combination budgets, but a single combination's internal
// conflict-reconciliation loop needs its own bound so a pathological
// definition set can't spin forever within one combination.
const maxConflictRounds = 256

// resolveCombination runs the conflict-resolution sequence of §4.G on a
// single combination, mutating its graph in place. It returns true if the
// combination validates.
func resolveCombination(c *Combination) bool {
	for round := 0; round < maxConflictRounds; round++ {
		mutated := g4gReconcileOnce(c.Graph)

		c.Graph.prune()
		promoted := c.Graph.promoteSatisfiedConditionals()
		if len(promoted) > 0 {
			for _, item := range promoted {
				if err := c.Graph.UpdateFromRequirements([]Requirement{item.req}, item.parentID); err != nil {
					c.Graph.addError(err)
				}
			}
			mutated = true
		}

		if !mutated {
			break
		}
	}

	c.Errors = c.Graph.Errors()
	if len(c.Errors) > 0 {
		return false
	}
	for _, err := range c.Errors {
		if _, ok := err.(*GraphInvalidNodesError); ok {
			return false
		}
	}
	return true
}

// g4gReconcileOnce performs one pass of §4.G steps 2-3: it finds every
// group of nodes sharing a definition id, sorts them by distance with a
// definition-id/version tie-break, and folds the group pairwise down to a
// single surviving node, recording a GraphConflictsError when no version
// satisfies the combined requirement. It returns true if it mutated the
// graph.
func g4gReconcileOnce(g *Graph) bool {
	dist := g.computeDistanceMapping()

	byDef := make(map[string][]*Node)
	for _, n := range g.Nodes() {
		if n.Package.SourceDefinition == nil {
			continue
		}
		id := n.Package.SourceDefinition.QualifiedID()
		byDef[id] = append(byDef[id], n)
	}

	mutated := false
	for defID, nodes := range byDef {
		if len(nodes) < 2 {
			continue
		}
		sort.SliceStable(nodes, func(i, j int) bool {
			di, dj := dist[nodes[i].ID].Distance, dist[nodes[j].ID].Distance
			if di != dj {
				return di < dj
			}
			if nodes[i].Package.SourceDefinition.QualifiedID() != nodes[j].Package.SourceDefinition.QualifiedID() {
				return nodes[i].Package.SourceDefinition.QualifiedID() < nodes[j].Package.SourceDefinition.QualifiedID()
			}
			return nodes[i].Package.Version.Compare(nodes[j].Package.Version) > 0
		})

		current := nodes[0]
		for _, next := range nodes[1:] {
			if _, stillExists := g.Node(current.ID); !stillExists {
				current = next
				continue
			}
			if _, stillExists := g.Node(next.ID); !stillExists {
				continue
			}
			if reconcilePair(g, defID, current, next) {
				mutated = true
				if n, ok := g.Node(current.ID); ok {
					current = n
				}
			}
		}
	}
	return mutated
}

// reconcilePair reconciles two conflicting nodes of the same definition
// id, following §4.G step 3. It returns true when it changed the graph;
// a and b themselves are not modified, and either may no longer be in the
// graph afterwards.
func reconcilePair(g *Graph, defID string, a, b *Node) bool {
	reqs := append(g.IncomingRequirements(a.ID), g.IncomingRequirements(b.ID)...)
	combined, err := combineAllRequirements(reqs)
	if err != nil {
		return false
	}

	def, _, err := g.registry.Fetch(combined, g.namespaceHints, g.namespaceCounter)
	if err != nil {
		g.addError(&GraphConflictsError{Conflicts: []RequirementConflict{{
			DefinitionID: defID,
			ReqA:         g.firstIncoming(a.ID),
			ReqB:         g.firstIncoming(b.ID),
			ParentA:      a.ID,
			ParentB:      b.ID,
			Combined:     combined.Specifiers,
		}}})
		return false
	}

	candidate, err := materialize(def, variantIndexFor(def, combined.Variant))
	if err != nil {
		return false
	}

	switch candidate.QualifiedIdentifier {
	case a.ID:
		g.relinkParents(b.ID, a.ID, combined)
	case b.ID:
		g.relinkParents(a.ID, b.ID, combined)
	default:
		g.getOrCreateNode(candidate)
		g.relinkParents(a.ID, candidate.QualifiedIdentifier, combined)
		if _, ok := g.Node(b.ID); ok {
			g.relinkParents(b.ID, candidate.QualifiedIdentifier, combined)
		}
		if err := g.UpdateFromRequirements(candidate.Requirements, candidate.QualifiedIdentifier); err != nil {
			g.addError(err)
		}
	}
	g.history.record("conflict-reconciled", defID)
	return true
}

func variantIndexFor(def *Definition, variant string) int {
	if variant == "" {
		return -1
	}
	idx, ok := def.HasVariant(variant)
	if !ok {
		return -1
	}
	return idx
}

func (g *Graph) firstIncoming(nodeID string) Requirement {
	reqs := g.IncomingRequirements(nodeID)
	if len(reqs) == 0 {
		return Requirement{}
	}
	return reqs[0]
}
