package wiz

import (
	"fmt"
	"sort"
)

// RootNodeID is the synthetic node every requirement chain hangs off.
const RootNodeID = "ROOT"

// Node wraps an immutable materialized Package. All mutable per-graph
// state (parent/child edges, variant-group membership, conditional
// pending entries) lives on Graph itself, not on Node, so that cloning a
// graph before a destructive exploration step is cheap: it shares Node
// pointers by reference and deep-copies only Graph's maps.
type Node struct {
	ID      string
	Package Package
	seq     int // insertion order, used as the stable tie-break on equal distance
}

type edgeKey struct{ from, to string }

// conditionalEntry records a requirement whose fetched definition's
// conditions were not yet satisfied when it was encountered, so it could
// not join the graph immediately.
type conditionalEntry struct {
	req      Requirement
	parentID string
}

// Graph holds one resolution attempt's working set of nodes and edges. It
// is built once by the driver and cloned by the combination generator
// before each destructive exploration step.
type Graph struct {
	registry         *RegistryIndex
	namespaceHints   map[string]bool
	namespaceCounter map[string]int
	history          *HistoryLog

	nodes      map[string]*Node
	childOrder map[string][]string // parent id -> ordered unique child ids
	edgeWeight map[edgeKey]int
	edgeReq    map[edgeKey]Requirement
	parentsOf  map[string]map[string]bool // child id -> set of parent ids

	variantGroups map[string][]string // definition id -> node ids, declared order
	inGroup       map[string]map[string]bool

	conditionalPackages []conditionalEntry

	errors []error
	seqCtr int
}

// NewGraph creates a graph containing only the ROOT node.
func NewGraph(registry *RegistryIndex, namespaceHints map[string]bool, namespaceCounter map[string]int, history *HistoryLog) *Graph {
	g := &Graph{
		registry:         registry,
		namespaceHints:   namespaceHints,
		namespaceCounter: namespaceCounter,
		history:          history,
		nodes:            map[string]*Node{RootNodeID: {ID: RootNodeID}},
		childOrder:       make(map[string][]string),
		edgeWeight:       make(map[edgeKey]int),
		edgeReq:          make(map[edgeKey]Requirement),
		parentsOf:        make(map[string]map[string]bool),
		variantGroups:    make(map[string][]string),
		inGroup:          make(map[string]map[string]bool),
	}
	g.history.record("graph-created", RootNodeID)
	return g
}

// Errors returns the errors recorded on this graph so far.
func (g *Graph) Errors() []error { return g.errors }

func (g *Graph) addError(err error) { g.errors = append(g.errors, err) }

type workItem struct {
	req      Requirement
	parentID string
}

// UpdateFromRequirements processes requirements in strict breadth-first
// order from parentID, fetching definitions, gating on conditions,
// materializing nodes (expanding variant declarations when the
// requirement does not pin one), wiring parent->child edges, and
// recursing into each newly added node's own requirements.
func (g *Graph) UpdateFromRequirements(reqs []Requirement, parentID string) error {
	queue := make([]workItem, 0, len(reqs))
	for _, r := range reqs {
		queue = append(queue, workItem{req: r, parentID: parentID})
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		def, _, err := g.registry.Fetch(item.req, g.namespaceHints, g.namespaceCounter)
		if err != nil {
			return err
		}

		if !g.conditionsSatisfied(def.Conditions) {
			g.conditionalPackages = append(g.conditionalPackages, conditionalEntry{req: item.req, parentID: item.parentID})
			continue
		}

		newNodeIDs, err := g.attachDefinition(def, item.req, item.parentID)
		if err != nil {
			return err
		}
		for _, nid := range newNodeIDs {
			n := g.nodes[nid]
			queue = append(queue, requirementsToWorkItems(n.Package.Requirements, nid)...)
		}

		queue = append(queue, g.promoteSatisfiedConditionals()...)
	}

	return nil
}

func requirementsToWorkItems(reqs []Requirement, parentID string) []workItem {
	items := make([]workItem, 0, len(reqs))
	for _, r := range reqs {
		items = append(items, workItem{req: r, parentID: parentID})
	}
	return items
}

// attachDefinition materializes the package(s) for def against req (one
// per declared variant when req does not pin one) and wires parent->child
// edges, returning the ids of any genuinely new nodes created.
func (g *Graph) attachDefinition(def *Definition, req Requirement, parentID string) ([]string, error) {
	var newNodes []string

	addOne := func(variantIndex int) error {
		pkg, err := materialize(def, variantIndex)
		if err != nil {
			return err
		}
		isNew := g.getOrCreateNode(pkg)
		g.addEdge(parentID, pkg.QualifiedIdentifier, req)
		if len(def.Variants) > 0 {
			g.addToVariantGroup(def.QualifiedID(), pkg.QualifiedIdentifier)
		}
		if isNew {
			newNodes = append(newNodes, pkg.QualifiedIdentifier)
			g.history.record("node-added", pkg.QualifiedIdentifier)
		}
		return nil
	}

	if len(def.Variants) > 0 && req.Variant == "" {
		for i := range def.Variants {
			if err := addOne(i); err != nil {
				return nil, err
			}
		}
		return newNodes, nil
	}

	variantIndex := -1
	if req.Variant != "" {
		idx, ok := def.HasVariant(req.Variant)
		if !ok {
			return nil, &DefinitionError{Kind: DefinitionNoMatchingVersion, Request: req.String(), Detail: "definition declares no such variant"}
		}
		variantIndex = idx
	}
	if err := addOne(variantIndex); err != nil {
		return nil, err
	}
	return newNodes, nil
}

// getOrCreateNode inserts pkg's node if absent, returning true iff it was
// newly created.
func (g *Graph) getOrCreateNode(pkg Package) bool {
	if _, ok := g.nodes[pkg.QualifiedIdentifier]; ok {
		return false
	}
	g.seqCtr++
	g.nodes[pkg.QualifiedIdentifier] = &Node{ID: pkg.QualifiedIdentifier, Package: pkg, seq: g.seqCtr}
	return true
}

func (g *Graph) addToVariantGroup(defID, nodeID string) {
	if g.inGroup[defID] == nil {
		g.inGroup[defID] = make(map[string]bool)
	}
	if g.inGroup[defID][nodeID] {
		return
	}
	g.inGroup[defID][nodeID] = true
	g.variantGroups[defID] = append(g.variantGroups[defID], nodeID)
}

// addEdge wires parentID -> childID with weight equal to the 1-based
// position of childID among parentID's distinct children the first time
// it is seen; later calls for the same pair keep the original (minimum)
// weight and the original requirement, matching the "first request wins"
// semantics.
func (g *Graph) addEdge(parentID, childID string, req Requirement) {
	key := edgeKey{parentID, childID}
	if _, exists := g.edgeWeight[key]; exists {
		g.markParent(parentID, childID)
		return
	}
	weight := len(g.childOrder[parentID]) + 1
	g.childOrder[parentID] = append(g.childOrder[parentID], childID)
	g.edgeWeight[key] = weight
	g.edgeReq[key] = req
	g.markParent(parentID, childID)
}

func (g *Graph) markParent(parentID, childID string) {
	if g.parentsOf[childID] == nil {
		g.parentsOf[childID] = make(map[string]bool)
	}
	g.parentsOf[childID][parentID] = true
}

func (g *Graph) conditionsSatisfied(conds []Requirement) bool {
	for _, c := range conds {
		if !g.anyNodeMatches(c) {
			return false
		}
	}
	return true
}

func (g *Graph) anyNodeMatches(req Requirement) bool {
	for id, n := range g.nodes {
		if id == RootNodeID {
			continue
		}
		if match(req, n.Package) {
			return true
		}
	}
	return false
}

// promoteSatisfiedConditionals re-scans conditional-packages, returning
// work items for every requirement whose gating definition's conditions
// are now satisfied and removing them from the pending list.
func (g *Graph) promoteSatisfiedConditionals() []workItem {
	var promoted []workItem
	var remaining []conditionalEntry
	for _, entry := range g.conditionalPackages {
		def, _, err := g.registry.Fetch(entry.req, g.namespaceHints, g.namespaceCounter)
		if err == nil && g.conditionsSatisfied(def.Conditions) {
			promoted = append(promoted, workItem{req: entry.req, parentID: entry.parentID})
			continue
		}
		remaining = append(remaining, entry)
	}
	g.conditionalPackages = remaining
	return promoted
}

// Find returns the ids of nodes whose package matches req.
func (g *Graph) Find(req Requirement) []string {
	var out []string
	for id, n := range g.nodes {
		if id == RootNodeID {
			continue
		}
		if match(req, n.Package) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Node returns the node for id, if present.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns every non-ROOT node.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for id, n := range g.nodes {
		if id == RootNodeID {
			continue
		}
		out = append(out, n)
	}
	return out
}

// EdgeRequirement returns the requirement recorded for parent->child, if
// such an edge exists.
func (g *Graph) EdgeRequirement(parentID, childID string) (Requirement, bool) {
	r, ok := g.edgeReq[edgeKey{parentID, childID}]
	return r, ok
}

// Children returns the ordered distinct child ids of parentID.
func (g *Graph) Children(parentID string) []string {
	return append([]string{}, g.childOrder[parentID]...)
}

// Parents returns the set of parent ids pointing at childID.
func (g *Graph) Parents(childID string) map[string]bool {
	out := make(map[string]bool, len(g.parentsOf[childID]))
	for p := range g.parentsOf[childID] {
		out[p] = true
	}
	return out
}

// IncomingRequirements collects the requirement recorded on every parent
// edge pointing at nodeID.
func (g *Graph) IncomingRequirements(nodeID string) []Requirement {
	var out []Requirement
	for p := range g.parentsOf[nodeID] {
		if r, ok := g.edgeReq[edgeKey{p, nodeID}]; ok {
			out = append(out, r)
		}
	}
	return out
}

// relinkParents re-points every parent edge of removedID to substituteID
// (preserving weights), then deletes removedID. If substituteID is empty,
// every former parent records a GraphInvalidNodesError instead.
func (g *Graph) relinkParents(removedID, substituteID string, newReq Requirement) {
	parents := make([]string, 0, len(g.parentsOf[removedID]))
	for p := range g.parentsOf[removedID] {
		parents = append(parents, p)
	}
	sort.Strings(parents)

	if substituteID == "" {
		g.addError(&GraphInvalidNodesError{NodeID: removedID, Parents: parents})
		g.removeNode(removedID)
		return
	}

	for _, p := range parents {
		oldKey := edgeKey{p, removedID}
		weight := g.edgeWeight[oldKey]
		newKey := edgeKey{p, substituteID}
		if existing, ok := g.edgeWeight[newKey]; !ok || weight < existing {
			g.edgeWeight[newKey] = weight
		}
		g.edgeReq[newKey] = newReq
		g.replaceChild(p, removedID, substituteID)
		g.markParent(p, substituteID)
	}

	g.removeNode(removedID)
}

func (g *Graph) replaceChild(parentID, oldChild, newChild string) {
	order := g.childOrder[parentID]
	out := make([]string, 0, len(order))
	seen := false
	for _, c := range order {
		if c == oldChild {
			if !seen {
				out = append(out, newChild)
				seen = true
			}
			continue
		}
		if c == newChild {
			seen = true
		}
		out = append(out, c)
	}
	g.childOrder[parentID] = out
}

// removeNode deletes a node and every reference to it from the graph's
// edge and variant-group bookkeeping. It does not relink parents; callers
// that need that call relinkParents instead.
func (g *Graph) removeNode(id string) {
	delete(g.nodes, id)
	delete(g.parentsOf, id)
	delete(g.childOrder, id)

	for parent, children := range g.childOrder {
		out := children[:0:0]
		for _, c := range children {
			if c != id {
				out = append(out, c)
			}
		}
		g.childOrder[parent] = out
	}
	for key := range g.edgeWeight {
		if key.to == id || key.from == id {
			delete(g.edgeWeight, key)
			delete(g.edgeReq, key)
		}
	}
	for defID, members := range g.inGroup {
		if members[id] {
			delete(members, id)
			filtered := g.variantGroups[defID][:0:0]
			for _, m := range g.variantGroups[defID] {
				if m != id {
					filtered = append(filtered, m)
				}
			}
			g.variantGroups[defID] = filtered
			if len(filtered) == 0 {
				delete(g.variantGroups, defID)
				delete(g.inGroup, defID)
			}
		}
	}
}

// downgradeVersions attempts, for each definition id in defIDs, to replace
// its current node(s) with a node materialized at the next-older version
// satisfying the combined incoming requirement. Returns true iff at least
// one definition was downgraded.
func (g *Graph) downgradeVersions(defIDs []string) bool {
	any := false
	for _, defID := range defIDs {
		if g.downgradeOne(defID) {
			any = true
		}
	}
	return any
}

func (g *Graph) downgradeOne(defID string) bool {
	var current []*Node
	for _, n := range g.nodes {
		if n.ID == RootNodeID || n.Package.SourceDefinition == nil {
			continue
		}
		if n.Package.SourceDefinition.QualifiedID() == defID {
			current = append(current, n)
		}
	}
	if len(current) == 0 {
		return false
	}

	var reqs []Requirement
	lowest := current[0].Package.Version
	variant := current[0].Package.VariantID
	for _, n := range current {
		reqs = append(reqs, g.IncomingRequirements(n.ID)...)
		if n.Package.Version.Less(lowest) {
			lowest = n.Package.Version
		}
	}
	combined, err := combineAllRequirements(reqs)
	if err != nil {
		return false
	}

	entries := g.registry.byQualifiedID[defID]
	var chosen *Definition
	for _, e := range entries {
		if !e.version.Less(lowest) {
			continue
		}
		if !combined.Specifiers.Matches(e.version) {
			continue
		}
		if variant != "" {
			if _, ok := e.def.HasVariant(variant); !ok {
				continue
			}
		}
		chosen = e.def
		break
	}
	if chosen == nil {
		return false
	}

	variantIndex := -1
	if variant != "" {
		variantIndex, _ = chosen.HasVariant(variant)
	}
	pkg, err := materialize(chosen, variantIndex)
	if err != nil {
		return false
	}
	g.getOrCreateNode(pkg)
	for _, n := range current {
		if n.ID == pkg.QualifiedIdentifier {
			continue
		}
		g.relinkParents(n.ID, pkg.QualifiedIdentifier, combined)
	}
	g.history.record("downgrade", fmt.Sprintf("%s -> %s", defID, pkg.Version.String()))
	return true
}

func combineAllRequirements(reqs []Requirement) (Requirement, error) {
	if len(reqs) == 0 {
		return Requirement{}, fmt.Errorf("no incoming requirements to combine")
	}
	acc := reqs[0]
	for _, r := range reqs[1:] {
		combined, ok := combineRequirement(acc, r)
		if !ok {
			// differing, non-empty variants: keep the first request's
			// variant and still intersect specifiers; the later
			// request's variant is dropped, not unioned.
			combined = acc
			combined.Specifiers = acc.Specifiers.Intersect(r.Specifiers)
		}
		acc = combined
	}
	return acc, nil
}

// variantGroupOrder returns the ordered list of ordered node-id lists
// described in §4.D: outer order by decreasing occurrence count among the
// graph's requirement edges, inner order by declared variant order.
func (g *Graph) variantGroupOrder() [][]string {
	defIDs := make([]string, 0, len(g.variantGroups))
	for id := range g.variantGroups {
		if len(g.variantGroups[id]) > 1 {
			defIDs = append(defIDs, id)
		}
	}
	occurrences := func(defID string) int {
		count := 0
		for _, nid := range g.variantGroups[defID] {
			count += len(g.parentsOf[nid])
		}
		return count
	}
	sort.SliceStable(defIDs, func(i, j int) bool {
		oi, oj := occurrences(defIDs[i]), occurrences(defIDs[j])
		if oi != oj {
			return oi > oj
		}
		return defIDs[i] < defIDs[j]
	})

	out := make([][]string, 0, len(defIDs))
	for _, id := range defIDs {
		out = append(out, append([]string{}, g.variantGroups[id]...))
	}
	return out
}

// prune removes nodes unreachable from ROOT and empties any now-empty
// variant groups.
func (g *Graph) prune() {
	reachable := map[string]bool{RootNodeID: true}
	queue := []string{RootNodeID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, c := range g.childOrder[id] {
			if !reachable[c] {
				reachable[c] = true
				queue = append(queue, c)
			}
		}
	}

	for id := range g.nodes {
		if id != RootNodeID && !reachable[id] {
			g.removeNode(id)
		}
	}
	for defID, members := range g.variantGroups {
		filtered := members[:0:0]
		for _, m := range members {
			if reachable[m] {
				filtered = append(filtered, m)
			}
		}
		if len(filtered) == 0 {
			delete(g.variantGroups, defID)
			delete(g.inGroup, defID)
		} else {
			g.variantGroups[defID] = filtered
		}
	}
}

// clone produces a deep copy of the graph's mutable bookkeeping, sharing
// *Node pointers (and the immutable Package/Definition values they wrap)
// by reference since nothing ever mutates a Node in place.
func (g *Graph) clone() *Graph {
	ng := &Graph{
		registry:         g.registry,
		namespaceHints:   g.namespaceHints,
		namespaceCounter: g.namespaceCounter,
		history:          g.history,
		nodes:            make(map[string]*Node, len(g.nodes)),
		childOrder:       make(map[string][]string, len(g.childOrder)),
		edgeWeight:       make(map[edgeKey]int, len(g.edgeWeight)),
		edgeReq:          make(map[edgeKey]Requirement, len(g.edgeReq)),
		parentsOf:        make(map[string]map[string]bool, len(g.parentsOf)),
		variantGroups:    make(map[string][]string, len(g.variantGroups)),
		inGroup:          make(map[string]map[string]bool, len(g.inGroup)),
		errors:           append([]error{}, g.errors...),
		seqCtr:           g.seqCtr,
	}
	for k, v := range g.nodes {
		ng.nodes[k] = v
	}
	for k, v := range g.childOrder {
		ng.childOrder[k] = append([]string{}, v...)
	}
	for k, v := range g.edgeWeight {
		ng.edgeWeight[k] = v
	}
	for k, v := range g.edgeReq {
		ng.edgeReq[k] = v
	}
	for k, v := range g.parentsOf {
		cp := make(map[string]bool, len(v))
		for p := range v {
			cp[p] = true
		}
		ng.parentsOf[k] = cp
	}
	for k, v := range g.variantGroups {
		ng.variantGroups[k] = append([]string{}, v...)
	}
	for k, v := range g.inGroup {
		cp := make(map[string]bool, len(v))
		for m := range v {
			cp[m] = true
		}
		ng.inGroup[k] = cp
	}
	ng.conditionalPackages = append([]conditionalEntry{}, g.conditionalPackages...)
	return ng
}
