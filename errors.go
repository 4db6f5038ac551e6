package wiz

import (
	"bytes"
	"fmt"
)

// traceError is implemented by errors that know how to render a terser form
// of themselves for the history log, as distinct from the user-facing
// Error() string.
type traceError interface {
	traceString() string
}

// VersionError indicates a literal could not be parsed as a Version.
type VersionError struct {
	Literal string
	Reason  string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Literal, e.Reason)
}

// RequirementError indicates a literal could not be parsed as a Requirement.
type RequirementError struct {
	Literal string
	Reason  string
}

func (e *RequirementError) Error() string {
	return fmt.Sprintf("invalid requirement %q: %s", e.Literal, e.Reason)
}

// DefinitionErrorKind enumerates the ways fetch() can fail to resolve a
// request to a single Definition.
type DefinitionErrorKind uint8

const (
	// DefinitionNotFound indicates no definition exists with the requested
	// qualified identifier.
	DefinitionNotFound DefinitionErrorKind = iota
	// DefinitionAmbiguousNamespace indicates a bare name resolves to more
	// than one namespace and no hint disambiguated it.
	DefinitionAmbiguousNamespace
	// DefinitionNoMatchingVersion indicates a qualified identifier is known,
	// but no version satisfies the specifier set (and variant, if any).
	DefinitionNoMatchingVersion
)

// DefinitionError is returned by registry lookups.
type DefinitionError struct {
	Kind    DefinitionErrorKind
	Request string
	Detail  string
}

func (e *DefinitionError) Error() string {
	switch e.Kind {
	case DefinitionAmbiguousNamespace:
		return fmt.Sprintf("%q is ambiguous across namespaces: %s", e.Request, e.Detail)
	case DefinitionNoMatchingVersion:
		return fmt.Sprintf("no version of %q satisfies the request: %s", e.Request, e.Detail)
	default:
		return fmt.Sprintf("no definition found for %q", e.Request)
	}
}

// CurrentSystemError indicates the caller's SystemDescriptor is incompatible
// with a definition's system constraint, or is itself malformed.
type CurrentSystemError struct {
	Reason string
}

func (e *CurrentSystemError) Error() string {
	return fmt.Sprintf("incompatible system: %s", e.Reason)
}

// RequirementConflict pairs two requirements on the same definition whose
// specifier sets do not overlap.
type RequirementConflict struct {
	DefinitionID string
	ReqA, ReqB   Requirement
	ParentA      string
	ParentB      string
	Combined     SpecifierSet
}

func (c RequirementConflict) String() string {
	return fmt.Sprintf("%s: %s (from %s) has no overlap with %s (from %s)",
		c.DefinitionID, c.ReqA.Specifiers, c.ParentA, c.ReqB.Specifiers, c.ParentB)
}

// GraphConflictsError is recorded onto a combination when two nodes sharing
// a definition-id could not be reconciled to a single version.
type GraphConflictsError struct {
	Conflicts []RequirementConflict
}

func (e *GraphConflictsError) Error() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "failed to reconcile %d conflicting requirement(s):\n", len(e.Conflicts))
	for _, c := range e.Conflicts {
		fmt.Fprintf(&buf, "  %s\n", c)
	}
	return buf.String()
}

func (e *GraphConflictsError) traceString() string {
	return fmt.Sprintf("%d conflict(s)", len(e.Conflicts))
}

// GraphInvalidNodesError is recorded when relinking a removed node's parents
// left a parent with no substitute that satisfies its requirement.
type GraphInvalidNodesError struct {
	NodeID  string
	Parents []string
}

func (e *GraphInvalidNodesError) Error() string {
	return fmt.Sprintf("removing %s left %d parent(s) without a valid substitute", e.NodeID, len(e.Parents))
}

func (e *GraphInvalidNodesError) traceString() string {
	return fmt.Sprintf("invalid nodes after removing %s", e.NodeID)
}

// GraphVariantsError indicates a combination could not be constructed
// because its variant choices produced no surviving graph.
type GraphVariantsError struct {
	DefinitionID string
	Reason       string
}

func (e *GraphVariantsError) Error() string {
	return fmt.Sprintf("variant selection for %s failed: %s", e.DefinitionID, e.Reason)
}

// GraphResolutionError is the fatal error surfaced to the caller when no
// combination validated within the configured budgets. Causes holds every
// error recorded by the combinations of the last attempt.
type GraphResolutionError struct {
	AttemptsUsed     int
	CombinationsUsed int
	Causes           []error
}

func (e *GraphResolutionError) Error() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "failed to resolve graph after %d attempt(s) across %d combination(s)",
		e.AttemptsUsed, e.CombinationsUsed)
	for _, c := range e.Causes {
		fmt.Fprintf(&buf, "\n  %s", c.Error())
	}
	return buf.String()
}

func (e *GraphResolutionError) Unwrap() []error { return e.Causes }
