package elasticsearch

import "strings"

// Namespace maps logical model names to physical index names by prefixing
// a tenant/environment string. Resolution is pure: no I/O, no state.
//
// Resolution must be applied exactly once. A physical name fed back
// through Resolve would accumulate prefixes, which is why the deletion
// API distinguishes DeleteIndexLogical (resolves) from
// DeleteIndexPhysical (does not).
type Namespace struct {
	prefix string
}

// NewNamespace creates a Namespace. The value is lower-cased here so every
// physical name derived from it is consistent. An empty value disables
// prefixing entirely.
func NewNamespace(ns string) Namespace {
	return Namespace{prefix: strings.ToLower(ns)}
}

// Resolve returns the physical index name for a logical model name:
// "{namespace}_{logical}" when a namespace is configured, else the
// logical name unchanged.
func (n Namespace) Resolve(logical string) string {
	if n.prefix == "" {
		return logical
	}
	return n.prefix + "_" + logical
}

// Configured reports whether a namespace prefix is in effect.
func (n Namespace) Configured() bool {
	return n.prefix != ""
}
