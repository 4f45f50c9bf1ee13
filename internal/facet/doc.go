// Package facet implements the read-only reflection stage: computing
// derived facets and content-addressed signatures for things and
// properties.
//
// The stage never touches a repository. Callers decide whether to persist
// the resulting signatures through the engines' setSignature verbs.
package facet
