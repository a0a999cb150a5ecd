// Package types defines the Ring record schema, the id-keyed Container, the
// Document persistence contract, and the standard error types for the
// aurarings storage system.
//
// A Document is the owning entity (a game token) whose namespaced flag store
// holds one Container plus an integer version tag under the
// "token-aura-ring" namespace.
package types
