// Package docfs contains core domain types and interfaces for the document
// editor's virtual filesystem tree.
package docfs
