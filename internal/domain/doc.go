// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (guild.go, template.go, session.go, action.go, errors.go)
// hold shared types and the contracts implemented by adapters. No implementation
// code beyond small pure helpers on the types themselves.
package domain
