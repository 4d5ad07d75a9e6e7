// Package app provides the application service layer.
//
// The Executor runs dashboard actions: clone category, clone role, copy
// permissions and the template operations. It sits between HTTP handlers
// and the domain ports and depends on domain interfaces, not adapters.
// Every action is an independent transaction; a failure part way through
// leaves whatever was already created in place.
package app
