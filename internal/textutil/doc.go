// Package textutil provides small text helpers shared by the service adapters:
// card name normalization for catalog queries, log-safe payload snippets, and
// filesystem-safe tokens.
package textutil
