// Package pipeline runs a card photo through upload, identity extraction,
// catalog resolution, metadata packaging, publication, and minting.
//
// Each stage runs once. The first failure halts the run; later stages are
// never invoked and nothing already committed (an uploaded image, a token
// type created before a failed mint) is rolled back. Run always returns a
// Report describing how far the run got, alongside the halting error.
//
// Stage adapters are supplied as interfaces so the runner can be exercised
// with stubs; Build wires the production adapters from config.
package pipeline
