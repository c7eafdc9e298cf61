// Command cardmint runs the card photo to NFT pipeline.
//
// cardmint run <image> uploads a card photo, reads its name and number with
// a vision model, resolves the card in the public catalog, publishes token
// metadata, and mints one NFT. identify stops after the catalog lookup and
// run --dry-run stops after packaging. history list/show read the local
// run database.
package main
