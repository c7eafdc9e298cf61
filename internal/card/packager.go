package card

import (
	"encoding/json"
	"fmt"
)

// DefaultDescription is the description stamped on every token.
const DefaultDescription = "A unique Pokémon NFT"

// Metadata is the document published for a token.
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Properties  Record `json:"properties"`
}

// Encode renders the document with two-space indentation.
func (m Metadata) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return data, nil
}

// Packager turns catalog records into token metadata.
type Packager struct {
	description string
}

// NewPackager returns a packager stamping description on every document. An
// empty description selects DefaultDescription.
func NewPackager(description string) Packager {
	if description == "" {
		description = DefaultDescription
	}
	return Packager{description: description}
}

// Package builds the metadata document for record.
func (p Packager) Package(record Record) Metadata {
	description := p.description
	if description == "" {
		description = DefaultDescription
	}
	return Metadata{
		Name:        record.Name,
		Description: description,
		Image:       record.ImageURL,
		Properties:  record,
	}
}
