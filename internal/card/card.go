package card

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Identity is the name and printed number a vision model read off a card.
// Number is the numerator of the printed "N/Total" marker and is kept as text.
type Identity struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

// UnmarshalJSON accepts the number as either a JSON string or a JSON number.
func (i *Identity) UnmarshalJSON(data []byte) error {
	var payload struct {
		Name   string          `json:"name"`
		Number json.RawMessage `json:"number"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	i.Name = payload.Name
	i.Number = ""

	raw := bytes.TrimSpace(payload.Number)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		return json.Unmarshal(raw, &i.Number)
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return fmt.Errorf("number: %w", err)
	}
	i.Number = num.String()
	return nil
}

// ErrInvalidNumber reports a number that is not a plain positive integer.
var ErrInvalidNumber = errors.New("card number is not a positive integer")

// ValidateNumber checks that Number is a positive integer without a
// "/total" suffix.
func (i Identity) ValidateNumber() error {
	value := strings.TrimSpace(i.Number)
	if value == "" {
		return fmt.Errorf("%w: empty", ErrInvalidNumber)
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: %q", ErrInvalidNumber, value)
		}
	}
	if n, err := strconv.Atoi(value); err != nil || n <= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidNumber, value)
	}
	return nil
}

// Record is the first catalog entry matching an Identity. Raw holds the
// catalog object exactly as returned; the typed fields are read from it.
type Record struct {
	ID       string
	Name     string
	Number   string
	SetID    string
	SetName  string
	SetCode  string
	Rarity   string
	ImageURL string
	Raw      json.RawMessage
}

type catalogCard struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number string `json:"number"`
	Rarity string `json:"rarity"`
	Set    struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		PtcgoCode string `json:"ptcgoCode"`
	} `json:"set"`
	Images struct {
		Small string `json:"small"`
		Large string `json:"large"`
	} `json:"images"`
}

// ParseRecord decodes a single catalog card object.
func ParseRecord(raw json.RawMessage) (Record, error) {
	var parsed catalogCard
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Record{}, fmt.Errorf("decode catalog card: %w", err)
	}
	return Record{
		ID:       parsed.ID,
		Name:     parsed.Name,
		Number:   parsed.Number,
		SetID:    parsed.Set.ID,
		SetName:  parsed.Set.Name,
		SetCode:  parsed.Set.PtcgoCode,
		Rarity:   parsed.Rarity,
		ImageURL: parsed.Images.Large,
		Raw:      append(json.RawMessage(nil), raw...),
	}, nil
}

// MarshalJSON emits the catalog object verbatim when available.
func (r Record) MarshalJSON() ([]byte, error) {
	if len(bytes.TrimSpace(r.Raw)) > 0 {
		return r.Raw, nil
	}
	var out catalogCard
	out.ID = r.ID
	out.Name = r.Name
	out.Number = r.Number
	out.Rarity = r.Rarity
	out.Set.ID = r.SetID
	out.Set.Name = r.SetName
	out.Set.PtcgoCode = r.SetCode
	out.Images.Large = r.ImageURL
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	parsed, err := ParseRecord(data)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ContentID is the opaque identifier a publisher returns for a metadata
// document. It is never parsed.
type ContentID string

// URI returns the ipfs:// form stored as token metadata.
func (c ContentID) URI() string {
	return "ipfs://" + string(c)
}

func (c ContentID) String() string { return string(c) }

// TokenParams names the token type created for a card.
type TokenParams struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// ParamsFor derives token parameters from a record: the set name and the set
// code, falling back to the upper-cased set id when the set has no code.
func ParamsFor(r Record) TokenParams {
	symbol := strings.TrimSpace(r.SetCode)
	if symbol == "" {
		symbol = strings.ToUpper(strings.TrimSpace(r.SetID))
	}
	return TokenParams{
		Name:   strings.TrimSpace(r.SetName),
		Symbol: symbol,
	}
}

// MintedToken identifies a minted unit.
type MintedToken struct {
	TokenID string  `json:"token_id"`
	Serials []int64 `json:"serials"`
}
