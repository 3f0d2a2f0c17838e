package core

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"unicode/utf8"
)

// DefaultGlobalFee is the fee percentage applied when neither a person nor
// their team carries an override.
const DefaultGlobalFee = 5.0

type (
	// Team groups people and may override the global fee for its members.
	Team struct {
		ID   string   `json:"id"`
		Name string   `json:"name"`
		Fee  *float64 `json:"fee,omitempty"`
	}

	// Person belongs to exactly one team. Billable is always numeric once
	// it crosses the repository boundary.
	Person struct {
		ID       string   `json:"id"`
		TeamID   string   `json:"teamId"`
		Name     string   `json:"name"`
		Billable float64  `json:"billable"`
		Fee      *float64 `json:"fee,omitempty"`
	}
)

var (
	ErrEmptyName      = errors.New("empty name")
	ErrNameTooLong    = errors.New("name too long (max 200 characters)")
	ErrTeamRequired   = errors.New("team required")
	ErrInvalidFee     = errors.New("invalid fee")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidNumber  = errors.New("invalid number")
	ErrTeamNotFound   = errors.New("team not found")
	ErrPersonNotFound = errors.New("person not found")
)

const maxNameLength = 200

// Float returns a pointer to v, for optional fee fields.
func Float(v float64) *float64 {
	return &v
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func validateFee(fee *float64) error {
	if fee == nil {
		return nil
	}
	return ValidateFee(*fee)
}

// ValidateFee rejects NaN and infinities. Fees are otherwise unbounded.
func ValidateFee(fee float64) error {
	if !isFinite(fee) {
		return ErrInvalidFee
	}
	return nil
}

func (t Team) Validate() error {
	if err := validateName(t.Name); err != nil {
		return err
	}
	return validateFee(t.Fee)
}

func (p Person) Validate() error {
	if err := validateName(p.Name); err != nil {
		return err
	}
	if strings.TrimSpace(p.TeamID) == "" {
		return ErrTeamRequired
	}
	if !isFinite(p.Billable) {
		return ErrInvalidAmount
	}
	return validateFee(p.Fee)
}

// Clone returns a copy that shares no memory with t.
func (t Team) Clone() Team {
	t.Fee = cloneFloat(t.Fee)
	return t
}

// Clone returns a copy that shares no memory with p.
func (p Person) Clone() Person {
	p.Fee = cloneFloat(p.Fee)
	return p
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// UnmarshalJSON accepts a fee stored either as a number or as its string form.
func (t *Team) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID   string          `json:"id"`
		Name string          `json:"name"`
		Fee  json.RawMessage `json:"fee"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Team{ID: raw.ID, Name: raw.Name}
	if fee, ok := DecodeNumber(raw.Fee); ok {
		t.Fee = &fee
	}
	return nil
}

// UnmarshalJSON normalizes billable and fee, which older documents may hold
// as strings. A billable amount that is missing or not numeric becomes 0.
func (p *Person) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       string          `json:"id"`
		TeamID   string          `json:"teamId"`
		Name     string          `json:"name"`
		Billable json.RawMessage `json:"billable"`
		Fee      json.RawMessage `json:"fee"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Person{ID: raw.ID, TeamID: raw.TeamID, Name: raw.Name}
	if billable, ok := DecodeNumber(raw.Billable); ok {
		p.Billable = billable
	}
	if fee, ok := DecodeNumber(raw.Fee); ok {
		p.Fee = &fee
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
