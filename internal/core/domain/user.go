package domain

import (
	"time"

	"github.com/google/uuid"
)

// Region locates a user for region-restricted ballots. Tokens are
// matched against a ballot's allowed regions as country:C, state:C-S
// and city:C-S-Y.
type Region struct {
	Country string `json:"country,omitempty"`
	State   string `json:"state,omitempty"`
	City    string `json:"city,omitempty"`
}

// Tokens returns the region filter tokens this region satisfies, most
// general first.
func (r Region) Tokens() []string {
	var tokens []string
	if r.Country != "" {
		tokens = append(tokens, "country:"+r.Country)
	}
	if r.State != "" {
		tokens = append(tokens, "state:"+r.Country+"-"+r.State)
	}
	if r.City != "" {
		tokens = append(tokens, "city:"+r.Country+"-"+r.State+"-"+r.City)
	}
	return tokens
}

type User struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Tier      string     `json:"tier"`
	Region    Region     `json:"region"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// AuditEvent is one append-only audit log record. Hash commits to the
// canonical form of the event for tamper detection.
type AuditEvent struct {
	Event     string         `json:"event"`
	Actor     *uuid.UUID     `json:"actor,omitempty"`
	RefID     string         `json:"ref_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Severity  string         `json:"severity"`
	Hash      string         `json:"hash"`
	CreatedAt time.Time      `json:"created_at"`
}
