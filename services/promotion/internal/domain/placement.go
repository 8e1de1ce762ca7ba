package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	generalDomain "github.com/chezmonami/platform/pkg/domain"
)

type ElementType string

const (
	ElementStructure ElementType = "structure"
	ElementProduct   ElementType = "product"
)

func (t ElementType) Valid() bool {
	return t == ElementStructure || t == ElementProduct
}

type Position string

const (
	PositionHome       Position = "home"
	PositionListing    Position = "listing"
	PositionEverywhere Position = "everywhere"
)

func (p Position) Valid() bool {
	switch p {
	case PositionHome, PositionListing, PositionEverywhere:
		return true
	}
	return false
}

func ParsePosition(raw string) (Position, error) {
	p := Position(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", generalDomain.Invalid("position", fmt.Sprintf("unknown position %q", raw))
	}
	return p, nil
}

// Placement features a structure or product at a page position. A nil
// EndsAt means the placement never expires.
type Placement struct {
	ID          int64       `json:"id"`
	ElementID   int64       `json:"element_id"`
	ElementType ElementType `json:"element_type"`
	Position    Position    `json:"position"`
	SortOrder   int32       `json:"sort_order"`
	Title       *string     `json:"title,omitempty"`
	StartsAt    time.Time   `json:"starts_at"`
	EndsAt      *time.Time  `json:"ends_at,omitempty"`
	Enabled     bool        `json:"enabled"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (p *Placement) IsActive(now time.Time) bool {
	if !p.Enabled || now.Before(p.StartsAt) {
		return false
	}
	return p.EndsAt == nil || !now.After(*p.EndsAt)
}

// Shows reports whether the placement appears at the requested position.
// "everywhere" placements show at every position; an empty request matches
// all placements.
func (p *Placement) Shows(at Position) bool {
	return at == "" || p.Position == at || p.Position == PositionEverywhere
}

// SortPlacements orders by ascending SortOrder and keeps the incoming order
// for ties.
func SortPlacements(placements []Placement) {
	sort.SliceStable(placements, func(i, j int) bool {
		return placements[i].SortOrder < placements[j].SortOrder
	})
}

// ActivePlacements filters and sorts placements for display.
func ActivePlacements(placements []Placement, at Position, now time.Time) []Placement {
	out := make([]Placement, 0, len(placements))
	for _, p := range placements {
		if p.IsActive(now) && p.Shows(at) {
			out = append(out, p)
		}
	}
	SortPlacements(out)
	return out
}

type PlacementInput struct {
	ElementID   int64
	ElementType ElementType
	Position    Position
	SortOrder   int32
	Title       *string
	StartsAt    *time.Time
	EndsAt      *time.Time
	Enabled     bool
}

// Normalize applies defaults: structure elements, sort order of at least 1,
// start at now.
func (in *PlacementInput) Normalize(now time.Time) {
	in.ElementType = ElementType(strings.ToLower(strings.TrimSpace(string(in.ElementType))))
	if in.ElementType == "" {
		in.ElementType = ElementStructure
	}
	in.Position = Position(strings.ToLower(strings.TrimSpace(string(in.Position))))
	if in.SortOrder < 1 {
		in.SortOrder = 1
	}
	if in.StartsAt == nil {
		start := now.UTC()
		in.StartsAt = &start
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			in.Title = nil
		} else {
			in.Title = &title
		}
	}
}

func (in PlacementInput) Validate() error {
	v := generalDomain.NewValidationError()

	if in.ElementID <= 0 {
		v.Add("element_id", "element is required")
	}
	if !in.ElementType.Valid() {
		v.Add("element_type", fmt.Sprintf("element type must be %s or %s", ElementStructure, ElementProduct))
	}
	if in.Position == "" {
		v.Add("position", "position is required")
	} else if !in.Position.Valid() {
		v.Add("position", fmt.Sprintf("unknown position %q", in.Position))
	}
	if in.StartsAt != nil && in.EndsAt != nil && in.EndsAt.Before(*in.StartsAt) {
		v.Add("ends_at", "end date must not be before start date")
	}

	return v.OrNil()
}

func (in PlacementInput) Build() *Placement {
	p := &Placement{
		ElementID:   in.ElementID,
		ElementType: in.ElementType,
		Position:    in.Position,
		SortOrder:   in.SortOrder,
		Title:       in.Title,
		Enabled:     in.Enabled,
	}
	if in.StartsAt != nil {
		p.StartsAt = in.StartsAt.UTC()
	}
	if in.EndsAt != nil {
		end := in.EndsAt.UTC()
		p.EndsAt = &end
	}
	return p
}
