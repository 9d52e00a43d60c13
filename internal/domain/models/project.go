package models

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"pkm/internal/config"
)

// Project is a node in a user's project forest.
type Project struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	ParentProjectID *string   `json:"parent_project_id,omitempty"` // NULL = root project
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsRoot reports whether the project has no parent.
func (p *Project) IsRoot() bool {
	return p.ParentProjectID == nil
}

// ProjectCreate is the input for creating a project. ParentProjectID is optional.
type ProjectCreate struct {
	Name            string  `json:"name"`
	Description     *string `json:"description,omitempty"`
	ParentProjectID *string `json:"parent_project_id,omitempty"`
}

// Normalize trims the name and treats an empty parent id as no parent.
func (c *ProjectCreate) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	if c.ParentProjectID != nil && strings.TrimSpace(*c.ParentProjectID) == "" {
		c.ParentProjectID = nil
	}
}

// Validate checks bounds. Call Normalize first.
func (c ProjectCreate) Validate() error {
	return asValidationError(validation.ValidateStruct(&c,
		validation.Field(&c.Name,
			validation.Required.Error("name cannot be empty"),
			validation.RuneLength(1, config.MaxProjectNameLength),
		),
		validation.Field(&c.Description, validation.RuneLength(0, config.MaxProjectDescriptionLength)),
		validation.Field(&c.ParentProjectID, is.UUID),
	))
}

// ProjectPatch carries the optional fields of an update. Description and
// ParentProjectID are tri-state: absent leaves the column alone, null clears
// it (for the parent: move to root), a value sets it.
type ProjectPatch struct {
	Name            *string        `json:"name,omitempty"`
	Description     OptionalString `json:"description"`
	ParentProjectID OptionalString `json:"parent_project_id"`
}

// Normalize trims the name if present and, like ProjectCreate, treats a
// blank parent id as no parent (move to root).
func (p *ProjectPatch) Normalize() {
	if p.Name != nil {
		trimmed := strings.TrimSpace(*p.Name)
		p.Name = &trimmed
	}
	if v, ok := p.ParentProjectID.Get(); ok && strings.TrimSpace(v) == "" {
		p.ParentProjectID = Clear()
	}
}

// Validate checks bounds of the fields that are present. Call Normalize first.
func (p ProjectPatch) Validate() error {
	return asValidationError(validation.ValidateStruct(&p,
		validation.Field(&p.Name,
			validation.NilOrNotEmpty.Error("name cannot be empty"),
			validation.RuneLength(1, config.MaxProjectNameLength),
		),
		validation.Field(&p.Description, validation.By(optionalRuneLength(config.MaxProjectDescriptionLength))),
		validation.Field(&p.ParentProjectID, validation.By(optionalUUID)),
	))
}

// IsEmpty reports whether the patch changes nothing.
func (p *ProjectPatch) IsEmpty() bool {
	return p.Name == nil && !p.Description.Present && !p.ParentProjectID.Present
}

// ProjectWithChildren is a project plus its direct children, the unit the
// project store caches.
type ProjectWithChildren struct {
	Project  Project   `json:"project"`
	Children []Project `json:"children,omitempty"`
}
