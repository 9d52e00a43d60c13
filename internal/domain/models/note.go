package models

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"pkm/internal/config"
)

type Note struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	ProjectID *string        `json:"project_id,omitempty"` // set NULL when the project is deleted
	SourceID  *string        `json:"source_id,omitempty"`
	Title     *string        `json:"title,omitempty"`
	Content   string         `json:"content"`
	Type      *string        `json:"type,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type NoteCreate struct {
	Title     *string        `json:"title,omitempty"`
	Content   string         `json:"content"`
	Type      *string        `json:"type,omitempty"`
	ProjectID *string        `json:"project_id,omitempty"`
	SourceID  *string        `json:"source_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func (c NoteCreate) Validate() error {
	return asValidationError(validation.ValidateStruct(&c,
		validation.Field(&c.Content, validation.Required.Error("content cannot be empty")),
		validation.Field(&c.Title, validation.RuneLength(0, config.MaxNoteTitleLength)),
		validation.Field(&c.Type, validation.RuneLength(0, config.MaxTypeLength)),
		validation.Field(&c.ProjectID, validation.NilOrNotEmpty.Error("must be a valid UUID or omitted"), is.UUID),
		validation.Field(&c.SourceID, validation.NilOrNotEmpty.Error("must be a valid UUID or omitted"), is.UUID),
	))
}

// NotePatch mirrors ProjectPatch: tri-state for nullable columns.
type NotePatch struct {
	Title     OptionalString `json:"title"`
	Content   *string        `json:"content,omitempty"`
	Type      OptionalString `json:"type"`
	ProjectID OptionalString `json:"project_id"`
	SourceID  OptionalString `json:"source_id"`
}

func (p NotePatch) Validate() error {
	if p.Content != nil && strings.TrimSpace(*p.Content) == "" {
		return asValidationError(validation.Errors{"content": validation.NewError("validation_required", "content cannot be empty")})
	}
	return asValidationError(validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.By(optionalRuneLength(config.MaxNoteTitleLength))),
		validation.Field(&p.Type, validation.By(optionalRuneLength(config.MaxTypeLength))),
		validation.Field(&p.ProjectID, validation.By(optionalUUID)),
		validation.Field(&p.SourceID, validation.By(optionalUUID)),
	))
}

func (p *NotePatch) IsEmpty() bool {
	return !p.Title.Present && p.Content == nil && !p.Type.Present && !p.ProjectID.Present && !p.SourceID.Present
}
