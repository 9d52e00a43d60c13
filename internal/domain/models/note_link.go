package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"pkm/internal/config"
)

// NoteLink is a directed edge between two notes of the same user.
type NoteLink struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	SourceNoteID string    `json:"source_note_id"`
	TargetNoteID string    `json:"target_note_id"`
	LinkType     *string   `json:"link_type,omitempty"`
	Description  *string   `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type NoteLinkCreate struct {
	SourceNoteID string  `json:"source_note_id"`
	TargetNoteID string  `json:"target_note_id"`
	LinkType     *string `json:"link_type,omitempty"`
	Description  *string `json:"description,omitempty"`
}

func (c NoteLinkCreate) Validate() error {
	return asValidationError(validation.ValidateStruct(&c,
		validation.Field(&c.SourceNoteID, validation.Required, is.UUID),
		validation.Field(&c.TargetNoteID, validation.Required, is.UUID,
			validation.NotIn(c.SourceNoteID).Error("a note cannot link to itself"),
		),
		validation.Field(&c.LinkType, validation.RuneLength(0, config.MaxLinkTypeLength)),
	))
}
