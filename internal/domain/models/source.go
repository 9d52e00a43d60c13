package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"pkm/internal/config"
)

// Source is where a note's material came from (book, article, URL...).
type Source struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Type        *string        `json:"type,omitempty"`
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	URL         *string        `json:"url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type SourceCreate struct {
	Type        *string        `json:"type,omitempty"`
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	URL         *string        `json:"url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func (c SourceCreate) Validate() error {
	return asValidationError(validation.ValidateStruct(&c,
		validation.Field(&c.Type, validation.RuneLength(0, config.MaxTypeLength)),
		validation.Field(&c.URL, is.URL),
	))
}

type SourcePatch struct {
	Type        OptionalString `json:"type"`
	Title       OptionalString `json:"title"`
	Description OptionalString `json:"description"`
	URL         OptionalString `json:"url"`
}

func (p SourcePatch) Validate() error {
	return asValidationError(validation.ValidateStruct(&p,
		validation.Field(&p.Type, validation.By(optionalRuneLength(config.MaxTypeLength))),
		validation.Field(&p.URL, validation.By(func(value interface{}) error {
			if v, ok := value.(OptionalString).Get(); ok {
				return is.URL.Validate(v)
			}
			return nil
		})),
	))
}

func (p *SourcePatch) IsEmpty() bool {
	return !p.Type.Present && !p.Title.Present && !p.Description.Present && !p.URL.Present
}
