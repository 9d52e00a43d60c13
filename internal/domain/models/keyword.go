package models

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"pkm/internal/config"
)

// Keyword is a user-scoped tag; names are unique per user.
type Keyword struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type KeywordInput struct {
	Name string `json:"name"`
}

func (k *KeywordInput) Normalize() {
	k.Name = strings.TrimSpace(k.Name)
}

func (k KeywordInput) Validate() error {
	return asValidationError(validation.ValidateStruct(&k,
		validation.Field(&k.Name,
			validation.Required.Error("name cannot be empty"),
			validation.RuneLength(1, config.MaxKeywordNameLength),
		),
	))
}
