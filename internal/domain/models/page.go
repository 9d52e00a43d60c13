package models

import "pkm/internal/config"

// Page selects a window of an ordered listing.
type Page struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

// ApplyDefaults clamps the window into a usable range.
func (p *Page) ApplyDefaults() {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = config.DefaultPageLimit
	}
	if p.Limit > config.MaxPageLimit {
		p.Limit = config.MaxPageLimit
	}
}

// DefaultPage is skip=0, limit=DefaultPageLimit.
func DefaultPage() Page {
	return Page{Skip: 0, Limit: config.DefaultPageLimit}
}
