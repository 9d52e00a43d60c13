package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"pkm/internal/domain/models"
)

// ParseJSON decodes the request body into dest, capped at 1MB.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParsePage reads ?skip= and ?limit= with defaults applied.
func ParsePage(r *http.Request) (models.Page, error) {
	page := models.DefaultPage()
	q := r.URL.Query()

	if v := q.Get("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return page, fmt.Errorf("skip must be a non-negative integer")
		}
		page.Skip = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return page, fmt.Errorf("limit must be a positive integer")
		}
		page.Limit = n
	}

	page.ApplyDefaults()
	return page, nil
}
