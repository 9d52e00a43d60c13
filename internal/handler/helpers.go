package handler

import (
	"errors"
	"net/http"

	"pkm/internal/domain"
	"pkm/internal/httputil"
)

// handleError converts domain errors to problem responses. Typed errors
// contribute their identifying fields as extras; anything unclassified is
// reported as a bare 500 so storage details never leak.
func handleError(w http.ResponseWriter, err error) {
	status := domain.StatusCodeOf(err)
	if status == http.StatusInternalServerError {
		httputil.RespondError(w, status, "internal server error")
		return
	}

	var (
		notFound   *domain.NotFoundError
		validation *domain.ValidationError
		circular   *domain.CircularHierarchyError
		conflict   *domain.ConflictError
	)
	extras := map[string]interface{}{}

	switch {
	case errors.As(err, &notFound):
		extras["resource_type"] = notFound.ResourceType
		extras["resource_id"] = notFound.ResourceID
	case errors.As(err, &validation):
		if validation.Field != "" {
			extras["field"] = validation.Field
		}
	case errors.As(err, &circular):
		extras["id"] = circular.ID
		extras["parent_id"] = circular.ParentID
	case errors.As(err, &conflict):
		extras["resource_type"] = conflict.ResourceType
		extras["resource_id"] = conflict.ResourceID
	}

	httputil.RespondErrorWithExtras(w, status, err.Error(), extras)
}

// badRequest reports a malformed request that never reached a service
func badRequest(w http.ResponseWriter, err error) {
	httputil.RespondError(w, http.StatusBadRequest, err.Error())
}
