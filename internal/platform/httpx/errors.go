package httpx

import (
	"errors"
	"net/http"

	"github.com/pachtwerk/pachtwerk/internal/shared"
)

// RespondError maps the shared sentinel errors to RFC7807 responses.
// Anything unrecognised becomes an opaque 500; logging it is the
// caller's job.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrMissingIdentity):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
