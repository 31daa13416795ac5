package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	middleware "github.com/markdave123-py/aspiro/internal/api/middlewares"
	"github.com/markdave123-py/aspiro/internal/models"
	"github.com/markdave123-py/aspiro/internal/pkg/apperrors"
	"github.com/markdave123-py/aspiro/internal/pkg/response"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object into dst. An empty body is rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperrors.Validation("request body is empty")
		case errors.As(err, &tooLarge):
			return apperrors.Validation("request body too large")
		default:
			return apperrors.Validation("invalid request body").Wrap(err)
		}
	}
	return nil
}

// currentUser fetches the user the gate attached to the request. Handlers
// mounted outside the gate get a 401 rather than a nil dereference.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, apperrors.Unauthorized("not authenticated"))
		return nil, false
	}
	return user, true
}
