package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/matchpred/internal/domain/envelope"
	"github.com/okian/matchpred/internal/domain/feature"
	"github.com/okian/matchpred/internal/domain/normalize"
)

type validateResponse struct {
	Valid    bool            `json:"valid"`
	Instance *feature.Vector `json:"instance,omitempty"`
	Missing  []string        `json:"missing,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// HandleValidate handles POST /validate: the body is decoded and normalized
// exactly as the pipeline would, without calling the model or writing an
// audit row.
func (s *Server) HandleValidate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	payload, err := envelope.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "decode_error", err)
		return
	}

	vec, err := normalize.Normalize(s.schema, payload)
	if err != nil {
		resp := validateResponse{Error: err.Error()}
		var missing *feature.MissingFeaturesError
		if errors.As(err, &missing) {
			resp.Missing = missing.Names
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: true, Instance: &vec})
}
