package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"rtcontour/internal/models"
	"rtcontour/pkg/codec"
	"rtcontour/pkg/engine"
	"rtcontour/pkg/identity"
	"rtcontour/pkg/rterr"
	"rtcontour/pkg/stats"
)

// TransformRequest is the body of POST /v1/transform
type TransformRequest struct {
	Documents   []json.RawMessage  `json:"documents"`
	Operations  []engine.Operation `json:"operations"`
	Anonymize   bool               `json:"anonymize,omitempty"`
	ReissueUIDs bool               `json:"reissueUIDs,omitempty"`
}

// TransformResponse is the body returned by POST /v1/transform
type TransformResponse struct {
	Documents []*models.Document `json:"documents"`
	Notices   []models.Notice    `json:"notices,omitempty"`
}

// StatsRequest is the body of POST /v1/stats
type StatsRequest struct {
	Documents  []json.RawMessage `json:"documents"`
	Structures []string          `json:"structures,omitempty"`
	Targets    []string          `json:"targets,omitempty"`

	// Proximity names two structures whose closest approach is reported
	Proximity []string `json:"proximity,omitempty"`
}

// StatsResponse is the body returned by POST /v1/stats
type StatsResponse struct {
	Structures []stats.Summary  `json:"structures,omitempty"`
	Apertures  []stats.Aperture `json:"apertures,omitempty"`
	Targets    []stats.Target   `json:"targets,omitempty"`
	Proximity  *stats.Gap       `json:"proximity,omitempty"`
	Notices    []models.Notice  `json:"notices,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	switch rterr.Kind(err) {
	case rterr.ErrInvalidArgument, rterr.ErrOutOfRange:
		return http.StatusBadRequest
	case rterr.ErrNotFound:
		return http.StatusNotFound
	case rterr.ErrStructural:
		return http.StatusUnprocessableEntity
	case rterr.ErrIdentityMismatch:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (hs *HTTPServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hs.logger.Error("writing response", "status", status, "err", err)
	}
}

func (hs *HTTPServer) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	if kind := rterr.Kind(err); kind != nil {
		resp.Kind = kind.Error()
	}
	if status >= http.StatusInternalServerError {
		hs.logger.Error("request failed", "err", err)
	}
	hs.writeJSON(w, status, resp)
}

func (hs *HTTPServer) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, hs.maxBody)
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return rterr.InvalidArgument("request", "malformed body: %v", err)
	}
	return nil
}

// record decodes and merges the request documents.
func record(raw []json.RawMessage) (*models.PatientRecord, []models.Notice, error) {
	docs := make([]*models.Document, 0, len(raw))
	for i, data := range raw {
		doc, err := codec.Decode(data, codec.JSON)
		if err != nil {
			return nil, nil, rterr.WithOp(err, "request", fmt.Sprintf("document %d", i))
		}
		docs = append(docs, doc)
	}
	return identity.Merge(docs...)
}

func (hs *HTTPServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	hs.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (hs *HTTPServer) transformHandler(w http.ResponseWriter, r *http.Request) {
	var req TransformRequest
	if err := hs.decode(w, r, &req); err != nil {
		hs.writeError(w, err)
		return
	}
	rec, notices, err := record(req.Documents)
	if err != nil {
		hs.writeError(w, err)
		return
	}

	out, err := hs.engine.Apply(rec, req.Operations...)
	if err != nil {
		hs.writeError(w, err)
		return
	}
	if req.Anonymize {
		var more []models.Notice
		if out, more, err = identity.Anonymize(out, hs.anonymize); err != nil {
			hs.writeError(w, err)
			return
		}
		notices = append(notices, more...)
	}
	if req.ReissueUIDs {
		if out, err = identity.Reissue(out); err != nil {
			hs.writeError(w, err)
			return
		}
	}

	hs.logger.Debug("transform", "patient", out.Patient.ID, "operations", len(req.Operations))
	hs.writeJSON(w, http.StatusOK, TransformResponse{Documents: identity.Split(out), Notices: notices})
}

func (hs *HTTPServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	var req StatsRequest
	if err := hs.decode(w, r, &req); err != nil {
		hs.writeError(w, err)
		return
	}
	if len(req.Proximity) > 0 && len(req.Proximity) != 2 {
		hs.writeError(w, rterr.InvalidArgument("proximity", "need exactly two structure names"))
		return
	}
	rec, notices, err := record(req.Documents)
	if err != nil {
		hs.writeError(w, err)
		return
	}

	resp := StatsResponse{Notices: notices}
	if rec.Structures != nil {
		if resp.Structures, err = stats.Summarize(rec, req.Structures...); err != nil {
			hs.writeError(w, err)
			return
		}
	}
	if rec.Plan != nil {
		if resp.Apertures, err = stats.ApertureAreas(rec.Plan); err != nil {
			hs.writeError(w, err)
			return
		}
	}
	if rec.Plan != nil && rec.Structures != nil {
		targets, more, err := stats.Targets(rec, req.Targets)
		if err != nil {
			hs.writeError(w, err)
			return
		}
		resp.Targets = targets
		resp.Notices = append(resp.Notices, more...)
	}
	if len(req.Proximity) > 0 {
		gap, err := stats.Proximity(rec, req.Proximity[0], req.Proximity[1])
		if err != nil {
			hs.writeError(w, err)
			return
		}
		resp.Proximity = &gap
	}
	hs.writeJSON(w, http.StatusOK, resp)
}
