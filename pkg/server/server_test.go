package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtcontour/internal/models"
	"rtcontour/pkg/config"
	"rtcontour/pkg/engine"
)

const structDoc = `{
  "modality": "RTSTRUCT",
  "patient": {"id": "7", "name": "Doe^Jane", "birthDate": "19600101"},
  "header": {"sopInstanceUID": "1.2.3"},
  "structureSet": {"rois": [
    {"name": "PTV", "contours": [{"geometry": "CLOSED_PLANAR", "data": [0, 0, 0, 1, 1, 1]}]},
    {"name": "broken", "contours": [{"data": [1, 2]}]},
    {"name": "Coord 1", "contours": [{"geometry": "POINT", "data": [0, 0, 0]}]}
  ]}
}`

const planDoc = `{
  "modality": "RTPLAN",
  "patient": {"id": "7", "name": "Doe^J"},
  "plan": {
    "beams": [{"number": 1, "leafBoundaries": [0, 5], "controlPoints": [
      {"index": 0, "gantryAngle": 0, "isocenter": {"x": 0, "y": 0, "z": 0}, "leafPositions": [-1, 1]}
    ]}],
    "doseReferences": [{"description": "PTV", "prescriptionDose": 20}]
  }
}`

func newTestServer(t *testing.T) *HTTPServer {
	t.Helper()
	return NewHTTPServer(config.DefaultConfig(), engine.New(), nil)
}

func post(t *testing.T, hs *HTTPServer, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	hs.Handler().ServeHTTP(rr, req)
	return rr
}

func transformBody(docs []string, ops string) string {
	return `{"documents": [` + strings.Join(docs, ",") + `], "operations": ` + ops + `}`
}

func TestHealth(t *testing.T) {
	hs := newTestServer(t)
	rr := httptest.NewRecorder()
	hs.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}

func TestTransform(t *testing.T) {
	hs := newTestServer(t)
	body := transformBody([]string{structDoc, planDoc},
		`[{"op": "translate", "structure": "PTV", "amount": 5, "axis": "x"}]`)
	rr := post(t, hs, "/v1/transform", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp TransformResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Documents, 2)
	assert.Equal(t, models.RTStruct, resp.Documents[0].Modality)
	assert.Equal(t, models.RTPlan, resp.Documents[1].Modality)

	ptv := resp.Documents[0].StructureSet.ByName("PTV")
	require.NotNil(t, ptv)
	assert.Equal(t, []float64{5, 0, 0, 6, 1, 1}, ptv.Slices[0].Data)
	assert.Equal(t, []float64{0, 0, 0}, resp.Documents[0].StructureSet.ByName("Coord 1").Slices[0].Data)

	// the plan's patient name differs from the structure set's
	require.Len(t, resp.Notices, 2)
	assert.Equal(t, models.IdentityAdvisory, resp.Notices[0].Kind)
}

func TestTransformAnonymizeAndReissue(t *testing.T) {
	hs := newTestServer(t)
	body := `{"documents": [` + structDoc + `], "operations": [], "anonymize": true, "reissueUIDs": true}`
	rr := post(t, hs, "/v1/transform", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp TransformResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Documents, 1)
	doc := resp.Documents[0]
	assert.Equal(t, "PatientName", doc.Patient.Name)
	assert.Equal(t, "7", doc.Patient.ID)
	assert.True(t, strings.HasPrefix(doc.Header.SOPInstanceUID, "2.25."))
}

func TestTransformErrors(t *testing.T) {
	mismatch := strings.Replace(planDoc, `"id": "7"`, `"id": "8"`, 1)
	tests := []struct {
		name   string
		body   string
		status int
		kind   string
	}{
		{"malformed", `{"documents": [`, http.StatusBadRequest, "invalid argument"},
		{"invalid document", transformBody([]string{`{"modality": "RTSTRUCT"}`}, `[]`), http.StatusBadRequest, "invalid argument"},
		{"unknown structure", transformBody([]string{structDoc}, `[{"op": "margin", "structure": "GTV", "amount": 1}]`), http.StatusNotFound, "not found"},
		{"out of range", transformBody([]string{structDoc}, `[{"op": "rotate", "structure": "PTV", "amount": 400, "axis": "yaw"}]`), http.StatusBadRequest, "out of range"},
		{"bad axis", transformBody([]string{structDoc}, `[{"op": "rotate", "structure": "PTV", "amount": 4, "axis": "z"}]`), http.StatusBadRequest, "invalid argument"},
		{"string amount", transformBody([]string{structDoc}, `[{"op": "translate", "structure": "PTV", "amount": "4", "axis": "z"}]`), http.StatusBadRequest, "invalid argument"},
		{"broken contour", transformBody([]string{structDoc}, `[{"op": "translate", "structure": "broken", "amount": 1, "axis": "z"}]`), http.StatusUnprocessableEntity, "structural error"},
		{"identity mismatch", transformBody([]string{structDoc, mismatch}, `[]`), http.StatusConflict, "identity mismatch"},
	}
	hs := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := post(t, hs, "/v1/transform", tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			var resp errorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.kind, resp.Kind)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestBodyLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.MaxBodyBytes = 16
	hs := NewHTTPServer(cfg, engine.New(), nil)
	rr := post(t, hs, "/v1/transform", transformBody([]string{structDoc}, `[]`))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestStats(t *testing.T) {
	hs := newTestServer(t)
	body := `{"documents": [` + structDoc + `,` + planDoc + `], "structures": ["PTV"], "proximity": ["PTV", "Coord 1"]}`
	rr := post(t, hs, "/v1/stats", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp StatsResponse
	require.NoError(t, json.NewDecoder(bytes.NewReader(rr.Body.Bytes())).Decode(&resp))
	require.Len(t, resp.Structures, 1)
	assert.Equal(t, "PTV", resp.Structures[0].Name)
	require.Len(t, resp.Apertures, 1)
	assert.InDelta(t, 10, resp.Apertures[0].Area, 1e-12)
	require.Len(t, resp.Targets, 1)
	require.NotNil(t, resp.Targets[0].Structure)
	require.NotNil(t, resp.Proximity)
	assert.InDelta(t, 0, resp.Proximity.Distance, 1e-12)
	// two identity notices from merging, then the target advisory
	require.Len(t, resp.Notices, 3)
	assert.Equal(t, models.UnverifiedTargets, resp.Notices[2].Kind)

	// the pair is checked before any structure is summarized
	rr = post(t, hs, "/v1/stats", `{"documents": [`+structDoc+`], "proximity": ["PTV"]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
	var errResp errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &errResp))
	assert.Equal(t, "invalid argument", errResp.Kind)
	assert.Contains(t, errResp.Error, "two structure names")
}

type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestWriteJSONLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	hs := NewHTTPServer(config.DefaultConfig(), engine.New(), log.New(&buf))
	hs.writeJSON(brokenWriter{httptest.NewRecorder()}, http.StatusOK, map[string]string{"status": "ok"})
	assert.Contains(t, buf.String(), "writing response")
	assert.Contains(t, buf.String(), "connection reset")
}

func TestMethodNotAllowed(t *testing.T) {
	hs := newTestServer(t)
	rr := httptest.NewRecorder()
	hs.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/transform", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
