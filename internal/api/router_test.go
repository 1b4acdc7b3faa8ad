package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/tintharm-api/internal/config"
	"github.com/Conceptual-Machines/tintharm-api/internal/database"
	"github.com/Conceptual-Machines/tintharm-api/internal/middleware"
	"github.com/Conceptual-Machines/tintharm-api/internal/models"
	"github.com/Conceptual-Machines/tintharm-api/internal/presets"
)

const testSecret = "router-secret"

func setupRouter(t *testing.T, db *gorm.DB, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	catalog, err := presets.Load("")
	require.NoError(t, err)
	return SetupRouter(db, cfg, "test", catalog, nil)
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func do(r *gin.Engine, method, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" && !strings.HasPrefix(body, "<") {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func voiceNotes(resp models.HarmonizeResponse) map[string][]string {
	out := make(map[string][]string, len(resp.Voices))
	for _, v := range resp.Voices {
		out[v.Label] = v.Notes
	}
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	r := setupRouter(t, nil, &config.Config{AuthMode: config.AuthModeNone})

	w := do(r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"disabled"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = do(r, http.MethodGet, "/api/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"presets":6`)
}

func TestScaleEndpoint(t *testing.T) {
	r := setupRouter(t, nil, &config.Config{})

	w := do(r, http.MethodGet, "/api/v1/scales/C/major", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.ScaleResponse
	decode(t, w, &resp)
	assert.Equal(t, []string{"C", "D", "E", "F", "G", "A", "B"}, resp.Degrees)
	assert.Equal(t, []string{"C", "E", "G"}, resp.Triad)

	w = do(r, http.MethodGet, "/api/v1/scales/C/whole-tone", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported key/mode")
}

func TestHarmonizeEndpoint(t *testing.T) {
	r := setupRouter(t, nil, &config.Config{MaxMelodyLength: 8})

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		check  func(t *testing.T, w *httptest.ResponseRecorder)
	}{
		{
			name:   "json",
			path:   "/api/v1/harmonize",
			body:   `{"melody":["E4","D4",60],"key":"C","mode":"major","t_voices":[{"level":1,"direction":"below"}]}`,
			status: http.StatusOK,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp models.HarmonizeResponse
				decode(t, w, &resp)
				notes := voiceNotes(resp)
				assert.Equal(t, []string{"E4", "D4", "C4"}, notes["M"])
				assert.Equal(t, []string{"C4", "G3", "G3"}, notes["T-1"])
				assert.Equal(t, []float64{1, 1, 1}, resp.Rhythm)
				assert.Empty(t, resp.Warnings)
			},
		},
		{
			name:   "midi",
			path:   "/api/v1/harmonize?format=midi&tempo=90",
			body:   `{"melody":["E4","D4","C4"],"key":"C","t_voices":[{"level":-1}],"title":"Für Alina"}`,
			status: http.StatusOK,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Equal(t, "audio/midi", w.Header().Get("Content-Type"))
				assert.Contains(t, w.Header().Get("Content-Disposition"), "Fr-Alina.mid")
				assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("MThd")))
			},
		},
		{
			name:   "text",
			path:   "/api/v1/harmonize/text",
			body:   `{"notes":"A3:2 C4 E4 | A4:2 E4 C4 | A3:2","parallel_offsets":[-12]}`,
			status: http.StatusOK,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp models.HarmonizeResponse
				decode(t, w, &resp)
				assert.True(t, resp.KeyEstimated)
				assert.Equal(t, "A", resp.Key)
				assert.Equal(t, "minor", resp.Mode)
				assert.Equal(t, []string{"A2", "C3", "E3", "A3", "E3", "C3", "A2"}, voiceNotes(resp)["M-12"])
			},
		},
		{
			name:   "out of scale note becomes warning",
			path:   "/api/v1/harmonize",
			body:   `{"melody":["C#4"],"key":"C","t_voices":[{"level":1}]}`,
			status: http.StatusOK,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp models.HarmonizeResponse
				decode(t, w, &resp)
				assert.Equal(t, []string{""}, voiceNotes(resp)["T+1"])
				require.Len(t, resp.Warnings, 1)
				assert.Equal(t, "t-voice", resp.Warnings[0].Stage)
			},
		},
		{
			name:   "malformed structure falls back to identity",
			path:   "/api/v1/harmonize",
			body:   `{"melody":["C4","E4"],"key":"C","structure":"transposition:up:x:2"}`,
			status: http.StatusOK,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp models.HarmonizeResponse
				decode(t, w, &resp)
				assert.Equal(t, 2, resp.Length)
				assert.Equal(t, "transposition:up:x:2", resp.Structure)
				require.Len(t, resp.Warnings, 1)
				assert.Equal(t, "structure", resp.Warnings[0].Stage)
			},
		},
		{name: "bad pitch", path: "/api/v1/harmonize", body: `{"melody":["H4"],"key":"C"}`, status: http.StatusBadRequest},
		{name: "rhythm mismatch", path: "/api/v1/harmonize", body: `{"melody":["C4"],"rhythm":[1,2],"key":"C"}`, status: http.StatusBadRequest},
		{name: "zero duration", path: "/api/v1/harmonize", body: `{"melody":["C4"],"rhythm":[0],"key":"C"}`, status: http.StatusBadRequest},
		{name: "unknown preset", path: "/api/v1/harmonize", body: `{"melody":["C4"],"preset":"nope"}`, status: http.StatusBadRequest},
		{name: "too long", path: "/api/v1/harmonize", body: `{"melody":["C4","D4","E4"],"key":"C","structure":"combo:C4"}`, status: http.StatusRequestEntityTooLarge},
		{name: "save without database", path: "/api/v1/harmonize", body: `{"melody":["C4"],"key":"C","save":true}`, status: http.StatusBadRequest},
		{name: "bad tempo", path: "/api/v1/harmonize?tempo=-1", body: `{"melody":["C4"],"key":"C"}`, status: http.StatusBadRequest},
		{name: "bad text", path: "/api/v1/harmonize/text", body: `{"notes":"C4 Q9"}`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, tt.path, tt.body, nil)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.check != nil {
				tt.check(t, w)
			}
		})
	}
}

const spiegelXML = `<?xml version="1.0" encoding="UTF-8"?>
<score-partwise version="3.1">
  <part-list><score-part id="P1"><part-name>Violin</part-name></score-part></part-list>
  <part id="P1">
    <measure number="1">
      <attributes>
        <divisions>1</divisions>
        <key><fifths>-1</fifths><mode>minor</mode></key>
      </attributes>
      <note><pitch><step>D</step><octave>4</octave></pitch><duration>1</duration></note>
      <note><pitch><step>F</step><octave>4</octave></pitch><duration>2</duration></note>
      <note><rest/><duration>1</duration></note>
    </measure>
  </part>
</score-partwise>`

func TestHarmonizeMusicXMLEndpoint(t *testing.T) {
	r := setupRouter(t, nil, &config.Config{})

	w := do(r, http.MethodPost, "/api/v1/harmonize/musicxml?t=below:1&parallel=-12", spiegelXML, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.HarmonizeResponse
	decode(t, w, &resp)
	assert.Equal(t, "D", resp.Key)
	assert.Equal(t, "minor", resp.Mode)
	assert.False(t, resp.KeyEstimated)
	assert.Equal(t, []float64{1, 2, 1}, resp.Rhythm)
	notes := voiceNotes(resp)
	assert.Equal(t, []string{"D3", "F3", ""}, notes["M-12"])
	assert.Equal(t, []string{"A3", "D4", ""}, notes["T-1"])

	w = do(r, http.MethodPost, "/api/v1/harmonize/musicxml?t=sideways:1", spiegelXML, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/v1/harmonize/musicxml", "<score-partwise><part>", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHarmonizeNoteEndpoint(t *testing.T) {
	r := setupRouter(t, nil, &config.Config{})

	w := do(r, http.MethodGet, "/api/v1/harmonize/note?note=E4&key=C&parallel=-9&t=below:1", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Voices map[string]string `json:"voices"`
	}
	decode(t, w, &resp)
	assert.Equal(t, map[string]string{"M": "E4", "M-9": "G3", "T-1": "C4"}, resp.Voices)
}

func TestTransposeEndpoint(t *testing.T) {
	r := setupRouter(t, nil, &config.Config{})

	w := do(r, http.MethodPost, "/api/v1/transpose", `{"melody":["C4","D4",null],"degree_shift":2,"key":"C","mode":"major"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.TransposeResponse
	decode(t, w, &resp)
	assert.Equal(t, []string{"E4", "F4", ""}, resp.Melody)

	w = do(r, http.MethodPost, "/api/v1/transpose", `{"melody":["C4"],"degree_shift":1}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPresetsEndpoint(t *testing.T) {
	r := setupRouter(t, nil, &config.Config{})

	w := do(r, http.MethodGet, "/api/v1/presets", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Presets []presets.Preset `json:"presets"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Presets, 6)
	assert.Equal(t, "alternating", resp.Presets[0].Name)
}

func TestCompositionRoutesNeedDatabase(t *testing.T) {
	r := setupRouter(t, nil, &config.Config{})
	w := do(r, http.MethodGet, "/api/v1/compositions", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCompositionLifecycle(t *testing.T) {
	db := setupDB(t)
	r := setupRouter(t, db, &config.Config{AuthMode: config.AuthModeJWT, JWTSecret: testSecret, DatabaseURL: "test"})

	alice, err := middleware.IssueToken(testSecret, "alice", "", time.Hour)
	require.NoError(t, err)
	bob, err := middleware.IssueToken(testSecret, "bob", "", time.Hour)
	require.NoError(t, err)
	asAlice := map[string]string{"Authorization": "Bearer " + alice}
	asBob := map[string]string{"Authorization": "Bearer " + bob}

	w := do(r, http.MethodPost, "/api/v1/harmonize", `{"melody":["E4"]}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/v1/harmonize", `{"melody":["A4","C5","E5"],"preset":"tintinnabuli","key":"A","mode":"minor","save":true,"title":"Fratres"}`, asAlice)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var created models.HarmonizeResponse
	decode(t, w, &created)
	require.NotEmpty(t, created.CompositionID)
	id := created.CompositionID

	w = do(r, http.MethodGet, "/api/v1/compositions", "", asAlice)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Compositions []models.CompositionSummary `json:"compositions"`
		Total        int64                       `json:"total"`
	}
	decode(t, w, &list)
	assert.Equal(t, int64(1), list.Total)
	require.Len(t, list.Compositions, 1)
	assert.Equal(t, "Fratres", list.Compositions[0].Title)
	assert.Equal(t, 2, list.Compositions[0].Voices)

	w = do(r, http.MethodGet, "/api/v1/compositions", "", asBob)
	decode(t, w, &list)
	assert.Equal(t, int64(0), list.Total)

	w = do(r, http.MethodGet, "/api/v1/compositions/"+id, "", asBob)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/api/v1/compositions/"+id, "", asAlice)
	require.Equal(t, http.StatusOK, w.Code)
	var comp models.Composition
	decode(t, w, &comp)
	assert.Equal(t, "A", comp.Key)
	assert.Equal(t, "tintinnabuli", comp.Preset)

	w = do(r, http.MethodGet, "/api/v1/compositions/"+id+"/midi", "", asAlice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("MThd")))

	w = do(r, http.MethodGet, "/api/v1/compositions?limit=x", "", asAlice)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodDelete, "/api/v1/compositions/"+id, "", asBob)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodDelete, "/api/v1/compositions/"+id, "", asAlice)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodGet, "/api/v1/compositions/"+id, "", asAlice)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
