package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bryanwahyu/endoscan/internal/application"
	appadmin "github.com/bryanwahyu/endoscan/internal/application/admin"
	appanalyses "github.com/bryanwahyu/endoscan/internal/application/analyses"
	appfeedback "github.com/bryanwahyu/endoscan/internal/application/feedback"
	appreports "github.com/bryanwahyu/endoscan/internal/application/reports"
	"github.com/bryanwahyu/endoscan/internal/domain/analyses"
	"github.com/bryanwahyu/endoscan/internal/domain/auth"
	"github.com/bryanwahyu/endoscan/internal/domain/feedback"
	"github.com/bryanwahyu/endoscan/internal/infra/db/memory"
	authinfra "github.com/bryanwahyu/endoscan/internal/infra/auth"
	"github.com/bryanwahyu/endoscan/internal/infra/storage"
)

type testEnv struct {
	handler  http.Handler
	analyses *appanalyses.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dir := t.TempDir()
	blobs, err := storage.NewLocal(dir, "http://localhost/files")
	require.NoError(t, err)

	analysisRepo := memory.NewAnalysisRepository()
	profileRepo := memory.NewProfileRepository()

	analysesSvc := &appanalyses.Service{
		Repo:   analysisRepo,
		Blobs:  blobs,
		Rand:   application.NewLockedRand(7),
		Logger: logger,
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = analysesSvc.Shutdown(ctx)
	})

	authn := &authinfra.Service{
		Profiles: profileRepo,
		JWT:      authinfra.NewJWTService("router-test-secret", time.Hour),
		Logger:   logger,
		Cost:     bcrypt.MinCost,
	}

	h := NewRouter(Services{
		Analyses: analysesSvc,
		Reports:  &appreports.Service{Analyses: analysisRepo, Logger: logger},
		Feedback: &appfeedback.Service{Repo: memory.NewFeedbackRepository()},
		Admin: &appadmin.Service{
			Analyses: analysisRepo,
			Profiles: profileRepo,
			Metrics:  memory.NewMetricsRepository(),
		},
		Auth: authn,
	}, Options{Logger: logger, FilesDir: dir})

	return &testEnv{handler: h, analyses: analysesSvc}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) signUp(t *testing.T, email string) string {
	t.Helper()
	body := `{"email":"` + email + `","password":"secret123","full_name":"Dr. Test"}`
	rec := e.do(t, http.MethodPost, "/auth/sign-up", "", strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sess auth.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	require.NotEmpty(t, sess.Token)
	return sess.Token
}

func uploadBody(t *testing.T, fileName, contentType string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("fake endoscopy bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) upload(t *testing.T, token string) *analyses.Analysis {
	t.Helper()
	body, ct := uploadBody(t, "scan.mp4", "video/mp4", map[string]string{"patient_id": "P-001"})
	rec := e.do(t, http.MethodPost, "/v1/analyses", token, body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var a analyses.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	return &a
}

func (e *testEnv) waitSettled(t *testing.T, id analyses.AnalysisID) {
	t.Helper()
	task, ok := e.analyses.Task(id)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, task.Wait(ctx))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr), rec.Body.String())
	return apiErr
}

func TestHealthAndMetrics(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/health/live", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = e.do(t, http.MethodGet, "/metrics", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "requests_total")
}

func TestV1_RequiresSession(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/v1/dashboard", "", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "UNAUTHENTICATED", body["code"])
	assert.Equal(t, "/auth", body["redirect"])

	rec = e.do(t, http.MethodGet, "/v1/dashboard", "not-a-token", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_SignInMeSignOut(t *testing.T) {
	e := newTestEnv(t)
	e.signUp(t, "doc@clinic.org")

	rec := e.do(t, http.MethodPost, "/auth/sign-in", "",
		strings.NewReader(`{"email":"doc@clinic.org","password":"wrong-pass"}`), "application/json")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, rec).Code)

	rec = e.do(t, http.MethodPost, "/auth/sign-in", "",
		strings.NewReader(`{"email":"doc@clinic.org","password":"secret123"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	var sess auth.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	rec = e.do(t, http.MethodGet, "/auth/me", sess.Token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var me auth.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "doc@clinic.org", me.Email)

	rec = e.do(t, http.MethodPost, "/auth/sign-out", sess.Token, nil, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, http.MethodGet, "/auth/me", sess.Token, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_DuplicateEmailConflicts(t *testing.T) {
	e := newTestEnv(t)
	e.signUp(t, "doc@clinic.org")

	rec := e.do(t, http.MethodPost, "/auth/sign-up", "",
		strings.NewReader(`{"email":"doc@clinic.org","password":"secret123"}`), "application/json")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpload_ViewProcessesAndReports(t *testing.T) {
	e := newTestEnv(t)
	token := e.signUp(t, "doc@clinic.org")

	a := e.upload(t, token)
	assert.Equal(t, analyses.StatusPending, a.Status)
	require.NotNil(t, a.PatientID)
	assert.Equal(t, "P-001", *a.PatientID)
	assert.True(t, strings.HasPrefix(a.FileURL, "http://localhost/files/"))
	assert.True(t, strings.HasSuffix(a.FileURL, ".mp4"))

	// the report does not exist before processing
	rec := e.do(t, http.MethodGet, "/v1/reports/"+string(a.ID), token, nil, "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "NOT_COMPLETED", decodeError(t, rec).Code)

	// viewing starts processing
	rec = e.do(t, http.MethodGet, "/v1/analyses/"+string(a.ID), token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	e.waitSettled(t, a.ID)

	rec = e.do(t, http.MethodGet, "/v1/analyses/"+string(a.ID), token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got analyses.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, analyses.StatusCompleted, got.Status)
	require.NotNil(t, got.Severity)
	require.NotNil(t, got.Confidence)
	assert.GreaterOrEqual(t, *got.Confidence, 95.0)
	assert.Less(t, *got.Confidence, 99.7)

	rec = e.do(t, http.MethodGet, "/v1/reports/"+string(a.ID), token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rep map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, strings.ToUpper(string(a.ID)[:8]), rep["report_id"])
	assert.NotEmpty(t, rep["recommendation"])

	rec = e.do(t, http.MethodGet, "/v1/reports/latest?format=text", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "CLINICAL REPORT")

	rec = e.do(t, http.MethodGet, "/v1/dashboard", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var dash appanalyses.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.Len(t, dash.Recent, 1)
	assert.Equal(t, 1, dash.Stats.Total)
	assert.Equal(t, 1, dash.Stats.Completed)
	assert.Equal(t, 99.7, dash.Stats.Accuracy)
}

func TestUpload_Rejections(t *testing.T) {
	e := newTestEnv(t)
	token := e.signUp(t, "doc@clinic.org")

	body, ct := uploadBody(t, "notes.pdf", "application/pdf", nil)
	rec := e.do(t, http.MethodPost, "/v1/analyses", token, body, ct)
	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Equal(t, "UNSUPPORTED_FILE_TYPE", decodeError(t, rec).Code)

	body, ct = uploadBody(t, "scan.png", "image/png", map[string]string{"patient_id": "bad id!"})
	rec = e.do(t, http.MethodPost, "/v1/analyses", token, body, ct)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)

	var empty bytes.Buffer
	mw := multipart.NewWriter(&empty)
	require.NoError(t, mw.WriteField("notes", "no file"))
	require.NoError(t, mw.Close())
	rec = e.do(t, http.MethodPost, "/v1/analyses", token, &empty, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyses_OwnershipAndFilters(t *testing.T) {
	e := newTestEnv(t)
	owner := e.signUp(t, "owner@clinic.org")
	other := e.signUp(t, "other@clinic.org")
	a := e.upload(t, owner)

	rec := e.do(t, http.MethodGet, "/v1/analyses/"+string(a.ID), other, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = e.do(t, http.MethodGet, "/v1/reports/"+string(a.ID), other, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodGet, "/v1/analyses/not-a-uuid", owner, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/v1/analyses?severity=critical", owner, nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)

	rec = e.do(t, http.MethodGet, "/v1/analyses?q=SCAN", owner, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []analyses.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = e.do(t, http.MethodGet, "/v1/analyses?q=nothing-matches", owner, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list)

	rec = e.do(t, http.MethodGet, "/v1/analyses", other, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list)

	rec = e.do(t, http.MethodGet, "/v1/reports/latest", other, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelProcessing_NotRunningConflicts(t *testing.T) {
	e := newTestEnv(t)
	token := e.signUp(t, "doc@clinic.org")
	a := e.upload(t, token)

	rec := e.do(t, http.MethodDelete, "/v1/analyses/"+string(a.ID)+"/processing", token, nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProgressWebsocket_StreamsUntilCompleted(t *testing.T) {
	e := newTestEnv(t)
	token := e.signUp(t, "doc@clinic.org")
	a := e.upload(t, token)

	srv := httptest.NewServer(e.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") +
		"/v1/analyses/" + string(a.ID) + "/progress/ws?access_token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var events []appanalyses.Progress
	for {
		var p appanalyses.Progress
		if err := conn.ReadJSON(&p); err != nil {
			break
		}
		events = append(events, p)
	}

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, analyses.StatusCompleted, last.Status)
	assert.Equal(t, 100, last.Percent)
	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Percent, events[i-1].Percent)
	}

	// a settled analysis answers with one final event
	conn2, resp2, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp2.Body.Close()
	defer conn2.Close()
	var p appanalyses.Progress
	require.NoError(t, conn2.ReadJSON(&p))
	assert.Equal(t, analyses.StatusCompleted, p.Status)
	assert.Equal(t, a.ID, p.AnalysisID)
}

func TestFeedback_AnonymousSubmitAndReview(t *testing.T) {
	e := newTestEnv(t)
	token := e.signUp(t, "admin@clinic.org")

	body := `{"full_name":"Ana","email":"ana@example.com","subject":"Upload","message":"Upload stalls at 90%"}`
	rec := e.do(t, http.MethodPost, "/v1/feedback", "", strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var f feedback.Feedback
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &f))
	assert.Nil(t, f.UserID)
	assert.Equal(t, feedback.StatusPending, f.Status)

	rec = e.do(t, http.MethodPost, "/v1/feedback", token, strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code)
	var linked feedback.Feedback
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &linked))
	assert.NotNil(t, linked.UserID)

	rec = e.do(t, http.MethodPost, "/v1/feedback", "", strings.NewReader(`{"full_name":"Ana"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/v1/feedback", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodPatch, "/v1/feedback/"+f.ID, token,
		strings.NewReader(`{"status":"reviewed","admin_notes":"looking into it"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	var reviewed feedback.Feedback
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reviewed))
	assert.Equal(t, feedback.StatusReviewed, reviewed.Status)
	require.NotNil(t, reviewed.AdminNotes)

	rec = e.do(t, http.MethodPatch, "/v1/feedback/"+f.ID, token,
		strings.NewReader(`{"status":"pending"}`), "application/json")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(t, http.MethodGet, "/v1/feedback?status=reviewed", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []feedback.Feedback
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestAdminMetrics(t *testing.T) {
	e := newTestEnv(t)
	token := e.signUp(t, "admin@clinic.org")
	e.upload(t, token)

	rec := e.do(t, http.MethodGet, "/v1/admin/metrics", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ov map[string]float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ov))
	assert.Equal(t, 1.0, ov["total_analyses"])
	assert.Equal(t, 1.0, ov["active_users"])
	assert.Equal(t, 99.7, ov["avg_confidence"])

	rec = e.do(t, http.MethodPost, "/v1/admin/metrics/snapshot", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/v1/admin/metrics/history", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history, 1)
}

func TestSimulation(t *testing.T) {
	e := newTestEnv(t)
	token := e.signUp(t, "doc@clinic.org")

	rec := e.do(t, http.MethodGet, "/v1/simulation?progress=50", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		TotalFrames int `json:"total_frames"`
		Visible     []struct {
			Frame int `json:"frame"`
		} `json:"visible_detections"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 108000, view.TotalFrames)
	assert.Len(t, view.Visible, 2)

	rec = e.do(t, http.MethodGet, "/v1/simulation?progress=150", token, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOriginAllowed(t *testing.T) {
	allowed := []string{"https://app.example.com"}
	assert.True(t, originAllowed("", "api.example.com", allowed))
	assert.True(t, originAllowed("https://api.example.com", "api.example.com", allowed))
	assert.True(t, originAllowed("https://app.example.com", "api.example.com", allowed))
	assert.False(t, originAllowed("https://evil.example.net", "api.example.com", allowed))
	assert.True(t, originAllowed("https://evil.example.net", "api.example.com", []string{"*"}))
}
