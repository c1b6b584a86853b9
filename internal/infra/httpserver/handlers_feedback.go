package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appfeedback "github.com/bryanwahyu/endoscan/internal/application/feedback"
	"github.com/bryanwahyu/endoscan/internal/middleware"
)

// POST /v1/feedback
// The ticket is linked to the sender when a valid session comes along.
func (r *Router) handleSubmitFeedback(w http.ResponseWriter, req *http.Request) error {
	var cmd appfeedback.SubmitCommand
	if err := decodeJSON(w, req, &cmd); err != nil {
		return err
	}
	if err := middleware.ValidateURL(cmd.AttachmentURL); err != nil {
		return NewValidationError("attachment_url", err)
	}
	cmd.FullName = middleware.SanitizeField(cmd.FullName)
	cmd.Email = middleware.SanitizeField(cmd.Email)
	cmd.Organization = middleware.SanitizeField(cmd.Organization)
	cmd.Subject = middleware.SanitizeField(cmd.Subject)
	cmd.Message = middleware.SanitizeString(cmd.Message)

	if token := middleware.TokenFromRequest(req); token != "" {
		if u, err := r.authn.CurrentUser(req.Context(), token); err == nil {
			cmd.UserID = u.ID
		}
	}

	f, err := r.feedback.Submit(req.Context(), cmd)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, f)
}

// GET /v1/feedback?status=&limit=
func (r *Router) handleListFeedback(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	list, err := r.feedback.List(req.Context(), q.Get("status"), limit)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// PATCH /v1/feedback/{id}
// Body: {"status": "reviewed", "admin_notes": "..."}
func (r *Router) handleReviewFeedback(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Status     string  `json:"status"`
		AdminNotes *string `json:"admin_notes"`
	}
	if err := decodeJSON(w, req, &body); err != nil {
		return err
	}
	if body.AdminNotes != nil {
		notes := middleware.SanitizeString(*body.AdminNotes)
		body.AdminNotes = &notes
	}
	f, err := r.feedback.Review(req.Context(), chi.URLParam(req, "id"), body.Status, body.AdminNotes)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, f)
}

// GET /v1/admin/metrics
func (r *Router) handleAdminOverview(w http.ResponseWriter, req *http.Request) error {
	ov, err := r.admin.Overview(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, ov)
}

// GET /v1/admin/metrics/history?limit=
func (r *Router) handleAdminHistory(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.admin.History(req.Context(), limit)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /v1/admin/metrics/snapshot
func (r *Router) handleAdminSnapshot(w http.ResponseWriter, req *http.Request) error {
	m, err := r.admin.Snapshot(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, m)
}
