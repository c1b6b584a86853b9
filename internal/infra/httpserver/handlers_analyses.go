package httpserver

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	appanalyses "github.com/bryanwahyu/endoscan/internal/application/analyses"
	"github.com/bryanwahyu/endoscan/internal/domain/analyses"
	"github.com/bryanwahyu/endoscan/internal/middleware"
)

const (
	// room for the multipart envelope and the text fields
	multipartOverhead = 1 << 20
	multipartMemory   = 32 << 20
)

// analysisView is an analysis plus the live progress of its running task.
type analysisView struct {
	*analyses.Analysis
	Progress *appanalyses.Progress `json:"progress,omitempty"`
}

// POST /v1/analyses
// Multipart form: file, patient_id, region_of_interest, device_model, notes
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	user := currentUser(req)
	req.Body = http.MaxBytesReader(w, req.Body, analyses.MaxUploadBytes+multipartOverhead)
	if err := req.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return NewBadRequestError("invalid multipart form", err)
	}
	defer req.MultipartForm.RemoveAll()

	file, header, err := req.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return appanalyses.ErrMissingFile
	}
	if err != nil {
		return NewBadRequestError("invalid file part", err)
	}
	defer file.Close()

	patientID := middleware.SanitizeField(req.FormValue("patient_id"))
	if err := middleware.ValidatePatientID(patientID); err != nil {
		return NewValidationError("patient_id", err)
	}

	a, err := r.analyses.Upload(req.Context(), appanalyses.UploadCommand{
		UserID:           user.ID,
		FileName:         header.Filename,
		ContentType:      header.Header.Get("Content-Type"),
		Size:             header.Size,
		Body:             file,
		PatientID:        patientID,
		RegionOfInterest: middleware.SanitizeField(req.FormValue("region_of_interest")),
		DeviceModel:      middleware.SanitizeField(req.FormValue("device_model")),
		Notes:            middleware.SanitizeField(req.FormValue("notes")),
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, a)
}

// GET /v1/analyses?q=&severity=
func (r *Router) handleResults(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	severity := q.Get("severity")
	if err := middleware.ValidateSeverityFilter(severity); err != nil {
		return NewValidationError("severity", err)
	}
	list, err := r.analyses.Results(req.Context(), currentUser(req).ID, analyses.Filter{
		Search:   middleware.SanitizeField(q.Get("q")),
		Severity: severity,
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/analyses/{id}
// Viewing a pending analysis starts its processing.
func (r *Router) handleGetAnalysis(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	a, task, err := r.analyses.Load(req.Context(), currentUser(req).ID, id)
	if err != nil {
		return err
	}
	view := analysisView{Analysis: a}
	if task != nil {
		p := task.Progress()
		view.Progress = &p
	}
	return writeJSON(w, http.StatusOK, view)
}

// POST /v1/analyses/{id}/processing
func (r *Router) handleStartProcessing(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	task, err := r.analyses.StartProcessing(req.Context(), currentUser(req).ID, id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusAccepted, task.Progress())
}

// DELETE /v1/analyses/{id}/processing
func (r *Router) handleCancelProcessing(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	found, err := r.analyses.Cancel(req.Context(), currentUser(req).ID, id)
	if err != nil {
		return err
	}
	if !found {
		return NewConflictError("analysis is not processing")
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /v1/dashboard
func (r *Router) handleDashboard(w http.ResponseWriter, req *http.Request) error {
	d, err := r.analyses.Dashboard(req.Context(), currentUser(req).ID)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, d)
}

func analysisID(req *http.Request) (analyses.AnalysisID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateAnalysisID(id); err != nil {
		return "", NewValidationError("id", err)
	}
	return analyses.AnalysisID(id), nil
}
