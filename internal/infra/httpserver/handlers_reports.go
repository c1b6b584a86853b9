package httpserver

import (
	"net/http"
	"strconv"

	"github.com/bryanwahyu/endoscan/internal/domain/reports"
	"github.com/bryanwahyu/endoscan/internal/domain/simulation"
)

// GET /v1/reports/{id}?format=text
func (r *Router) handleReport(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	rep, err := r.reports.ForAnalysis(req.Context(), currentUser(req).ID, id)
	if err != nil {
		return err
	}
	return writeReport(w, req, rep)
}

// GET /v1/reports/latest?format=text
func (r *Router) handleLatestReport(w http.ResponseWriter, req *http.Request) error {
	rep, err := r.reports.Latest(req.Context(), currentUser(req).ID)
	if err != nil {
		return err
	}
	return writeReport(w, req, rep)
}

func writeReport(w http.ResponseWriter, req *http.Request, rep *reports.Report) error {
	if req.URL.Query().Get("format") != "text" {
		return writeJSON(w, http.StatusOK, rep)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="report-`+rep.ReportID+`.txt"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(rep.Text()))
	return nil
}

type simulationView struct {
	simulation.Timeline
	Progress float64                `json:"progress"`
	Visible  []simulation.Detection `json:"visible_detections"`
}

// GET /v1/simulation?progress=42.5
func (r *Router) handleSimulation(w http.ResponseWriter, req *http.Request) error {
	var progress float64
	if raw := req.URL.Query().Get("progress"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 100 {
			return NewValidationError("progress", err)
		}
		progress = v
	}
	t := simulation.Demo()
	visible := t.At(progress)
	if visible == nil {
		visible = []simulation.Detection{}
	}
	return writeJSON(w, http.StatusOK, simulationView{Timeline: t, Progress: progress, Visible: visible})
}
