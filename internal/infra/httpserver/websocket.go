package httpserver

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	appanalyses "github.com/bryanwahyu/endoscan/internal/application/analyses"
	"github.com/bryanwahyu/endoscan/internal/domain/analyses"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

func newUpgrader(origins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(req *http.Request) bool {
			return originAllowed(req.Header.Get("Origin"), req.Host, origins)
		},
	}
}

// originAllowed accepts same-host requests, clients that send no Origin,
// and anything listed in the CORS origins.
func originAllowed(origin, host string, allowed []string) bool {
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, host) {
		return true
	}
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// GET /v1/analyses/{id}/progress/ws
// Streams progress events until the run finishes. Opening the stream on a
// pending analysis starts it; with ?cancel_on_close=true closing the stream
// early cancels the run.
func (r *Router) handleProgressWS(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	a, task, err := r.analyses.Load(req.Context(), currentUser(req).ID, id)
	if err != nil {
		return err
	}

	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// Upgrade has already replied to the client
		r.logger.WarnContext(req.Context(), "websocket upgrade failed", slog.Any("err", err))
		return nil
	}
	defer conn.Close()

	if task == nil {
		_ = r.sendProgress(conn, settledProgress(a))
		closeNormal(conn)
		return nil
	}

	updates, unsubscribe := task.Subscribe()
	defer unsubscribe()

	// the client sends nothing; reading only notices it going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case p, ok := <-updates:
			if !ok {
				closeNormal(conn)
				return nil
			}
			if err := r.sendProgress(conn, p); err != nil {
				return nil
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return nil
			}
		case <-gone:
			if req.URL.Query().Get("cancel_on_close") == "true" {
				task.Cancel()
				r.logger.InfoContext(req.Context(), "progress stream closed, processing cancelled",
					slog.String("analysis_id", string(id)))
			}
			return nil
		}
	}
}

func (r *Router) sendProgress(conn *websocket.Conn, p appanalyses.Progress) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(p)
}

// settledProgress describes an analysis that has no running task.
func settledProgress(a *analyses.Analysis) appanalyses.Progress {
	p := appanalyses.Progress{AnalysisID: a.ID, Status: a.Status}
	if a.Status == analyses.StatusCompleted {
		p.Percent = 100
	}
	return p
}

func closeNormal(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
}
