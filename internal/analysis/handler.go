package analysis

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the analysis service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/links/:id/analyze", h.startAnalysis)
	rg.GET("/analyses/:id", h.getSession)
}

type startAnalysisRequest struct {
	ControlID      string `json:"controlId"`
	Persona        string `json:"persona"`
	IncludeHistory bool   `json:"includeHistory"`
	Comments       string `json:"comments"`
}

// startAnalysis runs an assessment and re-streams its events to the caller as
// server-sent events while the session accumulates in the background.
func (h *Handler) startAnalysis(c *gin.Context) {
	linkID := c.Param("id")
	if linkID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "link id is required", nil)
		return
	}

	var body startAnalysisRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	w := c.Writer
	flusher, _ := w.(http.Flusher)

	// The stream headers commit the response to SSE, so they are written only
	// once an event actually arrives. Pre-stream failures still get the plain
	// JSON error envelope.
	headersSent := false
	sendHeaders := func() {
		if headersSent {
			return
		}
		headersSent = true
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
	}

	sink := func(ev Event) {
		sendHeaders()
		writeSSE(w, ev)
		if flusher != nil {
			flusher.Flush()
		}
	}

	session, err := h.Svc.Start(c.Request.Context(), body.ControlID, linkID, Request{
		Persona:        Persona(body.Persona),
		IncludeHistory: body.IncludeHistory,
		Comments:       body.Comments,
	}, sink)
	if err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			respond.Error(c, http.StatusConflict, "analysis_in_flight", "an analysis is already running for this link", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	// Transport failures never start the stream; report them on the same wire
	// format so the caller has a single decode path.
	if session.Err != "" && session.Text == "" && session.Result == nil {
		sendHeaders()
		writeSSE(w, ErrorEvent{Message: session.Err})
	}
	if headersSent && flusher != nil {
		flusher.Flush()
	}
}

func (h *Handler) getSession(c *gin.Context) {
	sessionID := c.Param("id")
	session, ok := h.Svc.Sessions.Get(sessionID)
	if !ok {
		respond.Error(c, http.StatusNotFound, "not_found", "analysis session not found", nil)
		return
	}
	respond.OK(c, session)
}

func writeSSE(w http.ResponseWriter, ev Event) {
	var payload map[string]any
	switch e := ev.(type) {
	case TextDelta:
		payload = map[string]any{"text": e.Text}
	case ResultEvent:
		payload = e.Result.Payload()
	case ErrorEvent:
		payload = map[string]any{"error": e.Message}
	default:
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	w.Write([]byte(dataPrefix))
	w.Write(raw)
	w.Write([]byte("\n\n"))
}
