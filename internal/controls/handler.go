package controls

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/matches"
	"compliance-backend/internal/shared/server/respond"
	"compliance-backend/internal/shared/util"
)

// Handler wires HTTP handlers to the controls repository. Coverage figures are
// derived from the match store via the shared view cache.
type Handler struct {
	Repo    Repo
	Matches matches.Repo
	Views   *matches.ViewCache
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo, matchRepo matches.Repo, views *matches.ViewCache) *Handler {
	return &Handler{Repo: repo, Matches: matchRepo, Views: views}
}

// RegisterRoutes attaches control routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/controls", h.listControls)
	rg.GET("/controls/:id", h.getControl)
	rg.GET("/controls/:id/questions", h.listQuestions)
	rg.GET("/controls/:id/questions/export", h.exportQuestions)
}

func (h *Handler) listControls(c *gin.Context) {
	ctx := c.Request.Context()
	all, err := h.Repo.ListControls(ctx)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list controls", nil)
		return
	}

	items := make([]gin.H, 0, len(all))
	for _, control := range all {
		item := gin.H{
			"id":        control.ID,
			"code":      control.Code,
			"title":     control.Title,
			"framework": control.Framework,
		}
		if summary, err := h.coverageSummary(c, control.ID); err == nil {
			item["coverage"] = summary
		}
		items = append(items, item)
	}
	respond.OK(c, gin.H{"controls": items})
}

func (h *Handler) getControl(c *gin.Context) {
	ctx := c.Request.Context()
	controlID := c.Param("id")

	control, err := h.Repo.GetControl(ctx, controlID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "control not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch control", nil)
		}
		return
	}

	questions, err := h.Repo.ListQuestions(ctx, controlID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch questions", nil)
		return
	}

	resp := gin.H{
		"control":   control,
		"questions": questions,
	}
	if summary, err := h.coverageSummary(c, controlID); err == nil {
		resp["coverage"] = summary
	}
	respond.OK(c, resp)
}

func (h *Handler) listQuestions(c *gin.Context) {
	questions, err := h.Repo.ListQuestions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch questions", nil)
		return
	}
	respond.OK(c, gin.H{"questions": questions})
}

// exportQuestions renders the control's questionnaire as a CSV download.
func (h *Handler) exportQuestions(c *gin.Context) {
	ctx := c.Request.Context()
	controlID := c.Param("id")

	control, err := h.Repo.GetControl(ctx, controlID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "control not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch control", nil)
		}
		return
	}

	questions, err := h.Repo.ListQuestions(ctx, controlID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch questions", nil)
		return
	}

	base, err := util.SanitizeFileName(control.Code)
	if err != nil {
		base = "control"
	}
	fileName := base + "_questionnaire.csv"
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Status(http.StatusOK)

	writer := csv.NewWriter(c.Writer)
	_ = writer.Write([]string{"ordinal", "question", "response"})
	for _, q := range questions {
		_ = writer.Write([]string{strconv.Itoa(q.Ordinal), q.Text, q.Response})
	}
	writer.Flush()
}

func (h *Handler) coverageSummary(c *gin.Context, controlID string) (matches.Summary, error) {
	if h.Views != nil {
		if summary, ok := h.Views.Summary(controlID); ok {
			return summary, nil
		}
	}
	ctx := c.Request.Context()
	questionIDs, err := h.Repo.ListQuestionIDs(ctx, controlID)
	if err != nil {
		return matches.Summary{}, err
	}
	all, err := h.Matches.ListByControl(ctx, controlID)
	if err != nil {
		return matches.Summary{}, err
	}
	summary := matches.ComputeSummary(questionIDs, all)
	if h.Views != nil {
		h.Views.StoreSummary(controlID, summary)
	}
	return summary, nil
}
