package extraction

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/medscan/medscan-api/internal/model"
	"github.com/medscan/medscan-api/internal/service/extraction"
	apperrors "github.com/medscan/medscan-api/pkg/errors"
)

const (
	HeaderSource         = "X-Extraction-Source"
	HeaderFallbackReason = "X-Fallback-Reason"
)

type ExtractRequest struct {
	Text string `json:"text" binding:"required"`
}

// ExtractResponse is the structured report plus the text it came from.
type ExtractResponse struct {
	OriginalText string `json:"texto_original"`
	CleanText    string `json:"texto_limpio"`
	model.StructuredReport
}

type Handler struct {
	service extraction.Structurer
}

func NewHandler(service extraction.Structurer) *Handler {
	return &Handler{
		service: service,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/extract", h.Extract)
	r.POST("/extract-text", h.ExtractText)
}

// Extract structures the "text" field of a JSON body.
func (h *Handler) Extract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			_ = c.Error(err)
			return
		}
		_ = c.Error(apperrors.BadRequest("request body must be JSON with a non-empty \"text\" field", err))
		return
	}

	h.respond(c, req.Text)
}

// ExtractText structures a plain-text body.
func (h *Handler) ExtractText(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !utf8.Valid(body) {
		_ = c.Error(apperrors.BadRequest("request body is not valid UTF-8 text", nil))
		return
	}

	h.respond(c, string(body))
}

func (h *Handler) respond(c *gin.Context, text string) {
	if strings.TrimSpace(text) == "" {
		_ = c.Error(apperrors.BadRequest("text is empty", nil))
		return
	}

	out := h.service.StructureWithOutcome(c.Request.Context(), text)

	report := out.Report
	if report.Title == "" {
		report.Title = model.DefaultTitle
	}

	c.Header(HeaderSource, string(out.Source))
	if reason := out.FallbackReason(); reason != "" {
		c.Header(HeaderFallbackReason, reason)
	}
	c.JSON(http.StatusOK, ExtractResponse{
		OriginalText:     text,
		CleanText:        strings.TrimSpace(text),
		StructuredReport: report,
	})
}
