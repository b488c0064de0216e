package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"labelcast/internal/archive"
	"labelcast/internal/service"

	"github.com/gin-gonic/gin"
)

type drawRequest struct {
	Text string `json:"text" binding:"required"`
}

// DrawRequest is an exported model for Swagger docs of the draw payload.
type DrawRequest struct {
	// Same syntax chat uses: "<text or icon> <x>,<y>[,<size>]", or free text when the extractor is on.
	Text string `json:"text" example:"logo 10,10,2"`
}

// operatorName labels injected messages with the authenticated operator.
func operatorName(c *gin.Context) string {
	if id, ok := c.Get(ctxOperatorID); ok {
		if n, ok := id.(int); ok {
			return "operator#" + strconv.Itoa(n)
		}
	}
	return "operator"
}

// @Summary      Draw on the canvas
// @Description  Goes through the same moderation and placement path as chat.
// @Tags         canvas
// @Accept       json
// @Produce      json
// @Param        body  body      DrawRequest  true  "Draw payload"
// @Success      202   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/canvas/draw [post]
// @Security     BearerAuth
func (h *Handler) drawOnCanvas(c *gin.Context) {
	var req drawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if err := h.services.Canvas.Draw(c.Request.Context(), operatorName(c), req.Text); err != nil {
		h.logAndJSONError(c, http.StatusServiceUnavailable, "canvas unavailable", "canvas_draw_failed", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// @Summary      Flush the canvas to the printer now
// @Tags         canvas
// @Produce      json
// @Success      202  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/canvas/flush [post]
// @Security     BearerAuth
func (h *Handler) flushCanvas(c *gin.Context) {
	if err := h.services.Canvas.Flush(c.Request.Context()); err != nil {
		h.logAndJSONError(c, http.StatusServiceUnavailable, err.Error(), "canvas_flush_failed", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "flushing"})
}

// @Summary      Preview the canvas
// @Tags         canvas
// @Produce      png
// @Success      200
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/canvas/preview.png [get]
// @Security     BearerAuth
func (h *Handler) previewCanvas(c *gin.Context) {
	cv, err := h.services.Canvas.Preview(c.Request.Context())
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, service.ErrPipelineStopped) || errors.Is(err, service.ErrPreviewTimeout) {
			code = http.StatusServiceUnavailable
		}
		h.logAndJSONError(c, code, "preview unavailable", "canvas_preview_failed", err)
		return
	}
	var buf bytes.Buffer
	if err := archive.EncodePNG(&buf, cv); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "preview unavailable", "canvas_preview_encode_failed", err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
