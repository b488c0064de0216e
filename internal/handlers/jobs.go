package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"labelcast/internal/service"

	"github.com/gin-gonic/gin"
)

const maxJobListLimit = 500

// @Summary      List archived jobs
// @Description  Newest first. Bitmaps are not included.
// @Tags         jobs
// @Produce      json
// @Param        limit  query  int  false  "Maximum number of jobs (1..500)"  example(50)
// @Success      200    {object}  map[string]interface{}  "count, jobs"
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Router       /api/v1/jobs [get]
// @Security     BearerAuth
func (h *Handler) listJobs(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > maxJobListLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'limit'; use 1..500"})
			return
		}
		limit = n
	}
	jobs, err := h.services.Jobs.List(c.Request.Context(), limit)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load jobs", "jobs_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(jobs),
		"jobs":  jobs,
	})
}

// @Summary      Reprint an archived job
// @Tags         jobs
// @Produce      json
// @Param        id   path      string  true  "Job id"
// @Success      202  {object}  map[string]string  "job_id of the new job"
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/jobs/{id}/reprint [post]
// @Security     BearerAuth
func (h *Handler) reprintJob(c *gin.Context) {
	id := c.Param("id")
	newID, err := h.services.Jobs.Reprint(c.Request.Context(), id)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"job_id": newID})
	case errors.Is(err, service.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
	case errors.Is(err, service.ErrQueueClosed), errors.Is(err, service.ErrQueueFull):
		h.logAndJSONError(c, http.StatusServiceUnavailable, err.Error(), "job_reprint_rejected", err, "job_id", id)
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to reprint job", "job_reprint_failed", err, "job_id", id)
	}
}
