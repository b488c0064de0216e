package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"labelcast/internal/models"
	"labelcast/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid   = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
	errRange       = "'from' must be <= 'to'"
	errTypeInvalid = "unknown event type"
	errLimit       = "'limit' must be a positive integer"
	errLoadLogs    = "failed to load logs"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

var queryLayouts = []string{time.RFC3339, layoutDateTime, layoutDate}

// filterError carries the message shown to the client.
type filterError struct{ msg string }

func (e filterError) Error() string { return e.msg }

// @Summary      List printer events
// @Description  Heartbeats, prints, recoveries and moderation rejects. Dates accept RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'; a date-only 'to' covers the whole day.
// @Tags         logs
// @Produce      json
// @Param        from  query   string  false  "Start of range"  example(2026-03-01)
// @Param        to    query   string  false  "End of range, inclusive"  example(2026-03-31)
// @Param        type    query   string  false  "Comma-separated event types: HEARTBEAT_OK, HEARTBEAT_FAILED, PRINTED, PRINT_FAILED, RECOVERED, FATAL, REJECTED"
// @Param        job_id  query   string  false  "Only events for this print job"
// @Param        limit   query   int     false  "Keep only the newest N matches"
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/logs [get]
// @Security     BearerAuth
func (h *Handler) getLogs(c *gin.Context) {
	filter, err := logFilterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := h.services.EventLog.List(c.Request.Context(), filter)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errLoadLogs, "logs_list_failed", err,
			"from", filter.From, "to", filter.To, "type", filter.Type, "job_id", filter.JobID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(events), "events": events})
}

func logFilterFromQuery(c *gin.Context) (service.LogFilter, error) {
	f := service.LogFilter{
		Type:  strings.ToUpper(strings.TrimSpace(c.Query("type"))),
		JobID: strings.TrimSpace(c.Query("job_id")),
	}
	if _, err := models.ParseEventTypes(f.Type); err != nil {
		return f, filterError{errTypeInvalid}
	}
	if qs := c.Query("limit"); qs != "" {
		n, err := strconv.Atoi(qs)
		if err != nil || n <= 0 {
			return f, filterError{errLimit}
		}
		f.Limit = n
	}

	if qs := c.Query("from"); qs != "" {
		t, err := parseQueryTime(qs)
		if err != nil {
			return f, filterError{errFromInvalid}
		}
		f.From = t
	}
	if qs := c.Query("to"); qs != "" {
		t, err := parseQueryTime(qs)
		if err != nil {
			return f, filterError{errToInvalid}
		}
		if !strings.ContainsAny(qs, "T ") {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = t
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return f, filterError{errRange}
	}
	return f, nil
}

// parseQueryTime accepts any of queryLayouts and returns UTC.
func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range queryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}
