package handlers

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"labelcast/internal/canvas"
	"labelcast/internal/models"
	"labelcast/internal/service"
)

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPrinterHandlers_GetState(t *testing.T) {
	mon := &mockMonitoring{state: models.PrinterState{ID: 1, Session: "IDLE", JobsPrinted: 3}}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 7}, Monitoring: mon})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/printer/state", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/api/v1/printer/state", "")
	if w.Code != http.StatusOK {
		t.Fatalf("state status=%d, body=%s", w.Code, w.Body.String())
	}
	var st models.PrinterState
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if st.Session != "IDLE" || st.JobsPrinted != 3 {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestJobHandlers_ListAndReprint(t *testing.T) {
	jobs := &mockJobs{
		list:      []models.JobRecord{{ID: "j1", Status: models.JobPrinted}},
		reprintID: "j2",
	}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 7}, Jobs: jobs})

	w := do(t, r, http.MethodGet, "/api/v1/jobs/?limit=0", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for limit=0, got %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/api/v1/jobs/?limit=10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status=%d, body=%s", w.Code, w.Body.String())
	}
	if jobs.lastLimit != 10 {
		t.Fatalf("limit passed = %d, want 10", jobs.lastLimit)
	}

	w = do(t, r, http.MethodPost, "/api/v1/jobs/j1/reprint", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("reprint status=%d, body=%s", w.Code, w.Body.String())
	}
	if jobs.lastID != "j1" {
		t.Fatalf("reprint id = %q", jobs.lastID)
	}

	jobs.reprintErr = service.ErrJobNotFound
	w = do(t, r, http.MethodPost, "/api/v1/jobs/nope/reprint", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	jobs.reprintErr = service.ErrQueueClosed
	w = do(t, r, http.MethodPost, "/api/v1/jobs/j1/reprint", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 on closed queue, got %d", w.Code)
	}
}

func TestCanvasHandlers(t *testing.T) {
	cv := canvas.New(8, 4)
	cv.Set(1, 1, canvas.Dark)
	mc := &mockCanvas{preview: cv}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 7}, Canvas: mc})

	w := do(t, r, http.MethodPost, "/api/v1/canvas/draw", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing text, got %d", w.Code)
	}

	w = do(t, r, http.MethodPost, "/api/v1/canvas/draw", `{"text":"logo 10,10,2"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("draw status=%d, body=%s", w.Code, w.Body.String())
	}
	if mc.lastText != "logo 10,10,2" || mc.lastOperator != "operator#7" {
		t.Fatalf("draw got operator=%q text=%q", mc.lastOperator, mc.lastText)
	}

	mc.flushErr = service.ErrPipelineStopped
	w = do(t, r, http.MethodPost, "/api/v1/canvas/flush", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 on busy flush, got %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/api/v1/canvas/preview.png", "")
	if w.Code != http.StatusOK {
		t.Fatalf("preview status=%d, body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	img, err := png.Decode(w.Body)
	if err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 4 {
		t.Fatalf("preview size = %v", b)
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&service.Service{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health status=%d", w.Code)
	}
}
