package handlers

import (
	"context"
	"net/http"
	"time"

	"labelcast/internal/canvas"
	"labelcast/internal/countdown"
	"labelcast/internal/models"
	"labelcast/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockMonitoring struct {
	state models.PrinterState
	err   error
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.PrinterState, error) {
	return m.state, m.err
}

type mockEventLog struct {
	resp     []models.PrinterEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
	last     service.LogFilter
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.PrinterEvent, error) {
	m.last = f
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

type mockJobs struct {
	list       []models.JobRecord
	listErr    error
	lastLimit  int
	reprintID  string
	reprintErr error
	lastID     string
}

func (m *mockJobs) List(ctx context.Context, limit int) ([]models.JobRecord, error) {
	m.lastLimit = limit
	return m.list, m.listErr
}
func (m *mockJobs) Reprint(ctx context.Context, id string) (string, error) {
	m.lastID = id
	return m.reprintID, m.reprintErr
}

type mockCanvas struct {
	drawErr    error
	flushErr   error
	preview    *canvas.Canvas
	previewErr error

	lastOperator string
	lastText     string
	flushes      int
}

func (m *mockCanvas) Draw(ctx context.Context, operator, text string) error {
	m.lastOperator = operator
	m.lastText = text
	return m.drawErr
}
func (m *mockCanvas) Flush(ctx context.Context) error {
	m.flushes++
	return m.flushErr
}
func (m *mockCanvas) Preview(ctx context.Context) (*canvas.Canvas, error) {
	return m.preview, m.previewErr
}

// mockCountdown hands out one channel the test publishes into.
type mockCountdown struct {
	ch chan countdown.Update
}

func newMockCountdown() *mockCountdown {
	return &mockCountdown{ch: make(chan countdown.Update, 4)}
}

func (m *mockCountdown) Subscribe() (<-chan countdown.Update, func()) {
	return m.ch, func() {}
}
func (m *mockCountdown) Last() countdown.Update { return countdown.Update{} }

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
