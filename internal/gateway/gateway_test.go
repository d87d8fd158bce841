package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rahul/aiops/internal/agent"
	"github.com/rahul/aiops/internal/observability"
	"github.com/rahul/aiops/internal/tools"
)

type fakeRunner struct {
	mu     sync.Mutex
	tasks  []string
	ctxs   []context.Context
	result func(task string) agent.CombinedResult
}

func (f *fakeRunner) Run(ctx context.Context, task string) agent.CombinedResult {
	f.mu.Lock()
	f.tasks = append(f.tasks, task)
	f.ctxs = append(f.ctxs, ctx)
	f.mu.Unlock()
	return f.result(task)
}

func successResult(task string) agent.CombinedResult {
	return agent.CombinedResult{
		Task: task,
		Plan: &agent.Plan{
			Steps:       []string{"Get weather for Delhi", "Search for MERN repos"},
			ToolsNeeded: []tools.ToolID{tools.ToolWeather, tools.ToolGitHub},
		},
		Execution: agent.ExecutionReport{
			{Step: "Get weather for Delhi", Tool: tools.ToolWeather, Output: "Weather in Delhi: 31°C, Clear [Open-Meteo API]", Status: agent.StatusSuccess},
			{Step: "Search for MERN repos", Tool: tools.ToolGitHub, Output: "github: status 503", Status: agent.StatusFailed},
		},
		Verification: &agent.FinalOutput{
			Result:  "Delhi is clear at 31°C. Repository search failed.",
			Sources: []string{"Open-Meteo API"},
		},
	}
}

func setupTestServer(t *testing.T, runner Runner) *Server {
	t.Helper()
	return NewServer(runner, observability.NewMetrics(), zap.NewNop(), ServerConfig{
		Addr:           ":0",
		RequestTimeout: time.Minute,
	})
}

func TestHandleTask(t *testing.T) {
	runner := &fakeRunner{result: successResult}
	server := setupTestServer(t, runner)

	body := bytes.NewBufferString(`{"task":"Weather in Delhi and top MERN repos"}`)
	req := httptest.NewRequest(http.MethodPost, "/task", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Weather in Delhi and top MERN repos", resp["task"])
	assert.Contains(t, resp, "plan")
	assert.Contains(t, resp, "execution")
	assert.Contains(t, resp, "verification")
	assert.NotContains(t, resp, "error")

	require.Len(t, runner.tasks, 1)
	assert.NotEmpty(t, observability.TaskIDFrom(runner.ctxs[0]))
	_, hasDeadline := runner.ctxs[0].Deadline()
	assert.True(t, hasDeadline)
}

func TestHandleTask_PipelineError(t *testing.T) {
	runner := &fakeRunner{result: func(task string) agent.CombinedResult {
		return agent.CombinedResult{Task: task, Error: "planning failed: schema propose_plan: invalid json"}
	}}
	server := setupTestServer(t, runner)

	req := httptest.NewRequest(http.MethodPost, "/task", strings.NewReader(`{"task":"x"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"task":"x","error":"planning failed: schema propose_plan: invalid json"}`, rec.Body.String())
}

func TestHandleTask_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"task":`},
		{"missing task", `{}`},
		{"blank task", `{"task":"   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{result: successResult}
			server := setupTestServer(t, runner)

			req := httptest.NewRequest(http.MethodPost, "/task", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, runner.tasks)
		})
	}
}

func TestHandleHealth(t *testing.T) {
	server := setupTestServer(t, &fakeRunner{result: successResult})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestHandleInfo(t *testing.T) {
	server := setupTestServer(t, &fakeRunner{result: successResult})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp InfoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Message, "AI Ops Assistant")
	assert.Contains(t, resp.Endpoints, "POST /task")
	assert.Contains(t, resp.Endpoints, "GET /health")
	assert.Contains(t, resp.Endpoints, "GET /metrics")
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := observability.NewMetrics()
	metrics.ObserveTask("success")
	server := NewServer(&fakeRunner{result: successResult}, metrics, nil, ServerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `aiops_tasks_total{outcome="success"} 1`)
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	server := NewServer(&fakeRunner{result: successResult}, nil, nil, ServerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleTask_PanicRecovered(t *testing.T) {
	runner := &fakeRunner{result: func(string) agent.CombinedResult { panic("boom") }}
	server := setupTestServer(t, runner)

	req := httptest.NewRequest(http.MethodPost, "/task", strings.NewReader(`{"task":"x"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type fakeBot struct {
	mu      sync.Mutex
	updates chan tgbotapi.Update
	sent    []tgbotapi.MessageConfig
	stopped bool
}

func (b *fakeBot) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return b.updates
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		b.sent = append(b.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) StopReceivingUpdates() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
}

func TestTelegramGateway_RunsMessages(t *testing.T) {
	bot := &fakeBot{updates: make(chan tgbotapi.Update, 3)}
	runner := &fakeRunner{result: successResult}
	tg := &TelegramGateway{Bot: bot, Runner: runner, Logger: zap.NewNop(), RequestTimeout: time.Minute}

	bot.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 7,
		Chat:      &tgbotapi.Chat{ID: 42},
		From:      &tgbotapi.User{UserName: "ops"},
		Text:      "Weather in Delhi and top MERN repos",
	}}
	bot.updates <- tgbotapi.Update{}
	bot.updates <- tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 42}, Text: " "}}
	close(bot.updates)

	require.NoError(t, tg.Start(context.Background()))

	require.Equal(t, []string{"Weather in Delhi and top MERN repos"}, runner.tasks)
	assert.Equal(t, "tg-42-7", observability.TaskIDFrom(runner.ctxs[0]))

	require.Len(t, bot.sent, 1)
	assert.Equal(t, int64(42), bot.sent[0].ChatID)
	assert.Equal(t, 7, bot.sent[0].ReplyToMessageID)
	assert.Contains(t, bot.sent[0].Text, "Delhi is clear")

	require.NoError(t, tg.Stop())
	assert.True(t, bot.stopped)
}

func TestTelegramGateway_StopsOnContext(t *testing.T) {
	bot := &fakeBot{updates: make(chan tgbotapi.Update)}
	tg := &TelegramGateway{Bot: bot, Runner: &fakeRunner{result: successResult}, Logger: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, tg.Start(ctx))
}

func TestTelegramGateway_Send(t *testing.T) {
	bot := &fakeBot{}
	tg := &TelegramGateway{Bot: bot, Logger: zap.NewNop()}

	require.NoError(t, tg.Send("42", "hello"))
	require.Len(t, bot.sent, 1)
	assert.Equal(t, "hello", bot.sent[0].Text)

	assert.Error(t, tg.Send("not-a-chat", "hello"))
	assert.Error(t, tg.Send("0", "hello"))
}

func TestFormatReply(t *testing.T) {
	reply := FormatReply(successResult("task"))
	assert.Equal(t, "Delhi is clear at 31°C. Repository search failed.\n\n1 of 2 steps failed.\n\nSources: Open-Meteo API", reply)

	reply = FormatReply(agent.CombinedResult{Task: "task", Error: "planning failed: timeout"})
	assert.Equal(t, "Sorry, I could not complete that task: planning failed: timeout", reply)
}
