package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	authRepo "worksync-backend/internal/auth/repository"
	authUsecase "worksync-backend/internal/auth/usecase"
	"worksync-backend/internal/flow"
	"worksync-backend/internal/preference"
	reminderRepo "worksync-backend/internal/reminder/repository"
	reminderUsecase "worksync-backend/internal/reminder/usecase"
	"worksync-backend/internal/task/feed"
	taskRepo "worksync-backend/internal/task/repository"
	"worksync-backend/internal/task/store"
	taskUsecase "worksync-backend/internal/task/usecase"
	"worksync-backend/pkg/ai"
	"worksync-backend/pkg/config"
	"worksync-backend/pkg/ratelimit"
	"worksync-backend/pkg/sse"

	"github.com/gin-gonic/gin"
)

type echoCompleter struct{}

func (echoCompleter) Name() string { return "echo" }

func (echoCompleter) Complete(ctx context.Context, prompt string, jsonOutput bool) (string, error) {
	return `{"code":"fmt.Println(\"hi\")","explanation":"prints hi"}`, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  time.Minute,
		JWTRefreshExpiry: time.Hour,
	}

	tasks := taskRepo.NewMemoryTaskRepository()
	changes := feed.NewLocalFeed()
	manager := sse.NewManager()
	taskStore := store.NewStore(tasks, time.Second)
	commander := store.NewCommander(tasks, changes, store.NewSSENotifier(manager), time.Second)
	users := authRepo.NewMemoryUserRepository()

	taskUc := taskUsecase.NewTaskUsecase(tasks, taskStore, commander)
	taskUc.SetUserDirectory(users)

	h := NewHandler(Deps{
		Config:          cfg,
		AuthUsecase:     authUsecase.NewAuthUsecase(users, authRepo.NewMemoryFCMTokenRepository(), cfg),
		TaskUsecase:     taskUc,
		ReminderUsecase: reminderUsecase.NewReminderUsecase(reminderRepo.NewMemoryReminderRepository()),
		Preferences:     preference.NewMemoryStore(),
		TaskStore:       taskStore,
		Flows:           flow.NewRegistry(echoCompleter{}),
		FlowLimiter:     ratelimit.NewStore(0.001, 2, time.Minute),
		AISettings:      ai.NewSettings("http://localhost:11434", "llama3"),
		SSEManager:      manager,
	})
	return h.Router()
}

func call(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func register(t *testing.T, r *gin.Engine, email string) string {
	t.Helper()
	w := call(r, http.MethodPost, "/api/auth/register", "", `{"email":"`+email+`","password":"secret123","name":"Test"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register failed %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.AccessToken == "" {
		t.Fatalf("no access token in %s", w.Body.String())
	}
	return resp.AccessToken
}

func TestHealthAndAuthGate(t *testing.T) {
	r := newTestRouter(t)
	if w := call(r, http.MethodGet, "/api/health", "", ""); w.Code != http.StatusOK {
		t.Fatalf("health returned %d", w.Code)
	}
	for _, path := range []string{"/api/tasks", "/api/board", "/api/reminders", "/api/preferences", "/api/flows"} {
		if w := call(r, http.MethodGet, path, "", ""); w.Code != http.StatusUnauthorized {
			t.Fatalf("%s without a token returned %d", path, w.Code)
		}
	}
	if w := call(r, http.MethodOptions, "/api/tasks", "", ""); w.Code != http.StatusNoContent {
		t.Fatalf("preflight returned %d", w.Code)
	}
}

func TestTaskFlowThroughTheRouter(t *testing.T) {
	r := newTestRouter(t)
	alice := register(t, r, "alice@example.com")
	bob := register(t, r, "bob@example.com")

	w := call(r, http.MethodPost, "/api/tasks?wait=true", alice, `{"title":"Prepare demo","status":"todo","priority":3}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", w.Code, w.Body.String())
	}
	var task struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &task)

	w = call(r, http.MethodGet, "/api/board?focus=true", alice, "")
	if !strings.Contains(w.Body.String(), "Prepare demo") {
		t.Fatalf("task missing from board: %s", w.Body.String())
	}

	w = call(r, http.MethodPost, "/api/tasks/"+task.ID+"/assign?wait=true", alice, `{"email":"bob@example.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("assign returned %d: %s", w.Code, w.Body.String())
	}
	w = call(r, http.MethodGet, "/api/tasks/inbox", bob, "")
	if !strings.Contains(w.Body.String(), `"total":1`) {
		t.Fatalf("bob's inbox should hold the task: %s", w.Body.String())
	}
	w = call(r, http.MethodPost, "/api/tasks/"+task.ID+"/accept?wait=true", bob, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"Backlog"`) {
		t.Fatalf("accept returned %d: %s", w.Code, w.Body.String())
	}
}

func TestFlowsAreRateLimitedPerUser(t *testing.T) {
	r := newTestRouter(t)
	token := register(t, r, "carol@example.com")
	body := `{"description":"print hi","language":"Go"}`

	for i := 0; i < 2; i++ {
		if w := call(r, http.MethodPost, "/api/flows/generate-code", token, body); w.Code != http.StatusOK {
			t.Fatalf("call %d returned %d: %s", i, w.Code, w.Body.String())
		}
	}
	if w := call(r, http.MethodPost, "/api/flows/generate-code", token, body); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}

	other := register(t, r, "dan@example.com")
	if w := call(r, http.MethodPost, "/api/flows/generate-code", other, body); w.Code != http.StatusOK {
		t.Fatalf("another user should have their own budget, got %d", w.Code)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	r := newTestRouter(t)
	token := register(t, r, "erin@example.com")

	w := call(r, http.MethodPut, "/api/settings/ollama", token, `{"ollama_base_url":"http://gpu-box:11434","ollama_model":"qwen"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update returned %d: %s", w.Code, w.Body.String())
	}
	w = call(r, http.MethodGet, "/api/settings/ollama", token, "")
	if !strings.Contains(w.Body.String(), "gpu-box") || !strings.Contains(w.Body.String(), "qwen") {
		t.Fatalf("settings not applied: %s", w.Body.String())
	}
	if w := call(r, http.MethodPut, "/api/settings/ollama", token, `{"ollama_base_url":"not a url"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
