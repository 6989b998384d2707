package app

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/biosecret/task-api/cache"
	"github.com/biosecret/task-api/config"
	"github.com/biosecret/task-api/database"
)

type envelope struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message"`
	Errors       []string        `json:"errors"`
	Data         json.RawMessage `json:"data"`
	Token        string          `json:"token"`
	RefreshToken string          `json:"refreshToken"`
	Count        int             `json:"count"`
	Total        int             `json:"total"`
	Page         int             `json:"page"`
	Pages        int             `json:"pages"`
}

type taskBody struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Status  string `json:"status"`
	User    string `json:"user"`
	DueDate string `json:"dueDate"`
	Owner   *struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"owner"`
}

func testConfig() config.Config {
	return config.Config{
		Env:             "test",
		StoreDriver:     config.StoreDriverMemory,
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		AdminInviteCode: "invite-me",
		AllowedOrigins:  []string{"http://localhost:5173"},
	}
}

func newTestApp(t *testing.T, cfg config.Config) *fiber.App {
	t.Helper()
	mem := database.NewMemoryStore()
	app, err := New(cfg, Stores{Users: mem, Tasks: mem})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return app
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = strings.NewReader(string(raw))
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, env
}

func register(t *testing.T, app *fiber.App, name, email string, extra map[string]any) string {
	t.Helper()
	body := map[string]any{"name": name, "email": email, "password": "secret1"}
	for k, v := range extra {
		body[k] = v
	}
	status, env := call(t, app, http.MethodPost, "/api/v1/auth/register", "", body)
	if status != http.StatusCreated || env.Token == "" {
		t.Fatalf("register %s: status %d %+v", email, status, env)
	}
	return env.Token
}

func createTask(t *testing.T, app *fiber.App, token string, body map[string]any) taskBody {
	t.Helper()
	status, env := call(t, app, http.MethodPost, "/api/v1/tasks", token, body)
	if status != http.StatusCreated {
		t.Fatalf("create task: status %d %+v", status, env)
	}
	var task taskBody
	if err := json.Unmarshal(env.Data, &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	return task
}

func decodeTasks(t *testing.T, env envelope) []taskBody {
	t.Helper()
	var tasks []taskBody
	if err := json.Unmarshal(env.Data, &tasks); err != nil {
		t.Fatalf("decode tasks: %v", err)
	}
	return tasks
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t, testConfig())

	register(t, app, "Alice", "a@x.com", nil)

	status, env := call(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]any{"name": "Alice", "email": "a@x.com", "password": "secret1"})
	if status != http.StatusConflict || env.Success {
		t.Fatalf("duplicate register: status %d %+v", status, env)
	}

	status, env = call(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"email": "a@x.com", "password": "wrong"})
	if status != http.StatusBadRequest || env.Message != "Invalid credentials" {
		t.Fatalf("wrong password: status %d %+v", status, env)
	}

	status, env = call(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"email": "a@x.com", "password": "secret1"})
	if status != http.StatusOK {
		t.Fatalf("login: status %d %+v", status, env)
	}
	var tokens struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.Unmarshal(env.Data, &tokens); err != nil || tokens.Token == "" {
		t.Fatalf("login data %s: %v", env.Data, err)
	}

	status, env = call(t, app, http.MethodGet, "/api/v1/auth/me", tokens.Token, nil)
	if status != http.StatusOK || !strings.Contains(string(env.Data), `"email":"a@x.com"`) {
		t.Fatalf("me: status %d %s", status, env.Data)
	}
	if strings.Contains(string(env.Data), "password") {
		t.Fatalf("password hash leaked: %s", env.Data)
	}

	status, _ = call(t, app, http.MethodGet, "/api/v1/auth/me", tokens.RefreshToken, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("refresh token as bearer: status %d", status)
	}

	status, env = call(t, app, http.MethodPost, "/api/v1/auth/refresh", "", map[string]any{"refreshToken": tokens.RefreshToken})
	if status != http.StatusOK {
		t.Fatalf("refresh: status %d %+v", status, env)
	}
}

func TestRegisterValidationListsAllErrors(t *testing.T) {
	app := newTestApp(t, testConfig())

	status, env := call(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]any{"email": "nope", "password": "1"})
	if status != http.StatusBadRequest || env.Success {
		t.Fatalf("status %d %+v", status, env)
	}
	want := []string{"Name is required", "Please provide a valid email", "Password must be at least 6 characters"}
	if fmt.Sprint(env.Errors) != fmt.Sprint(want) {
		t.Fatalf("errors = %q, want %q", env.Errors, want)
	}
}

func TestAdminRegistrationRequiresInviteCode(t *testing.T) {
	app := newTestApp(t, testConfig())

	status, _ := call(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"name": "Mallory", "email": "m@x.com", "password": "secret1", "role": "admin",
	})
	if status != http.StatusForbidden {
		t.Fatalf("admin without code: status %d", status)
	}

	register(t, app, "Root", "root@x.com", map[string]any{"role": "admin", "adminCode": "invite-me"})
}

func TestTaskRoutesRequireToken(t *testing.T) {
	app := newTestApp(t, testConfig())

	for _, tc := range []struct{ method, path, token string }{
		{http.MethodGet, "/api/v1/tasks", ""},
		{http.MethodPost, "/api/v1/tasks", ""},
		{http.MethodGet, "/api/v1/tasks/abc", "garbage"},
		{http.MethodDelete, "/api/v1/tasks/abc", ""},
		{http.MethodGet, "/api/v1/auth/me", ""},
	} {
		status, env := call(t, app, tc.method, tc.path, tc.token, nil)
		if status != http.StatusUnauthorized || env.Success {
			t.Fatalf("%s %s: status %d %+v", tc.method, tc.path, status, env)
		}
	}
}

func TestOwnershipScenario(t *testing.T) {
	app := newTestApp(t, testConfig())
	aliceToken := register(t, app, "Alice", "a@x.com", nil)
	bobToken := register(t, app, "Bob", "b@x.com", nil)
	adminToken := register(t, app, "Root", "root@x.com", map[string]any{"role": "admin", "adminCode": "invite-me"})

	t1 := createTask(t, app, aliceToken, map[string]any{"title": "T1", "user": "someone-else"})
	if t1.Status != "pending" {
		t.Fatalf("default status = %q", t1.Status)
	}
	createTask(t, app, bobToken, map[string]any{"title": "B1"})

	status, env := call(t, app, http.MethodGet, "/api/v1/auth/me", aliceToken, nil)
	if status != http.StatusOK || !strings.Contains(string(env.Data), t1.User) {
		t.Fatalf("task owner %q must be the caller, me = %s", t1.User, env.Data)
	}

	status, env = call(t, app, http.MethodGet, "/api/v1/tasks/"+t1.ID, bobToken, nil)
	if status != http.StatusForbidden || env.Message != "Not authorized to access this task" {
		t.Fatalf("bob get: status %d %+v", status, env)
	}
	status, _ = call(t, app, http.MethodPut, "/api/v1/tasks/"+t1.ID, bobToken, map[string]any{"title": "mine now"})
	if status != http.StatusForbidden {
		t.Fatalf("bob update: status %d", status)
	}
	status, _ = call(t, app, http.MethodDelete, "/api/v1/tasks/"+t1.ID, bobToken, nil)
	if status != http.StatusForbidden {
		t.Fatalf("bob delete: status %d", status)
	}

	status, env = call(t, app, http.MethodGet, "/api/v1/tasks", bobToken, nil)
	if status != http.StatusOK {
		t.Fatalf("bob list: status %d", status)
	}
	for _, task := range decodeTasks(t, env) {
		if task.ID == t1.ID {
			t.Fatalf("bob's list includes T1")
		}
	}
	if env.Total != 1 || env.Count != 1 || env.Page != 1 || env.Pages != 1 {
		t.Fatalf("bob list metadata: %+v", env)
	}

	status, env = call(t, app, http.MethodGet, "/api/v1/tasks", adminToken, nil)
	if status != http.StatusOK || env.Total != 2 {
		t.Fatalf("admin list: status %d %+v", status, env)
	}
	found := false
	for _, task := range decodeTasks(t, env) {
		found = found || task.ID == t1.ID
	}
	if !found {
		t.Fatalf("admin list must include T1")
	}

	status, env = call(t, app, http.MethodPut, "/api/v1/tasks/"+t1.ID, aliceToken, map[string]any{"status": "completed", "user": "hijack"})
	if status != http.StatusOK {
		t.Fatalf("owner update: status %d %+v", status, env)
	}
	var updated taskBody
	_ = json.Unmarshal(env.Data, &updated)
	if updated.Status != "completed" || updated.Title != "T1" || updated.User != t1.User {
		t.Fatalf("updated task = %+v", updated)
	}

	status, env = call(t, app, http.MethodDelete, "/api/v1/tasks/"+t1.ID, adminToken, nil)
	if status != http.StatusOK || string(env.Data) != "{}" {
		t.Fatalf("admin delete: status %d data %s", status, env.Data)
	}
	status, _ = call(t, app, http.MethodGet, "/api/v1/tasks/"+t1.ID, aliceToken, nil)
	if status != http.StatusNotFound {
		t.Fatalf("deleted task: status %d", status)
	}
}

func TestUpdateTitleTooLong(t *testing.T) {
	app := newTestApp(t, testConfig())
	token := register(t, app, "Alice", "a@x.com", nil)
	task := createTask(t, app, token, map[string]any{"title": "T1"})

	status, env := call(t, app, http.MethodPut, "/api/v1/tasks/"+task.ID, token, map[string]any{"title": strings.Repeat("x", 101)})
	if status != http.StatusBadRequest {
		t.Fatalf("status %d %+v", status, env)
	}
	if len(env.Errors) != 1 || env.Errors[0] != "Title cannot exceed 100 characters" {
		t.Fatalf("errors = %q", env.Errors)
	}
}

func TestListFiltersAndPagination(t *testing.T) {
	app := newTestApp(t, testConfig())
	token := register(t, app, "Alice", "a@x.com", nil)
	for i := 0; i < 12; i++ {
		status := "pending"
		if i%3 == 0 {
			status = "completed"
		}
		createTask(t, app, token, map[string]any{"title": fmt.Sprintf("task %d", i), "status": status})
	}

	status, env := call(t, app, http.MethodGet, "/api/v1/tasks?status=completed&limit=3&page=2", token, nil)
	if status != http.StatusOK {
		t.Fatalf("status %d %+v", status, env)
	}
	if env.Total != 4 || env.Pages != 2 || env.Page != 2 || env.Count != 1 {
		t.Fatalf("unexpected page metadata: %+v", env)
	}
	for _, task := range decodeTasks(t, env) {
		if task.Status != "completed" {
			t.Fatalf("filter leaked %+v", task)
		}
	}

	status, env = call(t, app, http.MethodGet, "/api/v1/tasks?page=abc&limit=-5", token, nil)
	if status != http.StatusOK || env.Page != 1 || env.Count != 10 || env.Pages != 2 {
		t.Fatalf("defaults: status %d %+v", status, env)
	}

	status, _ = call(t, app, http.MethodGet, "/api/v1/tasks?priority=urgent", token, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("unknown priority: status %d", status)
	}
}

func TestListFarPageIsEmpty(t *testing.T) {
	app := newTestApp(t, testConfig())
	token := register(t, app, "Alice", "a@x.com", nil)
	createTask(t, app, token, map[string]any{"title": "T1"})

	status, env := call(t, app, http.MethodGet, "/api/v1/tasks?page=9223372036854775807", token, nil)
	if status != http.StatusOK || !env.Success {
		t.Fatalf("status %d %+v", status, env)
	}
	if env.Count != 0 || env.Total != 1 || env.Pages != 1 || len(decodeTasks(t, env)) != 0 {
		t.Fatalf("unexpected page: %+v", env)
	}
}

func TestDueDateFormats(t *testing.T) {
	app := newTestApp(t, testConfig())
	token := register(t, app, "Alice", "a@x.com", nil)

	task := createTask(t, app, token, map[string]any{"title": "T1", "dueDate": "2026-03-01"})
	if !strings.HasPrefix(task.DueDate, "2026-03-01T00:00:00") {
		t.Fatalf("dueDate = %q", task.DueDate)
	}

	status, env := call(t, app, http.MethodPut, "/api/v1/tasks/"+task.ID, token, map[string]any{"dueDate": "2026-04-02T09:30:00Z"})
	if status != http.StatusOK {
		t.Fatalf("update: status %d %+v", status, env)
	}
	var updated taskBody
	json.Unmarshal(env.Data, &updated)
	if updated.DueDate != "2026-04-02T09:30:00Z" {
		t.Fatalf("updated dueDate = %q", updated.DueDate)
	}

	status, _ = call(t, app, http.MethodPost, "/api/v1/tasks", token, map[string]any{"title": "T2", "dueDate": "next week"})
	if status != http.StatusBadRequest {
		t.Fatalf("garbage dueDate: status %d", status)
	}
}

func TestAdminSeesOwnerSummary(t *testing.T) {
	app := newTestApp(t, testConfig())
	alice := register(t, app, "Alice", "a@x.com", nil)
	root := register(t, app, "Root", "root@x.com", map[string]any{"role": "admin", "adminCode": "invite-me"})
	task := createTask(t, app, alice, map[string]any{"title": "T1"})

	status, env := call(t, app, http.MethodGet, "/api/v1/tasks/"+task.ID, root, nil)
	if status != http.StatusOK {
		t.Fatalf("get: status %d %+v", status, env)
	}
	var got taskBody
	json.Unmarshal(env.Data, &got)
	if got.Owner == nil || got.Owner.Name != "Alice" || got.Owner.Email != "a@x.com" || got.Owner.ID != task.User {
		t.Fatalf("owner = %+v", got.Owner)
	}

	_, env = call(t, app, http.MethodGet, "/api/v1/tasks", root, nil)
	tasks := decodeTasks(t, env)
	if len(tasks) != 1 || tasks[0].Owner == nil || tasks[0].Owner.Name != "Alice" {
		t.Fatalf("admin list owners: %+v", tasks)
	}
	if strings.Contains(string(env.Data), "password") {
		t.Fatalf("owner summary leaks password: %s", env.Data)
	}

	_, env = call(t, app, http.MethodGet, "/api/v1/tasks", alice, nil)
	if tasks := decodeTasks(t, env); len(tasks) != 1 || tasks[0].Owner != nil {
		t.Fatalf("user list should not carry owners: %+v", tasks)
	}
}

func TestTaskEventStream(t *testing.T) {
	app := newTestApp(t, testConfig())
	alice := register(t, app, "Alice", "a@x.com", nil)
	bob := register(t, app, "Bob", "b@x.com", nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go app.Listener(ln)
	defer app.ShutdownWithTimeout(5 * time.Second)

	req, _ := http.NewRequest(http.MethodGet, "http://"+ln.Addr().String()+"/api/v1/tasks/events", nil)
	req.Header.Set("Authorization", "Bearer "+alice)
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("connect stream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("stream: status %d %v", resp.StatusCode, resp.Header)
	}

	createTask(t, app, bob, map[string]any{"title": "not for alice"})
	mine := createTask(t, app, alice, map[string]any{"title": "mine"})

	reader := bufio.NewReader(resp.Body)
	event := ""
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")

		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			var ev struct {
				Type string   `json:"type"`
				Task taskBody `json:"task"`
			}
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
				t.Fatalf("decode frame %q: %v", line, err)
			}
			if ev.Task.ID != mine.ID || ev.Task.User != mine.User {
				t.Fatalf("received event for foreign task %+v", ev.Task)
			}
			if event != "task.created" || ev.Type != "task.created" {
				t.Fatalf("event = %q/%q, want task.created", event, ev.Type)
			}
			return
		}
	}
}

func TestMalformedBodyAndUnknownRoute(t *testing.T) {
	app := newTestApp(t, testConfig())
	token := register(t, app, "Alice", "a@x.com", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", strings.NewReader(`{"title":`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed body: status %d", resp.StatusCode)
	}

	status, env := call(t, app, http.MethodGet, "/api/v1/nothing-here", "", nil)
	if status != http.StatusNotFound || env.Success {
		t.Fatalf("unknown route: status %d %+v", status, env)
	}
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	app := newTestApp(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health: status %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing security headers: %v", resp.Header)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("allowed origin not echoed: %v", resp.Header)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("foreign origin must not be allowed")
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitMax = 2
	cfg.RateLimitWindow = time.Minute
	app := newTestApp(t, cfg)

	for i := 0; i < 2; i++ {
		if status, _ := call(t, app, http.MethodGet, "/api/v1/tasks", "", nil); status != http.StatusUnauthorized {
			t.Fatalf("request %d: status %d", i, status)
		}
	}
	status, env := call(t, app, http.MethodGet, "/api/v1/tasks", "", nil)
	if status != http.StatusTooManyRequests || env.Success {
		t.Fatalf("expected 429, got %d %+v", status, env)
	}

	if status, _ := call(t, app, http.MethodGet, "/health", "", nil); status != http.StatusOK {
		t.Fatalf("health must not be rate limited, got %d", status)
	}
}

func TestRateLimitSharedThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	storage, err := cache.ConnectRedis(context.Background(), mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("ConnectRedis: %v", err)
	}
	defer storage.Close()

	cfg := testConfig()
	cfg.RateLimitMax = 2
	cfg.RateLimitWindow = time.Minute
	instance := func() *fiber.App {
		mem := database.NewMemoryStore()
		app, err := newApp(cfg, Stores{Users: mem, Tasks: mem}, storage)
		if err != nil {
			t.Fatalf("newApp: %v", err)
		}
		return app
	}
	first, second := instance(), instance()

	for i := 0; i < 2; i++ {
		if status, _ := call(t, first, http.MethodGet, "/api/v1/tasks", "", nil); status != http.StatusUnauthorized {
			t.Fatalf("request %d: status %d", i, status)
		}
	}
	// hai instance dùng chung bộ đếm trong Redis
	if status, _ := call(t, second, http.MethodGet, "/api/v1/tasks", "", nil); status != http.StatusTooManyRequests {
		t.Fatalf("expected 429 from second instance, got %d", status)
	}

	keys := mr.Keys()
	if len(keys) == 0 {
		t.Fatalf("limiter wrote nothing to redis")
	}
	for _, k := range keys {
		if !strings.HasPrefix(k, "task-api:") {
			t.Fatalf("key %q stored without prefix", k)
		}
	}

	mr.FastForward(cfg.RateLimitWindow + time.Second)
	if status, _ := call(t, second, http.MethodGet, "/api/v1/tasks", "", nil); status != http.StatusUnauthorized {
		t.Fatalf("window should reset after expiry, got %d", status)
	}
}
