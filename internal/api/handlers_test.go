package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/dagaz/internal/docservice"
	"github.com/starford/dagaz/internal/testutil"
	"github.com/starford/dagaz/internal/vault"
)

func newTestServer(t *testing.T) (*httptest.Server, vault.Provider) {
	t.Helper()
	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	docs := docservice.NewService(store, testutil.Layout)
	h := NewHandler(docs, db, store)
	srv := httptest.NewServer(NewRouter(h, RouterOptions{}))
	t.Cleanup(srv.Close)
	return srv, store
}

func taskText(title, status, extra string) string {
	return "---\ntitle: " + title + "\nstatus: " + status +
		"\ncreated-at: 2025-01-01\nupdated-at: 2025-01-01\n" + extra + "---\nBody.\n"
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestGetTask_Endpoint(t *testing.T) {
	srv, store := newTestServer(t)
	if err := store.Write("tasks/x.md", []byte(taskText("X", "ready", ""))); err != nil {
		t.Fatal(err)
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/tasks/tasks/x.md", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	dto := decode[TaskDTO](t, resp)
	if dto.Title != "X" || dto.Status != "ready" {
		t.Errorf("dto = %+v", dto)
	}
}

func TestGetTask_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodGet, srv.URL+"/tasks/tasks/missing.md", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGetTask_MalformedIs422(t *testing.T) {
	srv, store := newTestServer(t)
	if err := store.Write("tasks/bad.md", []byte("garbage\n")); err != nil {
		t.Fatal(err)
	}
	resp := doJSON(t, http.MethodGet, srv.URL+"/tasks/tasks/bad.md", nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
}

func TestCreateTask_Endpoint(t *testing.T) {
	srv, store := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/tasks", CreateTaskRequest{
		Filename: "new.md",
		Title:    "New task",
		Due:      "2025-02-01",
		Project:  "[[groceries]]",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	dto := decode[TaskDTO](t, resp)
	if dto.Path != "tasks/new.md" || dto.Status != "inbox" {
		t.Errorf("dto = %+v", dto)
	}
	if dto.Due == nil || *dto.Due != "2025-02-01" {
		t.Errorf("due = %v", dto.Due)
	}
	if !store.Exists("tasks/new.md") {
		t.Error("file not written")
	}
}

func TestCreateTask_InvalidDateIs422(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/tasks", CreateTaskRequest{
		Filename: "new.md",
		Title:    "New task",
		Due:      "someday",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
}

func TestUpdateTask_Endpoint(t *testing.T) {
	srv, store := newTestServer(t)
	if err := store.Write("tasks/x.md", []byte(taskText("X", "ready", "priority: high\n"))); err != nil {
		t.Fatal(err)
	}

	newStatus := "started"
	resp := doJSON(t, http.MethodPut, srv.URL+"/tasks/tasks/x.md", UpdateTaskRequest{Status: &newStatus})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	dto := decode[TaskDTO](t, resp)
	if dto.Status != "started" {
		t.Errorf("status = %q", dto.Status)
	}
	if dto.Extra["priority"] != "high" {
		t.Errorf("extras lost: %v", dto.Extra)
	}
}

func TestUpdateTask_IfMatchConflict(t *testing.T) {
	srv, store := newTestServer(t)
	if err := store.Write("tasks/x.md", []byte(taskText("X", "ready", ""))); err != nil {
		t.Fatal(err)
	}

	title := "Changed"
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(UpdateTaskRequest{Title: &title}); err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/tasks/tasks/x.md", &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("If-Match", `"stale"`)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestCompleteAndArchive_Endpoints(t *testing.T) {
	srv, store := newTestServer(t)
	if err := store.Write("tasks/x.md", []byte(taskText("X", "started", ""))); err != nil {
		t.Fatal(err)
	}

	resp := doJSON(t, http.MethodPost, srv.URL+"/complete", map[string]string{
		"path": "tasks/x.md",
		"when": "2025-01-20T17:00:00",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete status = %d", resp.StatusCode)
	}
	dto := decode[TaskDTO](t, resp)
	if dto.Status != "done" || dto.CompletedAt == nil {
		t.Errorf("dto = %+v", dto)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/archive", map[string]string{"path": "tasks/x.md"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("archive status = %d", resp.StatusCode)
	}
	out := decode[map[string]string](t, resp)
	if out["path"] != "tasks/archive/x.md" {
		t.Errorf("archive path = %q", out["path"])
	}
	if store.Exists("tasks/x.md") {
		t.Error("source still present after archive")
	}
}

func TestListTasks_PresetQuery(t *testing.T) {
	srv, store := newTestServer(t)
	if err := store.Write("tasks/late.md", []byte(taskText("Late", "ready", "due: 2025-01-10\n"))); err != nil {
		t.Fatal(err)
	}
	if err := store.Write("tasks/future.md", []byte(taskText("Future", "ready", "due: 2025-03-01\n"))); err != nil {
		t.Fatal(err)
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/tasks?preset=overdue&as_of=2025-01-15", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[struct {
		Tasks []TaskDTO `json:"tasks"`
		Total int       `json:"total"`
	}](t, resp)
	if body.Total != 1 || body.Tasks[0].Title != "Late" {
		t.Errorf("body = %+v", body)
	}
}

func TestListTasks_UnknownPresetIs400(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodGet, srv.URL+"/tasks?preset=everything", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRelations_ProjectTasks(t *testing.T) {
	srv, store := newTestServer(t)
	projectText := "---\ntitle: Groceries\ncreated-at: 2025-01-01\nupdated-at: 2025-01-01\n---\n"
	if err := store.Write("projects/groceries.md", []byte(projectText)); err != nil {
		t.Fatal(err)
	}
	if err := store.Write("tasks/milk.md", []byte(taskText("Buy milk", "ready", "projects:\n  - \"[[groceries]]\"\n"))); err != nil {
		t.Fatal(err)
	}
	if err := store.Write("tasks/dangling.md", []byte(taskText("Dangling", "ready", "projects:\n  - \"[[gone]]\"\n"))); err != nil {
		t.Fatal(err)
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/relations/project-tasks?path=projects/groceries.md", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[RelatedTasksResponse](t, resp)
	if len(body.Tasks) != 1 || body.Tasks[0].Title != "Buy milk" {
		t.Errorf("tasks = %+v", body.Tasks)
	}
	if len(body.Warnings) != 1 {
		t.Errorf("warnings = %v, want the dangling reference", body.Warnings)
	}
}

func TestResolve_Endpoint(t *testing.T) {
	srv, store := newTestServer(t)
	projectText := "---\ntitle: Groceries\ncreated-at: 2025-01-01\nupdated-at: 2025-01-01\n---\n"
	if err := store.Write("projects/groceries.md", []byte(projectText)); err != nil {
		t.Fatal(err)
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/resolve?ref=%5B%5Bgroceries%5D%5D", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	out := decode[map[string]string](t, resp)
	if out["path"] != "projects/groceries.md" {
		t.Errorf("path = %q", out["path"])
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/resolve?ref=%5B%5Bnowhere%5D%5D", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unresolved status = %d, want 404", resp.StatusCode)
	}
}

func TestAuth_TokenRequired(t *testing.T) {
	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	docs := docservice.NewService(store, testutil.Layout)
	h := NewHandler(docs, db, store)
	srv := httptest.NewServer(NewRouter(h, RouterOptions{AuthEnabled: true, AuthToken: "secret"}))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/tasks")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/tasks", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("with token: status = %d, want 200", resp.StatusCode)
	}

	// Health stays open.
	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}
}
