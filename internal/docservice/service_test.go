package docservice

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/checksum"
	"github.com/starford/dagaz/internal/filter"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/testutil"
	"github.com/starford/dagaz/internal/vault"
)

func newTestService(t *testing.T) (*Service, vault.Provider) {
	t.Helper()
	_, store := testutil.TestVault(t)
	return NewService(store, testutil.Layout), store
}

func taskText(title, status string, extra string) string {
	return "---\ntitle: " + title + "\nstatus: " + status +
		"\ncreated-at: 2025-01-01\nupdated-at: 2025-01-01\n" + extra + "---\nBody.\n"
}

func TestGetTask(t *testing.T) {
	svc, store := newTestService(t)
	if err := store.Write("tasks/x.md", []byte(taskText("X", "ready", ""))); err != nil {
		t.Fatal(err)
	}
	task, err := svc.GetTask(context.Background(), "tasks/x.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Title != "X" {
		t.Errorf("title = %q", task.Title)
	}
}

func TestGetTask_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GetTask(context.Background(), "tasks/missing.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetTask_ParseErrorSurfaces(t *testing.T) {
	svc, store := newTestService(t)
	if err := store.Write("tasks/bad.md", []byte("garbage\n")); err != nil {
		t.Fatal(err)
	}
	_, err := svc.GetTask(context.Background(), "tasks/bad.md")
	if !errors.Is(err, apperr.ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}

func TestCreateTask(t *testing.T) {
	svc, store := newTestService(t)
	task := &models.Task{
		Title:     "New task",
		Status:    models.StatusInbox,
		CreatedAt: models.NewDate(2025, time.January, 15),
		UpdatedAt: models.NewDate(2025, time.January, 15),
	}
	created, err := svc.CreateTask(context.Background(), "new.md", task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Path != "tasks/new.md" {
		t.Errorf("path = %q", created.Path)
	}
	if !store.Exists("tasks/new.md") {
		t.Error("file not written")
	}
}

func TestCreateTask_DuplicateRejected(t *testing.T) {
	svc, store := newTestService(t)
	if err := store.Write("tasks/x.md", []byte(taskText("X", "ready", ""))); err != nil {
		t.Fatal(err)
	}
	task := &models.Task{
		Title:     "Clash",
		Status:    models.StatusInbox,
		CreatedAt: models.NewDate(2025, time.January, 15),
		UpdatedAt: models.NewDate(2025, time.January, 15),
	}
	_, err := svc.CreateTask(context.Background(), "x.md", task)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestCreateTask_BadFilenames(t *testing.T) {
	svc, _ := newTestService(t)
	task := &models.Task{
		Title:     "X",
		Status:    models.StatusInbox,
		CreatedAt: models.NewDate(2025, time.January, 15),
		UpdatedAt: models.NewDate(2025, time.January, 15),
	}
	for _, name := range []string{"", "x.txt", "sub/x.md"} {
		if _, err := svc.CreateTask(context.Background(), name, task); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("filename %q: err = %v, want ErrValidation", name, err)
		}
	}
}

func TestUpdateTask_PreservesUnknownFields(t *testing.T) {
	svc, store := newTestService(t)
	text := taskText("X", "ready", "priority: high\nestimate: 30\n")
	if err := store.Write("tasks/x.md", []byte(text)); err != nil {
		t.Fatal(err)
	}

	_, err := svc.UpdateTask(context.Background(), "tasks/x.md", "", func(task *models.Task) error {
		task.Status = models.StatusStarted
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after, err := svc.GetTask(context.Background(), "tasks/x.md")
	if err != nil {
		t.Fatal(err)
	}
	if after.Status != models.StatusStarted {
		t.Errorf("status = %q", after.Status)
	}
	if after.Extra["priority"] != "high" || after.Extra["estimate"] != 30 {
		t.Errorf("extras lost across update: %v", after.Extra)
	}
	if after.Body != "Body.\n" {
		t.Errorf("body changed: %q", after.Body)
	}
}

func TestUpdateTask_ChecksumConflict(t *testing.T) {
	svc, store := newTestService(t)
	if err := store.Write("tasks/x.md", []byte(taskText("X", "ready", ""))); err != nil {
		t.Fatal(err)
	}

	_, err := svc.UpdateTask(context.Background(), "tasks/x.md", "stale-checksum", func(task *models.Task) error {
		task.Title = "Changed"
		return nil
	})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestUpdateTask_MatchingChecksumSucceeds(t *testing.T) {
	svc, store := newTestService(t)
	text := []byte(taskText("X", "ready", ""))
	if err := store.Write("tasks/x.md", text); err != nil {
		t.Fatal(err)
	}

	_, err := svc.UpdateTask(context.Background(), "tasks/x.md", checksum.Sum(text), func(task *models.Task) error {
		task.Title = "Changed"
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCompleteTask(t *testing.T) {
	svc, store := newTestService(t)
	if err := store.Write("tasks/x.md", []byte(taskText("X", "started", ""))); err != nil {
		t.Fatal(err)
	}
	when, _ := models.ParseDateValue("2025-01-20T17:00:00")
	task, err := svc.CompleteTask(context.Background(), "tasks/x.md", when)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Status != models.StatusDone {
		t.Errorf("status = %q", task.Status)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(when) {
		t.Errorf("completed-at = %v", task.CompletedAt)
	}
	if !task.UpdatedAt.Equal(when) {
		t.Errorf("updated-at = %v", task.UpdatedAt)
	}
}

func TestArchiveTask(t *testing.T) {
	svc, store := newTestService(t)
	if err := store.Write("tasks/x.md", []byte(taskText("X", "done", "completed-at: 2025-01-19\n"))); err != nil {
		t.Fatal(err)
	}
	dest, err := svc.ArchiveTask(context.Background(), "tasks/x.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dest != "tasks/archive/x.md" {
		t.Errorf("dest = %q", dest)
	}
	if store.Exists("tasks/x.md") {
		t.Error("source still present")
	}

	archived, err := svc.GetTask(context.Background(), dest)
	if err != nil {
		t.Fatal(err)
	}
	if !archived.Archived() {
		t.Error("task at archive path should report Archived")
	}
}

func TestArchiveTask_DestinationClash(t *testing.T) {
	svc, store := newTestService(t)
	if err := store.Write("tasks/x.md", []byte(taskText("X", "done", ""))); err != nil {
		t.Fatal(err)
	}
	if err := store.Write("tasks/archive/x.md", []byte(taskText("Old X", "done", ""))); err != nil {
		t.Fatal(err)
	}
	_, err := svc.ArchiveTask(context.Background(), "tasks/x.md")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestListTasks_SkipsMalformed(t *testing.T) {
	svc, store := newTestService(t)
	for name, text := range map[string]string{
		"a.md": taskText("A", "ready", ""),
		"b.md": taskText("B", "inbox", ""),
		"c.md": taskText("C", "done", "completed-at: 2025-01-10\n"),
		"d.md": "not a document\n",
	} {
		if err := store.Write("tasks/"+name, []byte(text)); err != nil {
			t.Fatal(err)
		}
	}

	tasks, err := svc.ListTasks(context.Background(), filter.TaskFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 3 {
		t.Errorf("len = %d, want 3 (malformed file dropped)", len(tasks))
	}
	for i := 1; i < len(tasks); i++ {
		if tasks[i-1].Path > tasks[i].Path {
			t.Error("tasks not sorted by path")
		}
	}
}

func TestListTasks_FilterApplied(t *testing.T) {
	svc, store := newTestService(t)
	if err := store.Write("tasks/a.md", []byte(taskText("A", "ready", ""))); err != nil {
		t.Fatal(err)
	}
	if err := store.Write("tasks/b.md", []byte(taskText("B", "done", "completed-at: 2025-01-10\n"))); err != nil {
		t.Fatal(err)
	}

	tasks, err := svc.ListTasks(context.Background(), filter.Inbox().WithStatus(models.StatusReady))
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Path != "tasks/a.md" {
		t.Errorf("tasks = %v", tasks)
	}
}

func TestListTasks_ArchiveOptIn(t *testing.T) {
	svc, store := newTestService(t)
	if err := store.Write("tasks/a.md", []byte(taskText("A", "ready", ""))); err != nil {
		t.Fatal(err)
	}
	if err := store.Write("tasks/archive/old.md", []byte(taskText("Old", "done", "completed-at: 2024-12-01\n"))); err != nil {
		t.Fatal(err)
	}

	tasks, err := svc.ListTasks(context.Background(), filter.TaskFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 {
		t.Errorf("len = %d, want 1 without archive", len(tasks))
	}

	tasks, err = svc.ListTasks(context.Background(), (filter.TaskFilter{}).WithArchived())
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Errorf("len = %d, want 2 with archive", len(tasks))
	}
}

func TestListProjects_TypedOnly(t *testing.T) {
	svc, store := newTestService(t)
	docs := map[string]string{
		"projects/real.md":  "---\ntitle: Real\ncreated-at: 2025-01-01\nupdated-at: 2025-01-01\ntype: project\n---\n",
		"projects/stray.md": "---\ntitle: Stray\ncreated-at: 2025-01-01\nupdated-at: 2025-01-01\ntype: note\n---\n",
	}
	for p, text := range docs {
		if err := store.Write(p, []byte(text)); err != nil {
			t.Fatal(err)
		}
	}

	projects, err := svc.ListProjects(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 || projects[0].Path != "projects/real.md" {
		t.Errorf("projects = %v", projects)
	}
}

func TestValidateTask(t *testing.T) {
	svc, _ := newTestService(t)
	completed, _ := models.ParseDateValue("2025-01-10")

	done := &models.Task{Path: "tasks/x.md", Status: models.StatusDone}
	if _, err := svc.ValidateTask(done); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("done without completed-at: err = %v, want ErrValidation", err)
	}

	openWithStamp := &models.Task{Path: "tasks/x.md", Status: models.StatusReady, CompletedAt: &completed}
	if _, err := svc.ValidateTask(openWithStamp); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("open with completed-at: err = %v, want ErrValidation", err)
	}

	cancelled := &models.Task{Path: "tasks/x.md", Status: models.StatusCancelled, CompletedAt: &completed}
	if _, err := svc.ValidateTask(cancelled); err != nil {
		t.Errorf("cancelled with completed-at should pass: %v", err)
	}

	multi := &models.Task{Path: "tasks/x.md", Status: models.StatusReady, ProjectCount: 3}
	warnings, err := svc.ValidateTask(multi)
	if err != nil {
		t.Errorf("multi-project is a warning, not an error: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "3 projects") {
		t.Errorf("warnings = %v", warnings)
	}
}
