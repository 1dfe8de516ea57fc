package parser

import (
	"errors"
	"testing"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
)

func TestParseTask_Full(t *testing.T) {
	input := []byte("---\n" +
		"title: Buy milk\n" +
		"status: ready\n" +
		"created-at: 2025-01-15\n" +
		"updated-at: 2025-01-15T09:30:00\n" +
		"due: 2025-01-16\n" +
		"projects:\n  - \"[[groceries]]\"\n" +
		"tags:\n  - errand\n" +
		"---\n" +
		"Get the lactose-free kind.\n")

	task, err := ParseTask("tasks/buy-milk.md", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Title != "Buy milk" {
		t.Errorf("title = %q", task.Title)
	}
	if task.Status != models.StatusReady {
		t.Errorf("status = %q", task.Status)
	}
	if task.CreatedAt.HasTime() {
		t.Error("created-at was written as a bare date")
	}
	if !task.UpdatedAt.HasTime() {
		t.Error("updated-at was written as a datetime")
	}
	if task.Due == nil || task.Due.String() != "2025-01-16" {
		t.Errorf("due = %v", task.Due)
	}
	if task.Project == nil || task.Project.Target() != "groceries" {
		t.Errorf("project = %v", task.Project)
	}
	if task.ProjectCount != 1 {
		t.Errorf("ProjectCount = %d, want 1", task.ProjectCount)
	}
	if len(task.Tags) != 1 || task.Tags[0] != "errand" {
		t.Errorf("tags = %v", task.Tags)
	}
	if task.Body != "Get the lactose-free kind.\n" {
		t.Errorf("body = %q", task.Body)
	}
}

func TestParseTask_UnknownFieldsPreserved(t *testing.T) {
	input := []byte("---\n" +
		"title: Call plumber\n" +
		"status: inbox\n" +
		"created-at: 2025-01-15\n" +
		"updated-at: 2025-01-15\n" +
		"priority: high\n" +
		"estimate: 30\n" +
		"---\n")

	task, err := ParseTask("tasks/call.md", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Extra["priority"] != "high" {
		t.Errorf("extra priority = %v", task.Extra["priority"])
	}
	if task.Extra["estimate"] != 30 {
		t.Errorf("extra estimate = %v (%T)", task.Extra["estimate"], task.Extra["estimate"])
	}
}

func TestParseTask_LegacyProjectField(t *testing.T) {
	input := []byte("---\n" +
		"title: Old task\n" +
		"status: ready\n" +
		"created-at: 2024-06-01\n" +
		"updated-at: 2024-06-01\n" +
		"project: \"[[groceries]]\"\n" +
		"---\n")

	task, err := ParseTask("tasks/old.md", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Project == nil || task.Project.Target() != "groceries" {
		t.Errorf("legacy project field not read: %v", task.Project)
	}
	if task.ProjectCount != 1 {
		t.Errorf("ProjectCount = %d", task.ProjectCount)
	}
	if _, ok := task.Extra["project"]; ok {
		t.Error("legacy field leaked into extras")
	}
}

func TestParseTask_ProjectsListWinsOverLegacy(t *testing.T) {
	input := []byte("---\n" +
		"title: Both fields\n" +
		"status: ready\n" +
		"created-at: 2024-06-01\n" +
		"updated-at: 2024-06-01\n" +
		"project: \"[[old]]\"\n" +
		"projects:\n  - \"[[first]]\"\n  - \"[[second]]\"\n" +
		"---\n")

	task, err := ParseTask("tasks/both.md", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Project == nil || task.Project.Target() != "first" {
		t.Errorf("project = %v, want first entry of projects", task.Project)
	}
	if task.ProjectCount != 2 {
		t.Errorf("ProjectCount = %d, want 2", task.ProjectCount)
	}
	if _, ok := task.Extra["project"]; ok {
		t.Error("losing legacy field should drop it, not stash it in extras")
	}
}

func TestParseTask_MissingRequiredFields(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"title", "---\nstatus: inbox\ncreated-at: 2025-01-15\nupdated-at: 2025-01-15\n---\n"},
		{"status", "---\ntitle: X\ncreated-at: 2025-01-15\nupdated-at: 2025-01-15\n---\n"},
		{"created-at", "---\ntitle: X\nstatus: inbox\nupdated-at: 2025-01-15\n---\n"},
		{"updated-at", "---\ntitle: X\nstatus: inbox\ncreated-at: 2025-01-15\n---\n"},
	}
	for _, c := range cases {
		_, err := ParseTask("tasks/x.md", []byte(c.input))
		if !errors.Is(err, apperr.ErrMissingField) {
			t.Errorf("missing %s: err = %v, want ErrMissingField", c.name, err)
		}
	}
}

func TestParseTask_InvalidStatus(t *testing.T) {
	input := []byte("---\ntitle: X\nstatus: later\ncreated-at: 2025-01-15\nupdated-at: 2025-01-15\n---\n")
	_, err := ParseTask("tasks/x.md", input)
	if !errors.Is(err, apperr.ErrInvalidField) {
		t.Errorf("err = %v, want ErrInvalidField", err)
	}
}

func TestParseTask_InvalidDate(t *testing.T) {
	input := []byte("---\ntitle: X\nstatus: inbox\ncreated-at: someday\nupdated-at: 2025-01-15\n---\n")
	_, err := ParseTask("tasks/x.md", input)
	if !errors.Is(err, apperr.ErrInvalidField) {
		t.Errorf("err = %v, want ErrInvalidField", err)
	}
}

func TestParseTask_NoMetadataBlock(t *testing.T) {
	_, err := ParseTask("tasks/x.md", []byte("# Just a heading\n"))
	if !errors.Is(err, apperr.ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}

func TestParseTask_UnterminatedBlock(t *testing.T) {
	_, err := ParseTask("tasks/x.md", []byte("---\ntitle: X\n"))
	if !errors.Is(err, apperr.ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}

func TestParseTask_BodyDelimiterLinesKept(t *testing.T) {
	// Only the second delimiter line closes the block; later ones are body.
	input := []byte("---\ntitle: X\nstatus: inbox\ncreated-at: 2025-01-15\nupdated-at: 2025-01-15\n---\nabove\n---\nbelow\n")
	task, err := ParseTask("tasks/x.md", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Body != "above\n---\nbelow\n" {
		t.Errorf("body = %q", task.Body)
	}
}

func TestParseProject_TypeTag(t *testing.T) {
	input := []byte("---\ntitle: Groceries\ncreated-at: 2025-01-01\nupdated-at: 2025-01-01\ntype: project\narea: \"[[home]]\"\n---\n")
	p, err := ParseProject("projects/groceries.md", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.TypeTag != "project" {
		t.Errorf("type = %q", p.TypeTag)
	}
	if p.Area == nil || p.Area.Target() != "home" {
		t.Errorf("area = %v", p.Area)
	}
}

func TestParseArea_Minimal(t *testing.T) {
	input := []byte("---\ntitle: Home\ncreated-at: 2025-01-01\nupdated-at: 2025-01-01\ntype: area\n---\n")
	a, err := ParseArea("areas/home.md", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Title != "Home" {
		t.Errorf("title = %q", a.Title)
	}
	if a.TypeTag != "area" {
		t.Errorf("type = %q", a.TypeTag)
	}
}

func TestParseTask_UnquotedDateStaysRaw(t *testing.T) {
	// An unquoted date scalar must come through as the typed date value, not
	// be swallowed by yaml's implicit timestamp resolution.
	input := []byte("---\ntitle: X\nstatus: inbox\ncreated-at: 2025-01-15\nupdated-at: 2025-01-15\ndue: 2025-02-01\n---\n")
	task, err := ParseTask("tasks/x.md", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Due == nil || task.Due.HasTime() {
		t.Errorf("due = %v, want bare date", task.Due)
	}
}
