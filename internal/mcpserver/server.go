// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Dagaz tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/dagaz/internal/docservice"
	"github.com/starford/dagaz/internal/filter"
	"github.com/starford/dagaz/internal/index"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/parser"
	"github.com/starford/dagaz/internal/resolve"
	"github.com/starford/dagaz/internal/vault"
)

// Server wraps the MCP server with Dagaz tools.
type Server struct {
	mcp   *server.MCPServer
	docs  *docservice.Service
	store vault.Provider
	db    *index.DB
}

// New creates a new MCP server with all Dagaz tools registered.
func New(docs *docservice.Service, store vault.Provider, db *index.DB) *Server {
	s := &Server{docs: docs, store: store, db: db}

	s.mcp = server.NewMCPServer(
		"Dagaz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks, optionally narrowed by status or a built-in view. "+
			"Views: inbox, overdue, available, due-by (the last three need a date)."),
		mcp.WithString("status", mcp.Description("Comma-separated statuses (inbox, ready, started, done, cancelled)")),
		mcp.WithString("view", mcp.Description("Built-in view name")),
		mcp.WithString("date", mcp.Description("Reference date for overdue/available/due-by, e.g. 2025-01-20")),
	), s.listTasks)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the raw text of a task, project, or area document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. tasks/todo.md)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("create_task",
		mcp.WithDescription("Create a new task document. Content MUST follow the canonical "+
			"document format (metadata block between --- fences, then the Markdown body). "+
			"Read the contract first via the get_document_contract tool or the "+
			"dagaz://document-format resource."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Bare filename for the new task (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Document text following the Dagaz format contract")),
	), s.createTask)

	s.mcp.AddTool(mcp.NewTool("complete_task",
		mcp.WithDescription("Mark a task done and stamp its completion time."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the task")),
		mcp.WithString("when", mcp.Description("Completion date or datetime (defaults to now)")),
	), s.completeTask)

	s.mcp.AddTool(mcp.NewTool("tasks_in_project",
		mcp.WithDescription("List the tasks that reference the given project. Dangling or "+
			"ambiguous references are reported as warnings, never as errors."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the project")),
	), s.tasksInProject)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through document titles and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("get_document_contract",
		mcp.WithDescription("Returns the canonical Dagaz document format contract. "+
			"Call this before creating or updating documents to ensure correct structure."),
	), s.getDocumentContract)

	// Resource: document format contract.
	s.mcp.AddResource(
		mcp.NewResource("dagaz://document-format", "Document Format Contract",
			mcp.WithResourceDescription("Canonical document format that all tasks, projects, and areas must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var f filter.TaskFilter

	if view, err := req.RequireString("view"); err == nil && view != "" {
		switch view {
		case "inbox":
			f = filter.Inbox()
		case "overdue", "available", "due-by":
			dateStr, dateErr := req.RequireString("date")
			if dateErr != nil {
				return mcp.NewToolResultError(fmt.Sprintf("view %s requires a date", view)), nil
			}
			d, parseErr := models.ParseDateValue(dateStr)
			if parseErr != nil {
				return mcp.NewToolResultError(parseErr.Error()), nil
			}
			switch view {
			case "overdue":
				f = filter.Overdue(d)
			case "available":
				f = filter.Available(d)
			case "due-by":
				f = filter.DueBy(d)
			}
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown view %q", view)), nil
		}
	}

	if statusStr, err := req.RequireString("status"); err == nil && statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			st, parseErr := models.ParseTaskStatus(strings.TrimSpace(part))
			if parseErr != nil {
				return mcp.NewToolResultError(parseErr.Error()), nil
			}
			f = f.WithStatus(st)
		}
	}

	tasks, err := s.docs.ListTasks(ctx, f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	type row struct {
		Path   string `json:"path"`
		Title  string `json:"title"`
		Status string `json:"status"`
		Due    string `json:"due,omitempty"`
	}
	rows := make([]row, len(tasks))
	for i, t := range tasks {
		rows[i] = row{Path: t.Path, Title: t.Title, Status: string(t.Status)}
		if t.Due != nil {
			rows[i].Due = t.Due.String()
		}
	}
	out, _ := json.MarshalIndent(rows, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Parse before writing so a malformed document is rejected with the
	// parser's diagnostic instead of landing on disk.
	t, err := parser.ParseTask(filename, []byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	created, err := s.docs.CreateTask(ctx, filename, t)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", created.Path)), nil
}

func (s *Server) completeTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	when := models.Now()
	if whenStr, whenErr := req.RequireString("when"); whenErr == nil && whenStr != "" {
		if when, err = models.ParseDateValue(whenStr); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	t, err := s.docs.CompleteTask(ctx, path, when)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("completed: %s at %s", t.Path, t.CompletedAt.String())), nil
}

func (s *Server) tasksInProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	proj, err := s.docs.GetProject(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap, err := resolve.NewSession(s.store, s.docs.Layout()).Snapshot(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tasks, warnings := snap.TasksInProject(proj)

	var b strings.Builder
	for _, t := range tasks {
		fmt.Fprintf(&b, "%s\t%s\t%s\n", t.Path, t.Status, t.Title)
	}
	for _, w := range warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}
	if b.Len() == 0 {
		return mcp.NewToolResultText("no tasks in project"), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getDocumentContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormatContract), nil
}

func (s *Server) readDocumentFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "dagaz://document-format",
			MIMEType: "text/markdown",
			Text:     DocumentFormatContract,
		},
	}, nil
}
