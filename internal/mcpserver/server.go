// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes TaskFlow tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/taskflowhq/taskflow/internal/storage"
	"github.com/taskflowhq/taskflow/internal/workspace"
)

// Server wraps the MCP server with TaskFlow tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *workspace.Service
	store storage.Provider
}

// New creates a new MCP server with all TaskFlow tools registered.
func New(svc *workspace.Service, store storage.Provider) *Server {
	s := &Server{svc: svc, store: store}

	s.mcp = server.NewMCPServer(
		"TaskFlow",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_tasks",
		mcp.WithDescription("Full-text search through task file content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchTasks)

	s.mcp.AddTool(mcp.NewTool("read_file",
		mcp.WithDescription("Read the full content of a .mdc task file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the file (e.g. tasks/plan.mdc)")),
	), s.readFile)

	s.mcp.AddTool(mcp.NewTool("create_file",
		mcp.WithDescription("Create a new .mdc task file at the given path. Explicit content is "+
			"validated and written as-is; without content a template is scaffolded instead. "+
			"Files follow the canonical format (YAML frontmatter with alwaysApply, "+
			"task checkboxes under level-2 headings). Read the contract first via "+
			"the get_file_contract tool or the taskflow://file-format resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new file (must end with .mdc)")),
		mcp.WithString("content", mcp.Description("Full file content including frontmatter (takes precedence over template)")),
		mcp.WithString("template", mcp.Description("Template kind: task (default), documentation, or reference")),
	), s.createFile)

	s.mcp.AddTool(mcp.NewTool("get_file_contract",
		mcp.WithDescription("Returns the canonical TaskFlow file format contract. "+
			"Call this before creating or editing task files to ensure correct structure."),
	), s.getFileContract)

	s.mcp.AddTool(mcp.NewTool("list_files",
		mcp.WithDescription("List all task files or files in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listFiles)

	s.mcp.AddTool(mcp.NewTool("backup_file",
		mcp.WithDescription("Create a timestamped backup copy of a task file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the file to back up")),
	), s.backupFile)

	s.mcp.AddTool(mcp.NewTool("restore_backup",
		mcp.WithDescription("Restore a task file from its newest backup copy."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the file to restore")),
	), s.restoreBackup)

	s.mcp.AddTool(mcp.NewTool("list_backups",
		mcp.WithDescription("List backup copies of a task file, newest first."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the file to list backups for")),
	), s.listBackups)

	s.mcp.AddTool(mcp.NewTool("workspace_summary",
		mcp.WithDescription("Aggregate task counts and status distribution across the workspace."),
	), s.workspaceSummary)

	// Resource: file format contract.
	s.mcp.AddResource(
		mcp.NewResource("taskflow://file-format", "File Format Contract",
			mcp.WithResourceDescription("Canonical .mdc task file format that all files must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFileFormatResource,
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

func (s *Server) searchTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

func (s *Server) createFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	template := ""
	if t, tErr := req.RequireString("template"); tErr == nil {
		template = t
	}
	content := ""
	if c, cErr := req.RequireString("content"); cErr == nil {
		content = c
	}

	f, err := s.svc.CreateFile(ctx, path, template, content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", f.FilePath)), nil
}

func (s *Server) listFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	metas, err := s.store.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) backupFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	info, err := s.svc.BackupFile(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !info.Success {
		return mcp.NewToolResultError(info.Error), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("backed up to: %s", info.BackupPath)), nil
}

func (s *Server) restoreBackup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.RestoreBackup(ctx, path, ""); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("restored: %s", path)), nil
}

func (s *Server) listBackups(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entries, err := s.svc.ListBackups(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("no backups found"), nil
	}
	out, _ := json.MarshalIndent(entries, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) workspaceSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := s.svc.Summary(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(summary, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getFileContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FileFormatContract), nil
}

func (s *Server) readFileFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "taskflow://file-format",
			MIMEType: "text/markdown",
			Text:     FileFormatContract,
		},
	}, nil
}
