// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes pastename tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/pastename/internal/journal"
	"github.com/starford/pastename/internal/models"
	"github.com/starford/pastename/internal/paste"
	"github.com/starford/pastename/internal/renamer"
	"github.com/starford/pastename/internal/settings"
	"github.com/starford/pastename/internal/workspace"
)

// TemplateSyntaxURI identifies the template syntax resource.
const TemplateSyntaxURI = "pastename://template-syntax"

// Deps are the services the tools operate on.
type Deps struct {
	Settings  *settings.Store
	Workspace *workspace.Service
	Renamer   *renamer.Service
	Journal   journal.Store
	Paste     *paste.Saver
}

// Server wraps the MCP server with pastename tools.
type Server struct {
	mcp  *server.MCPServer
	deps Deps
}

// New creates a new MCP server with all tools registered.
func New(deps Deps, version string) *Server {
	s := &Server{deps: deps}

	s.mcp = server.NewMCPServer(
		"pastename",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_settings",
		mcp.WithDescription("Return the current rename template."),
	), s.getSettings)

	s.mcp.AddTool(mcp.NewTool("set_template",
		mcp.WithDescription("Replace the rename template used for pasted images. "+
			"Read the pastename://template-syntax resource or call get_template_syntax first."),
		mcp.WithString("template", mcp.Required(), mcp.Description("New template, e.g. {{fileName}}-{{DATE:YYYYMMDDHHmmss}}")),
	), s.setTemplate)

	s.mcp.AddTool(mcp.NewTool("get_template_syntax",
		mcp.WithDescription("Returns the placeholder and date-format reference for rename templates."),
	), s.getTemplateSyntax)

	s.mcp.AddTool(mcp.NewTool("set_active_document",
		mcp.WithDescription("Report which note is focused in the editor and where the cursor is. "+
			"Omit line to mark the note as open without an editor."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path of the note (must end with .md)")),
		mcp.WithNumber("line", mcp.Description("Zero-based cursor line")),
		mcp.WithNumber("ch", mcp.Description("Zero-based cursor column")),
	), s.setActiveDocument)

	s.mcp.AddTool(mcp.NewTool("clear_active_document",
		mcp.WithDescription("Forget the focused note."),
	), s.clearActiveDocument)

	s.mcp.AddTool(mcp.NewTool("preview_name",
		mcp.WithDescription("Show the name a pasted image would get for the active note, without renaming anything."),
		mcp.WithString("ext", mcp.Required(), mcp.Description("Image extension, e.g. png")),
		mcp.WithString("template", mcp.Description("Optional template to try instead of the saved one")),
	), s.previewName)

	s.mcp.AddTool(mcp.NewTool("rename_image",
		mcp.WithDescription("Rename a pasted image now and update its link on the active note's cursor line."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path of the image")),
	), s.renameImage)

	s.mcp.AddTool(mcp.NewTool("list_activity",
		mcp.WithDescription("List recent rename notices, newest first."),
		mcp.WithNumber("limit", mcp.Description("Max notices (default 50)")),
		mcp.WithString("level", mcp.Description("Filter by level: info, warn or error")),
	), s.listActivity)

	s.mcp.AddTool(mcp.NewTool("paste_image",
		mcp.WithDescription("Paste an image into the vault as if from the clipboard. The embed is inserted "+
			"at the active cursor and the watcher renames the file with the current template."),
		mcp.WithString("data", mcp.Required(), mcp.Description("Image as a base64 data URI (data:image/png;base64,...)")),
	), s.pasteImage)

	// Resource: template syntax.
	s.mcp.AddResource(
		mcp.NewResource(TemplateSyntaxURI, "Template Syntax",
			mcp.WithResourceDescription("Placeholders and date tokens accepted in rename templates."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTemplateSyntaxResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) getSettings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.deps.Settings.Get()), nil
}

func (s *Server) setTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tmpl, err := req.RequireString("template")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	updated, err := s.deps.Settings.SetTemplate(tmpl)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("template set: %s", updated.Template)), nil
}

func (s *Server) getTemplateSyntax(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TemplateSyntax), nil
}

func (s *Server) readTemplateSyntaxResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      TemplateSyntaxURI,
			MIMEType: "text/markdown",
			Text:     TemplateSyntax,
		},
	}, nil
}

func (s *Server) setActiveDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	focus := workspace.Focus{Path: path}
	if line := req.GetInt("line", -1); line >= 0 {
		focus.Cursor = &models.Cursor{Line: line, Ch: req.GetInt("ch", 0)}
	}
	doc, err := s.deps.Workspace.SetFocus(ctx, focus)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(doc), nil
}

func (s *Server) clearActiveDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.deps.Workspace.ClearFocus()
	return mcp.NewToolResultText("active document cleared"), nil
}

func (s *Server) previewName(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ext, err := req.RequireString("ext")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := s.deps.Renamer.Preview(ctx, req.GetString("template", ""), ext)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(name), nil
}

func (s *Server) renameImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.deps.Renamer.RenamePath(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) listActivity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notices, err := s.deps.Journal.Recent(ctx, req.GetInt("limit", journal.DefaultLimit), req.GetString("level", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(notices) == 0 {
		return mcp.NewToolResultText("no activity"), nil
	}
	return jsonResult(notices), nil
}
