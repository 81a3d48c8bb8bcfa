// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes nspace property tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/nspace/internal/apperr"
	"github.com/starford/nspace/internal/calendar"
	"github.com/starford/nspace/internal/models"
	"github.com/starford/nspace/internal/property"
	"github.com/starford/nspace/internal/storage"
)

const ledgerFormatURI = "nspace://ledger-format"

// Server wraps the MCP server with nspace tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *property.Service
	store storage.Provider
}

// New creates a new MCP server with all nspace tools registered.
func New(svc *property.Service, store storage.Provider) *Server {
	s := &Server{svc: svc, store: store}

	s.mcp = server.NewMCPServer(
		"nspace",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	dateArg := mcp.WithString("date", mcp.Description("Reference date YYYY-MM-DD (default: today)"))

	s.mcp.AddTool(mcp.NewTool("list_properties",
		mcp.WithDescription("List properties. With user, only those the user owns, manages or rents."),
		mcp.WithString("user", mcp.Description("Optional user id")),
		dateArg,
	), s.listProperties)

	s.mcp.AddTool(mcp.NewTool("get_property",
		mcp.WithDescription("Get a property with its owners, profile, listing, furnishings and access controls."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Property id")),
	), s.getProperty)

	s.mcp.AddTool(mcp.NewTool("get_rent_status",
		mcp.WithDescription("Rent status of a property: Paid, Due, Late, NA (no active lease) "+
			"or !! (active lease but the rent invoice is missing)."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Property id")),
		dateArg,
	), s.getRentStatus)

	s.mcp.AddTool(mcp.NewTool("get_activity",
		mcp.WithDescription("Activity feed of a property as seen by a user, newest first."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Property id")),
		mcp.WithString("user", mcp.Required(), mcp.Description("Viewing user id")),
		dateArg,
	), s.getActivity)

	s.mcp.AddTool(mcp.NewTool("get_user_roles",
		mcp.WithDescription("Roles (owner, manager, tenant) a user holds on a property."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Property id")),
		mcp.WithString("user", mcp.Required(), mcp.Description("User id")),
		dateArg,
	), s.getUserRoles)

	s.mcp.AddTool(mcp.NewTool("list_ledger_files",
		mcp.WithDescription("List the YAML ledger files the records are imported from."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listLedgerFiles)

	s.mcp.AddTool(mcp.NewTool("read_ledger_file",
		mcp.WithDescription("Read the raw YAML of one ledger file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the ledger file")),
	), s.readLedgerFile)

	s.mcp.AddTool(mcp.NewTool("get_ledger_format",
		mcp.WithDescription("Returns the YAML ledger format. Read it before drafting ledger records."),
	), s.getLedgerFormat)

	s.mcp.AddResource(
		mcp.NewResource(ledgerFormatURI, "Ledger Format",
			mcp.WithResourceDescription("YAML format of nspace ledger files."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLedgerFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// toolError turns a service error into a tool result the model can read.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrInvalidInput):
		return mcp.NewToolResultError(err.Error())
	default:
		return mcp.NewToolResultError("internal error: " + err.Error())
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

// requireArg returns a required string argument, rejecting blank values.
func requireArg(req mcp.CallToolRequest, key string) (string, error) {
	v, err := req.RequireString(key)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%w: %s must not be empty", apperr.ErrInvalidInput, key)
	}
	return v, nil
}

func (s *Server) date(req mcp.CallToolRequest) (time.Time, error) {
	raw := req.GetString("date", "")
	if raw == "" {
		return s.svc.Today(), nil
	}
	d, err := calendar.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", apperr.ErrInvalidInput)
	}
	return d, nil
}

func (s *Server) listProperties(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	today, err := s.date(req)
	if err != nil {
		return toolError(err), nil
	}
	var props []models.Property
	if user := req.GetString("user", ""); user != "" {
		props, err = s.svc.AssociatedProperties(ctx, user, today)
	} else {
		props, err = s.svc.Properties(ctx)
	}
	if err != nil {
		return toolError(err), nil
	}
	if len(props) == 0 {
		return mcp.NewToolResultText("no properties found"), nil
	}
	lines := make([]string, 0, len(props))
	for _, p := range props {
		lines = append(lines, p.ID+"\t"+p.FullStreetAddress())
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getProperty(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireArg(req, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.Property(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	extras, err := s.svc.Extras(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(struct {
		*models.Property
		property.Extras
	}{p, extras}), nil
}

func (s *Server) getRentStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireArg(req, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	today, err := s.date(req)
	if err != nil {
		return toolError(err), nil
	}
	status, err := s.svc.RentStatus(ctx, id, today)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(status), nil
}

func (s *Server) getActivity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireArg(req, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	user, err := requireArg(req, "user")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	today, err := s.date(req)
	if err != nil {
		return toolError(err), nil
	}
	events, err := s.svc.Activity(ctx, id, user, today)
	if err != nil {
		return toolError(err), nil
	}
	if len(events) == 0 {
		return mcp.NewToolResultText("no activity"), nil
	}
	return jsonResult(events), nil
}

func (s *Server) getUserRoles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireArg(req, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	user, err := requireArg(req, "user")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	today, err := s.date(req)
	if err != nil {
		return toolError(err), nil
	}
	roles, err := s.svc.UserRoles(ctx, id, user, today)
	if err != nil {
		return toolError(err), nil
	}
	if len(roles) == 0 {
		return mcp.NewToolResultText("no roles"), nil
	}
	return mcp.NewToolResultText(strings.Join(roles, "\n")), nil
}

func (s *Server) listLedgerFiles(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metas, err := s.store.List(req.GetString("folder", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths := make([]string, 0, len(metas))
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readLedgerFile(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := requireArg(req, "path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !storage.IsLedgerFile(path) {
		return mcp.NewToolResultError(fmt.Sprintf("not a ledger file: %s", path)), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getLedgerFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LedgerFormatContract), nil
}

func (s *Server) readLedgerFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ledgerFormatURI,
			MIMEType: "text/markdown",
			Text:     LedgerFormatContract,
		},
	}, nil
}
