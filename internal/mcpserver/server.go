// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes whiteboard tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/erland/pwa-whiteboard-sub000/internal/apperr"
	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/boardservice"
	"github.com/erland/pwa-whiteboard-sub000/internal/engine"
	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
	"github.com/erland/pwa-whiteboard-sub000/internal/idgen"
	"github.com/erland/pwa-whiteboard-sub000/internal/shapes"
)

// Server wraps the MCP server with whiteboard tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *boardservice.Service
	newID idgen.Generator
}

// New creates a new MCP server with all board tools registered.
func New(svc *boardservice.Service, version string) *Server {
	s := &Server{svc: svc, newID: idgen.Default}

	s.mcp = server.NewMCPServer(
		"Whiteboard",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_boards",
		mcp.WithDescription("List boards, newest first."),
		mcp.WithString("boardType", mcp.Description("Optional filter: advanced, freehand or mindmap")),
	), s.listBoards)

	s.mcp.AddTool(mcp.NewTool("get_board",
		mcp.WithDescription("Read a board's metadata and objects as JSON."),
		mcp.WithString("boardId", mcp.Required(), mcp.Description("Board id")),
	), s.getBoard)

	s.mcp.AddTool(mcp.NewTool("create_board",
		mcp.WithDescription("Create an empty board."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Board name")),
		mcp.WithString("boardType", mcp.Description("advanced (default), freehand or mindmap")),
	), s.createBoard)

	s.mcp.AddTool(mcp.NewTool("add_shape",
		mcp.WithDescription("Add a shape to a board. Read "+ObjectFormatURI+" for the object model."),
		mcp.WithString("boardId", mcp.Required(), mcp.Description("Board id")),
		mcp.WithString("type", mcp.Required(), mcp.Description("rectangle, roundedRect, ellipse, diamond, stickyNote, text or line")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("X position")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Y position")),
		mcp.WithNumber("width", mcp.Description("Width (box shapes)")),
		mcp.WithNumber("height", mcp.Description("Height (box shapes)")),
		mcp.WithNumber("x2", mcp.Description("End X (line)")),
		mcp.WithNumber("y2", mcp.Description("End Y (line)")),
		mcp.WithString("text", mcp.Description("Text content (optional)")),
		mcp.WithString("fillColor", mcp.Description("Fill color hex (optional, e.g. #3b82f6)")),
		mcp.WithString("strokeColor", mcp.Description("Stroke color hex (optional)")),
	), s.addShape)

	s.mcp.AddTool(mcp.NewTool("update_shape",
		mcp.WithDescription("Patch properties of a shape."),
		mcp.WithString("boardId", mcp.Required(), mcp.Description("Board id")),
		mcp.WithString("objectId", mcp.Required(), mcp.Description("Object id")),
		mcp.WithString("patchJSON", mcp.Required(), mcp.Description("JSON object with the fields to change")),
	), s.updateShape)

	s.mcp.AddTool(mcp.NewTool("delete_shape",
		mcp.WithDescription("Remove a shape from a board. Undoable."),
		mcp.WithString("boardId", mcp.Required(), mcp.Description("Board id")),
		mcp.WithString("objectId", mcp.Required(), mcp.Description("Object id")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.deleteShape)

	s.mcp.AddTool(mcp.NewTool("connect_shapes",
		mcp.WithDescription("Join two shapes with a connector that follows them when they move."),
		mcp.WithString("boardId", mcp.Required(), mcp.Description("Board id")),
		mcp.WithString("fromId", mcp.Required(), mcp.Description("Source shape id")),
		mcp.WithString("toId", mcp.Required(), mcp.Description("Target shape id")),
		mcp.WithString("fromPort", mcp.Description("Optional port on the source: center, top, right, bottom, left")),
		mcp.WithString("toPort", mcp.Description("Optional port on the target")),
		mcp.WithBoolean("arrow", mcp.Description("Draw an arrowhead at the target end")),
	), s.connectShapes)

	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last change on a board."),
		mcp.WithString("boardId", mcp.Required(), mcp.Description("Board id")),
	), s.undo)

	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone change on a board."),
		mcp.WithString("boardId", mcp.Required(), mcp.Description("Board id")),
	), s.redo)

	s.mcp.AddTool(mcp.NewTool("search_boards",
		mcp.WithDescription("Search board names and the text of text shapes and sticky notes."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchBoards)

	s.mcp.AddResource(
		mcp.NewResource(ObjectFormatURI, "Object Format",
			mcp.WithResourceDescription("Board object model, connector attachments and board type rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readObjectFormatResource,
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

const (
	defaultShapeW = 160
	defaultShapeH = 100
)

func boolPtr(b bool) *bool { return &b }

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("board not found"), nil
	}
	return mcp.NewToolResultError(err.Error()), nil
}

func (s *Server) openBoard(ctx context.Context, req mcp.CallToolRequest) (*engine.Engine, error) {
	id, err := req.RequireString("boardId")
	if err != nil {
		return nil, err
	}
	return s.svc.Open(ctx, id)
}

func (s *Server) listBoards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, _, err := s.svc.ListBoards(ctx, 500, 0, req.GetString("boardType", ""))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(items)
}

func (s *Server) getBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := s.openBoard(ctx, req)
	if err != nil {
		return errorResult(err)
	}
	doc := e.State()
	return jsonResult(map[string]any{
		"meta":    doc.Meta,
		"objects": doc.Objects,
	})
}

func (s *Server) createBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.CreateBoard(ctx, name, board.BoardType(req.GetString("boardType", "")))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(doc.Meta)
}

// apply runs a local event and returns the resulting object, if any.
func (s *Server) apply(e *engine.Engine, ev board.Event, objectID string) (*mcp.CallToolResult, error) {
	applied, err := e.ApplyEvent(ev)
	if err != nil {
		return errorResult(err)
	}
	if !applied {
		return mcp.NewToolResultError("no change: the board type does not allow it or the target is missing"), nil
	}
	if obj, ok := e.State().Object(objectID); ok {
		return jsonResult(obj)
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s", ev.Type, objectID)), nil
}

func (s *Server) addShape(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := s.openBoard(ctx, req)
	if err != nil {
		return errorResult(err)
	}
	typ, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	st := board.ShapeType(typ)
	if !st.Known() || st == board.Connector || st == board.Freehand {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported shape type %q", typ)), nil
	}
	x, errX := req.RequireFloat("x")
	y, errY := req.RequireFloat("y")
	if err := errors.Join(errX, errY); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	obj := board.Object{
		ID:          s.newID(),
		Type:        st,
		X:           x,
		Y:           y,
		Text:        req.GetString("text", ""),
		FillColor:   req.GetString("fillColor", ""),
		StrokeColor: req.GetString("strokeColor", ""),
	}
	if st == board.Line {
		obj.X2, obj.Y2 = req.GetFloat("x2", x+defaultShapeW), req.GetFloat("y2", y)
	} else {
		obj.Width, obj.Height = req.GetFloat("width", defaultShapeW), req.GetFloat("height", defaultShapeH)
	}
	if err := obj.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.apply(e, board.NewObjectCreated(e.BoardID(), obj), obj.ID)
}

func (s *Server) updateShape(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := s.openBoard(ctx, req)
	if err != nil {
		return errorResult(err)
	}
	objectID, err := req.RequireString("objectId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("patchJSON")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var patch board.Patch
	if err := json.Unmarshal([]byte(raw), &patch); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid patchJSON: %v", err)), nil
	}
	return s.apply(e, board.NewObjectUpdated(e.BoardID(), objectID, patch), objectID)
}

func (s *Server) deleteShape(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := s.openBoard(ctx, req)
	if err != nil {
		return errorResult(err)
	}
	objectID, err := req.RequireString("objectId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.apply(e, board.NewObjectDeleted(e.BoardID(), objectID), objectID)
}

// endpoint attaches to port when given, otherwise to the side of o facing
// toward.
func endpoint(o board.Object, port string, toward geom.Point, env shapes.Env) board.Endpoint {
	if port != "" {
		return board.Endpoint{ObjectID: o.ID, Attachment: board.PortAttachment(port)}
	}
	return board.Endpoint{
		ObjectID:   o.ID,
		Attachment: shapes.PickAttachment(o, toward, geom.DefaultViewport(), nil, env),
	}
}

func (s *Server) connectShapes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := s.openBoard(ctx, req)
	if err != nil {
		return errorResult(err)
	}
	fromID, errF := req.RequireString("fromId")
	toID, errT := req.RequireString("toId")
	if err := errors.Join(errF, errT); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if fromID == toID {
		return mcp.NewToolResultError("a connector must join two different shapes"), nil
	}

	doc := e.State()
	env := shapes.Env{Objects: doc.Objects}
	from, okF := doc.Object(fromID)
	to, okT := doc.Object(toID)
	if !okF || !okT {
		return mcp.NewToolResultError("both shapes must exist"), nil
	}
	if !shapes.Connectable(from.Type) || !shapes.Connectable(to.Type) {
		return mcp.NewToolResultError("shape cannot take connectors"), nil
	}
	fb, _ := shapes.BoundingBox(from, env)
	tb, _ := shapes.BoundingBox(to, env)

	conn := board.Object{
		ID:       s.newID(),
		Type:     board.Connector,
		From:     ptr(endpoint(from, req.GetString("fromPort", ""), tb.Center(), env)),
		To:       ptr(endpoint(to, req.GetString("toPort", ""), fb.Center(), env)),
		ArrowEnd: board.ArrowNone,
	}
	if req.GetBool("arrow", false) {
		conn.ArrowEnd = board.ArrowHead
	}
	return s.apply(e, board.NewObjectCreated(doc.Meta.ID, conn), conn.ID)
}

func ptr[T any](v T) *T { return &v }

func (s *Server) undo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := s.openBoard(ctx, req)
	if err != nil {
		return errorResult(err)
	}
	if !e.Undo() {
		return mcp.NewToolResultText("nothing to undo"), nil
	}
	return mcp.NewToolResultText("undone"), nil
}

func (s *Server) redo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := s.openBoard(ctx, req)
	if err != nil {
		return errorResult(err)
	}
	if !e.Redo() {
		return mcp.NewToolResultText("nothing to redo"), nil
	}
	return mcp.NewToolResultText("redone"), nil
}

func (s *Server) searchBoards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(results)
}

func (s *Server) readObjectFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ObjectFormatURI,
			MIMEType: "text/markdown",
			Text:     ObjectFormatContract,
		},
	}, nil
}
