package api

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/boardservice"
	"github.com/erland/pwa-whiteboard-sub000/internal/engine"
	"github.com/erland/pwa-whiteboard-sub000/internal/export"
	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
	"github.com/erland/pwa-whiteboard-sub000/internal/idgen"
	"github.com/erland/pwa-whiteboard-sub000/internal/interact"
)

// Handler holds API route handlers.
type Handler struct {
	svc BoardService
}

// NewHandler creates a new Handler.
func NewHandler(svc BoardService) *Handler {
	return &Handler{svc: svc}
}

func boardID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// engineFor opens the board named in the URL, writing the error response on
// failure.
func (h *Handler) engineFor(w http.ResponseWriter, r *http.Request) (*engine.Engine, bool) {
	e, err := h.svc.Open(r.Context(), boardID(r))
	if err != nil {
		writeError(w, "open board", err)
		return nil, false
	}
	return e, true
}

// ListBoards handles GET /api/boards.
//
//	@Summary		List boards with optional pagination and type filter
//	@Tags			boards
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			type	query		string	false	"Board type"	Enums(advanced, freehand, mindmap)
//	@Success		200		{object}	BoardListResponse
//	@Security		BearerAuth
//	@Router			/boards [get]
func (h *Handler) ListBoards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListBoards(r.Context(), limit, offset, q.Get("type"))
	if err != nil {
		writeError(w, "list boards", err)
		return
	}
	writeJSON(w, http.StatusOK, BoardListResponse{Boards: nonNilSlice(items), Total: total})
}

// CreateBoard handles POST /api/boards.
//
//	@Summary		Create an empty board
//	@Tags			boards
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateBoardRequest	true	"Board to create"
//	@Success		201		{object}	BoardDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards [post]
func (h *Handler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	var req CreateBoardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	doc, err := h.svc.CreateBoard(r.Context(), req.Name, board.BoardType(req.BoardType))
	if err != nil {
		writeError(w, "create board", err)
		return
	}
	writeJSON(w, http.StatusCreated, boardDetail(doc))
}

// GetBoard handles GET /api/boards/{id}.
//
//	@Summary		Get the current state of a board
//	@Tags			boards
//	@Produce		json
//	@Param			id	path		string	true	"Board id"
//	@Success		200	{object}	BoardDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{id} [get]
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Board(r.Context(), boardID(r))
	if err != nil {
		writeError(w, "get board", err)
		return
	}
	writeJSON(w, http.StatusOK, boardDetail(doc))
}

// DeleteBoard handles DELETE /api/boards/{id}.
//
//	@Summary		Delete a board
//	@Tags			boards
//	@Param			id	path	string	true	"Board id"
//	@Success		204	"Board deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{id} [delete]
func (h *Handler) DeleteBoard(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteBoard(r.Context(), boardID(r)); err != nil {
		writeError(w, "delete board", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeEvent reads a board event, filling in id, board and timestamp when
// the client left them out.
func decodeEvent(w http.ResponseWriter, r *http.Request) (board.Event, bool) {
	var ev board.Event
	if !decodeJSON(w, r, &ev) {
		return ev, false
	}
	if ev.ID == "" {
		ev.ID = idgen.New()
	}
	if ev.BoardID == "" {
		ev.BoardID = boardID(r)
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	return ev, true
}

// ApplyEvent handles POST /api/boards/{id}/events.
//
//	@Summary		Apply a local board event
//	@Tags			events
//	@Accept			json
//	@Produce		json
//	@Param			id	path		string	true	"Board id"
//	@Success		200	{object}	ApplyResponse
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{id}/events [post]
func (h *Handler) ApplyEvent(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	ev, ok := decodeEvent(w, r)
	if !ok {
		return
	}
	applied, err := e.ApplyEvent(ev)
	if err != nil {
		writeError(w, "apply event", err)
		return
	}
	writeJSON(w, http.StatusOK, ApplyResponse{Applied: applied})
}

// ApplyRemoteEvent handles POST /api/boards/{id}/remote-events.
//
//	@Summary		Apply an event received from a collaborator
//	@Tags			events
//	@Accept			json
//	@Produce		json
//	@Param			id	path		string	true	"Board id"
//	@Success		200	{object}	ApplyResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{id}/remote-events [post]
func (h *Handler) ApplyRemoteEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := decodeEvent(w, r)
	if !ok {
		return
	}
	applied, err := h.svc.ApplyRemoteEvent(r.Context(), boardID(r), ev)
	if err != nil {
		writeError(w, "apply remote event", err)
		return
	}
	writeJSON(w, http.StatusOK, ApplyResponse{Applied: applied})
}

// EventLog handles GET /api/boards/{id}/events.
//
//	@Summary		Read the board event log
//	@Tags			events
//	@Produce		json
//	@Param			id		path		string	true	"Board id"
//	@Param			after	query		int		false	"Return events after this sequence number"
//	@Param			limit	query		int		false	"Max events"
//	@Success		200		{object}	EventLogResponse
//	@Security		BearerAuth
//	@Router			/boards/{id}/events [get]
func (h *Handler) EventLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	after, _ := strconv.ParseInt(q.Get("after"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))
	events, err := h.svc.Events(r.Context(), boardID(r), after, limit)
	if err != nil {
		writeError(w, "event log", err)
		return
	}
	writeJSON(w, http.StatusOK, EventLogResponse{Events: nonNilSlice(events)})
}

// Undo handles POST /api/boards/{id}/undo.
//
//	@Summary		Undo the last recorded event
//	@Tags			history
//	@Produce		json
//	@Param			id	path		string	true	"Board id"
//	@Success		200	{object}	ApplyResponse
//	@Security		BearerAuth
//	@Router			/boards/{id}/undo [post]
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ApplyResponse{Applied: e.Undo()})
}

// Redo handles POST /api/boards/{id}/redo.
//
//	@Summary		Redo the last undone event
//	@Tags			history
//	@Produce		json
//	@Param			id	path		string	true	"Board id"
//	@Success		200	{object}	ApplyResponse
//	@Security		BearerAuth
//	@Router			/boards/{id}/redo [post]
func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ApplyResponse{Applied: e.Redo()})
}

// SetViewport handles PUT /api/boards/{id}/viewport.
func (h *Handler) SetViewport(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	var req ViewportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	e.SetViewport(geom.Viewport{OffsetX: req.OffsetX, OffsetY: req.OffsetY, Zoom: req.Zoom})
	writeJSON(w, http.StatusOK, e.State().Viewport)
}

// Transient handles POST /api/boards/{id}/transient.
func (h *Handler) Transient(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	var req TransientRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	e.ApplyTransientObjectPatch(req.ObjectID, req.Patch)
	w.WriteHeader(http.StatusNoContent)
}

// SetTool handles PUT /api/boards/{id}/tool.
//
//	@Summary		Switch the active tool
//	@Tags			interaction
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Board id"
//	@Param			body	body		ToolRequest	true	"Tool and optional style"
//	@Success		200		{object}	ToolResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{id}/tool [put]
func (h *Handler) SetTool(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	var req ToolRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := e.SetTool(interact.Tool(req.Tool)); err != nil {
		writeError(w, "set tool", err)
		return
	}
	if req.Style != nil {
		e.SetStyle(*req.Style)
	}
	writeJSON(w, http.StatusOK, ToolResponse{Tool: string(e.Tool())})
}

// Pointer handles POST /api/boards/{id}/pointer.
//
//	@Summary		Feed one pointer sample to the gesture machine
//	@Tags			interaction
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Board id"
//	@Param			body	body		PointerRequest	true	"Pointer sample in canvas pixels"
//	@Success		200		{object}	PointerResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{id}/pointer [post]
func (h *Handler) Pointer(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	var req PointerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	c := geom.Point{X: req.X, Y: req.Y}
	var out interact.Output
	switch req.Phase {
	case PointerDown:
		out = e.PointerDown(c)
	case PointerMove:
		out = e.PointerMove(c)
	case PointerUp:
		out = e.PointerUp(c)
	case PointerLeave:
		out = e.PointerLeave(c)
	case PointerCancel:
		e.CancelGesture()
	}
	writeJSON(w, http.StatusOK, PointerResponse{Output: out, Gesture: e.Gesture()})
}

// Copy handles POST /api/boards/{id}/copy.
func (h *Handler) Copy(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, CopyResponse{Copied: e.CopySelectionToClipboard()})
}

// Paste handles POST /api/boards/{id}/paste.
//
//	@Summary		Paste the shared clipboard onto a board
//	@Tags			clipboard
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Board id"
//	@Param			body	body		PasteRequest	false	"Canvas size for centring"
//	@Success		200		{object}	PasteResponse
//	@Security		BearerAuth
//	@Router			/boards/{id}/paste [post]
func (h *Handler) Paste(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	var req PasteRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	ids, err := e.PasteFromClipboard(req.canvas())
	if err != nil {
		writeError(w, "paste", err)
		return
	}
	writeJSON(w, http.StatusOK, PasteResponse{Created: nonNilSlice(ids)})
}

// Capabilities handles GET /api/boards/{id}/capabilities.
func (h *Handler) Capabilities(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engineFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e.SelectionCapabilities())
}

// Export handles GET /api/boards/{id}/export/{format}.
//
//	@Summary		Render a board as PNG or PDF
//	@Tags			export
//	@Produce		png
//	@Produce		application/pdf
//	@Param			id		path	string	true	"Board id"
//	@Param			format	path	string	true	"Output format"	Enums(png, pdf)
//	@Param			scale	query	number	false	"PNG pixels per world unit"
//	@Success		200
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/boards/{id}/export/{format} [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	opts := export.DefaultOptions()
	if s, err := strconv.ParseFloat(r.URL.Query().Get("scale"), 64); err == nil && s > 0 && s <= 8 {
		opts.Scale = s
	}

	// Render fully before writing so errors can still become JSON.
	var buf bytes.Buffer
	if err := h.svc.Export(r.Context(), boardID(r), format, &buf, opts); err != nil {
		writeError(w, "export", err)
		return
	}
	switch format {
	case boardservice.FormatPNG:
		w.Header().Set("Content-Type", "image/png")
	case boardservice.FormatPDF:
		w.Header().Set("Content-Type", "application/pdf")
	}
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// Search handles GET /api/search.
//
//	@Summary		Search board names and text content
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: nonNilSlice(results)})
}
