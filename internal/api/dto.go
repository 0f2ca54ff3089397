package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/samber/lo"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
	"github.com/erland/pwa-whiteboard-sub000/internal/interact"
	"github.com/erland/pwa-whiteboard-sub000/internal/models"
)

// CreateBoardRequest is the request body for creating a board.
type CreateBoardRequest struct {
	Name      string `json:"name" example:"Sprint planning"`
	BoardType string `json:"boardType,omitempty" example:"mindmap"`
}

// Validate checks the request.
func (r CreateBoardRequest) Validate() error {
	types := lo.Map(board.BoardTypes, func(t board.BoardType, _ int) any { return string(t) })
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(0, 200)),
		validation.Field(&r.BoardType, validation.In(types...)),
	)
}

// BoardDetail is a board without its undo history.
type BoardDetail struct {
	Meta              board.Meta     `json:"meta"`
	Objects           []board.Object `json:"objects"`
	SelectedObjectIDs []string       `json:"selectedObjectIds"`
	Viewport          geom.Viewport  `json:"viewport"`
	CanUndo           bool           `json:"canUndo"`
	CanRedo           bool           `json:"canRedo"`
}

func boardDetail(doc board.Document) BoardDetail {
	return BoardDetail{
		Meta:              doc.Meta,
		Objects:           nonNilSlice(doc.Objects),
		SelectedObjectIDs: nonNilSlice(doc.SelectedObjectIDs),
		Viewport:          doc.Viewport,
		CanUndo:           doc.CanUndo(),
		CanRedo:           doc.CanRedo(),
	}
}

// BoardListResponse wraps paginated board listings.
type BoardListResponse struct {
	Boards []models.BoardSummary `json:"boards" validate:"required"`
	Total  int                   `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.SearchHit `json:"results" validate:"required"`
}

// EventLogResponse wraps a page of the board event log.
type EventLogResponse struct {
	Events []models.LoggedEvent `json:"events" validate:"required"`
}

// ApplyResponse reports whether an action changed the board.
type ApplyResponse struct {
	Applied bool `json:"applied"`
}

// ViewportRequest replaces the board viewport.
type ViewportRequest struct {
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Zoom    float64 `json:"zoom" example:"1"`
}

// Validate checks the request.
func (r ViewportRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Zoom, validation.Required, validation.Min(0.01), validation.Max(100.0)),
	)
}

// TransientRequest carries a live, unsaved patch.
type TransientRequest struct {
	ObjectID string      `json:"objectId"`
	Patch    board.Patch `json:"patch"`
}

// Validate checks the request.
func (r TransientRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ObjectID, validation.Required),
	)
}

// ToolRequest switches tool and optionally the drawing style.
type ToolRequest struct {
	Tool  string       `json:"tool" example:"rectangle"`
	Style *board.Style `json:"style,omitempty"`
}

// Validate checks the request.
func (r ToolRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Tool, validation.Required),
	)
}

// ToolResponse echoes the active tool.
type ToolResponse struct {
	Tool string `json:"tool"`
}

// Pointer phases.
const (
	PointerDown   = "down"
	PointerMove   = "move"
	PointerUp     = "up"
	PointerLeave  = "leave"
	PointerCancel = "cancel"
)

// PointerRequest is one pointer sample in canvas pixels.
type PointerRequest struct {
	Phase string  `json:"phase" example:"down"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Validate checks the request.
func (r PointerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Phase, validation.Required,
			validation.In(PointerDown, PointerMove, PointerUp, PointerLeave, PointerCancel)),
	)
}

// PointerResponse is the gesture state after a pointer sample.
type PointerResponse struct {
	Output  interact.Output  `json:"output"`
	Gesture interact.Machine `json:"gesture"`
}

// PasteRequest optionally gives the canvas size used to centre pastes from
// another board.
type PasteRequest struct {
	CanvasWidth  float64 `json:"canvasWidth,omitempty"`
	CanvasHeight float64 `json:"canvasHeight,omitempty"`
}

func (r PasteRequest) canvas() *geom.Size {
	if r.CanvasWidth <= 0 || r.CanvasHeight <= 0 {
		return nil
	}
	return &geom.Size{Width: r.CanvasWidth, Height: r.CanvasHeight}
}

// PasteResponse lists the created object ids.
type PasteResponse struct {
	Created []string `json:"created"`
}

// CopyResponse reports whether anything was copied.
type CopyResponse struct {
	Copied bool `json:"copied"`
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
