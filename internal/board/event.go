package board

import (
	"encoding/json"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
	"github.com/erland/pwa-whiteboard-sub000/internal/idgen"
)

// EventType tags a board event.
type EventType string

const (
	ObjectCreated    EventType = "objectCreated"
	ObjectUpdated    EventType = "objectUpdated"
	ObjectDeleted    EventType = "objectDeleted"
	SelectionChanged EventType = "selectionChanged"
	ViewportChanged  EventType = "viewportChanged"
)

// Recorded reports whether events of this type belong in undo history.
func (t EventType) Recorded() bool {
	switch t {
	case ObjectCreated, ObjectUpdated, ObjectDeleted:
		return true
	}
	return false
}

// ViewportPatch is a partial viewport.
type ViewportPatch struct {
	OffsetX *float64 `json:"offsetX,omitempty"`
	OffsetY *float64 `json:"offsetY,omitempty"`
	Zoom    *float64 `json:"zoom,omitempty"`
}

// Apply writes the present fields of p over v.
func (p ViewportPatch) Apply(v geom.Viewport) geom.Viewport {
	if p.OffsetX != nil {
		v.OffsetX = *p.OffsetX
	}
	if p.OffsetY != nil {
		v.OffsetY = *p.OffsetY
	}
	if p.Zoom != nil {
		v.Zoom = *p.Zoom
	}
	return v.Normalize()
}

// Event is an immutable, replayable change to a board. Only the payload
// fields matching Type are set.
type Event struct {
	ID        string
	BoardID   string
	Type      EventType
	Timestamp time.Time

	Object      *Object        // objectCreated
	ObjectID    string         // objectUpdated, objectDeleted
	Patch       *Patch         // objectUpdated
	SelectedIDs []string       // selectionChanged
	Viewport    *ViewportPatch // viewportChanged
}

func newEvent(boardID string, t EventType) Event {
	return Event{
		ID:        idgen.New(),
		BoardID:   boardID,
		Type:      t,
		Timestamp: time.Now().UTC(),
	}
}

// NewObjectCreated builds an objectCreated event for obj.
func NewObjectCreated(boardID string, obj Object) Event {
	ev := newEvent(boardID, ObjectCreated)
	o := obj.Clone()
	ev.Object = &o
	return ev
}

// NewObjectUpdated builds an objectUpdated event.
func NewObjectUpdated(boardID, objectID string, patch Patch) Event {
	ev := newEvent(boardID, ObjectUpdated)
	ev.ObjectID = objectID
	p := patch.Clone()
	ev.Patch = &p
	return ev
}

// NewObjectDeleted builds an objectDeleted event.
func NewObjectDeleted(boardID, objectID string) Event {
	ev := newEvent(boardID, ObjectDeleted)
	ev.ObjectID = objectID
	return ev
}

// NewSelectionChanged builds a selectionChanged event.
func NewSelectionChanged(boardID string, ids []string) Event {
	ev := newEvent(boardID, SelectionChanged)
	ev.SelectedIDs = append([]string{}, ids...)
	return ev
}

// NewViewportChanged builds a viewportChanged event setting every field of v.
func NewViewportChanged(boardID string, v geom.Viewport) Event {
	ev := newEvent(boardID, ViewportChanged)
	ev.Viewport = &ViewportPatch{OffsetX: &v.OffsetX, OffsetY: &v.OffsetY, Zoom: &v.Zoom}
	return ev
}

// Validate checks that the payload matching Type is present.
func (e Event) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.ID, validation.Required),
		validation.Field(&e.Type, validation.Required,
			validation.In(ObjectCreated, ObjectUpdated, ObjectDeleted, SelectionChanged, ViewportChanged)),
		validation.Field(&e.Object, validation.When(e.Type == ObjectCreated, validation.Required)),
		validation.Field(&e.ObjectID, validation.When(e.Type == ObjectUpdated || e.Type == ObjectDeleted, validation.Required)),
		validation.Field(&e.Patch, validation.When(e.Type == ObjectUpdated, validation.Required)),
		validation.Field(&e.Viewport, validation.When(e.Type == ViewportChanged, validation.Required)),
	)
}

// wireEvent is the stable JSON shape shared with storage and collaborators.
type wireEvent struct {
	ID        string          `json:"id"`
	BoardID   string          `json:"boardId"`
	Type      EventType       `json:"type"`
	Timestamp json.RawMessage `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

type createdPayload struct {
	Object *Object `json:"object"`
}

type updatedPayload struct {
	ObjectID string `json:"objectId"`
	Patch    *Patch `json:"patch"`
}

type deletedPayload struct {
	ObjectID string `json:"objectId"`
}

type selectionPayload struct {
	SelectedIDs []string `json:"selectedIds"`
}

type viewportPayload struct {
	Patch *ViewportPatch `json:"patch"`
}

// MarshalJSON renders {id, boardId, type, timestamp, payload}.
func (e Event) MarshalJSON() ([]byte, error) {
	var payload any
	switch e.Type {
	case ObjectCreated:
		payload = createdPayload{Object: e.Object}
	case ObjectUpdated:
		payload = updatedPayload{ObjectID: e.ObjectID, Patch: e.Patch}
	case ObjectDeleted:
		payload = deletedPayload{ObjectID: e.ObjectID}
	case SelectionChanged:
		ids := e.SelectedIDs
		if ids == nil {
			ids = []string{}
		}
		payload = selectionPayload{SelectedIDs: ids}
	case ViewportChanged:
		payload = viewportPayload{Patch: e.Viewport}
	default:
		return nil, fmt.Errorf("board: marshal event: unknown type %q", e.Type)
	}
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("board: marshal event payload: %w", err)
	}
	ts, err := json.Marshal(e.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("board: marshal event timestamp: %w", err)
	}
	return json.Marshal(wireEvent{
		ID:        e.ID,
		BoardID:   e.BoardID,
		Type:      e.Type,
		Timestamp: ts,
		Payload:   p,
	})
}

// UnmarshalJSON accepts the wire shape. Timestamps may be RFC 3339 strings
// or epoch milliseconds.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("board: unmarshal event: %w", err)
	}
	out := Event{ID: w.ID, BoardID: w.BoardID, Type: w.Type, Timestamp: parseTimestamp(w.Timestamp)}

	var err error
	switch w.Type {
	case ObjectCreated:
		var p createdPayload
		err = decodePayload(w.Payload, &p)
		out.Object = p.Object
	case ObjectUpdated:
		var p updatedPayload
		err = decodePayload(w.Payload, &p)
		out.ObjectID, out.Patch = p.ObjectID, p.Patch
	case ObjectDeleted:
		var p deletedPayload
		err = decodePayload(w.Payload, &p)
		out.ObjectID = p.ObjectID
	case SelectionChanged:
		var p selectionPayload
		err = decodePayload(w.Payload, &p)
		out.SelectedIDs = p.SelectedIDs
	case ViewportChanged:
		var p viewportPayload
		err = decodePayload(w.Payload, &p)
		out.Viewport = p.Patch
	default:
		return fmt.Errorf("board: unmarshal event: unknown type %q", w.Type)
	}
	if err != nil {
		return fmt.Errorf("board: unmarshal %s payload: %w", w.Type, err)
	}
	*e = out
	return nil
}

func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func parseTimestamp(raw json.RawMessage) time.Time {
	if len(raw) == 0 {
		return time.Time{}
	}
	var t time.Time
	if err := json.Unmarshal(raw, &t); err == nil {
		return t
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return time.UnixMilli(int64(ms)).UTC()
	}
	return time.Time{}
}
