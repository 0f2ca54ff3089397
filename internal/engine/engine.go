// Package engine hosts one open board: it serialises actions onto the
// document reducer, drives the interaction machine, talks to the shared
// clipboard and saves snapshots in the background.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/erland/pwa-whiteboard-sub000/internal/apperr"
	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/clipboard"
	"github.com/erland/pwa-whiteboard-sub000/internal/document"
	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
	"github.com/erland/pwa-whiteboard-sub000/internal/idgen"
	"github.com/erland/pwa-whiteboard-sub000/internal/interact"
	"github.com/erland/pwa-whiteboard-sub000/internal/shapes"
)

// Saver persists document snapshots.
type Saver interface {
	Save(doc board.Document) error
}

// EventHook receives every event recorded from a local action.
type EventHook func(ev board.Event)

// Option configures an Engine.
type Option func(*Engine)

// WithSaver enables background saving.
func WithSaver(s Saver) Option {
	return func(e *Engine) { e.saver = s }
}

// WithClipboard shares a clipboard between engines.
func WithClipboard(h *clipboard.Holder) Option {
	return func(e *Engine) { e.clip = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithIDGenerator replaces the object id generator.
func WithIDGenerator(g idgen.Generator) Option {
	return func(e *Engine) { e.newID = g }
}

// WithClock replaces time.Now for clipboard timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPasteOffset sets the same-board paste step in view pixels.
func WithPasteOffset(px float64) Option {
	return func(e *Engine) { e.pasteOffset = px }
}

// WithLocalEventHook registers a callback for recorded local events, e.g.
// to broadcast them to collaborators.
func WithLocalEventHook(h EventHook) Option {
	return func(e *Engine) { e.onLocal = h }
}

// WithStyle sets the initial drawing style.
func WithStyle(s board.Style) Option {
	return func(e *Engine) { e.style = s }
}

// Engine owns one board document. All methods are safe for concurrent use;
// each action runs to completion before the next starts.
type Engine struct {
	mu      sync.Mutex
	doc     board.Document
	machine interact.Machine
	tool    interact.Tool
	style   board.Style

	clip        *clipboard.Holder
	newID       idgen.Generator
	now         func() time.Time
	pasteOffset float64
	onLocal     EventHook
	log         *slog.Logger

	saver  Saver
	saveCh chan board.Document
	done   chan struct{}
	closed bool
}

// New opens doc in a new engine.
func New(doc board.Document, opts ...Option) *Engine {
	e := &Engine{
		doc:         document.Reduce(board.Document{}, document.ResetAction(doc)),
		machine:     interact.New(),
		tool:        interact.ToolSelect,
		style:       board.DefaultStyle(),
		newID:       idgen.Default,
		now:         time.Now,
		pasteOffset: clipboard.DefaultOffsetPx,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.clip == nil {
		e.clip = &clipboard.Holder{}
	}
	if e.saver != nil {
		e.saveCh = make(chan board.Document, 1)
		e.done = make(chan struct{})
		go e.saveLoop()
	}
	return e
}

// BoardID returns the id of the open board.
func (e *Engine) BoardID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Meta.ID
}

// State returns a deep copy of the current document.
func (e *Engine) State() board.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Clone()
}

// Close flushes the pending save and stops the saver.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	if e.saveCh != nil {
		close(e.saveCh)
	}
	e.mu.Unlock()
	if e.done != nil {
		<-e.done
	}
}

func (e *Engine) saveLoop() {
	defer close(e.done)
	for doc := range e.saveCh {
		if err := e.saver.Save(doc); err != nil {
			e.log.Error("engine: save failed", slog.String("board", doc.Meta.ID), slog.String("error", err.Error()))
		}
	}
}

// scheduleSave queues the current document, replacing any queued one.
// Callers hold e.mu.
func (e *Engine) scheduleSave() {
	if e.saveCh == nil || e.closed {
		return
	}
	snap := e.doc.Clone()
	for {
		select {
		case e.saveCh <- snap:
			return
		default:
			select {
			case <-e.saveCh:
			default:
			}
		}
	}
}

// apply runs one reducer action and saves if the document changed.
// Callers hold e.mu.
func (e *Engine) apply(a document.Action) (before board.Document) {
	before = e.doc
	e.doc = document.Reduce(e.doc, a)
	return before
}

func recorded(before, after board.Document, id string) (board.Event, bool) {
	n := len(after.History.PastEvents)
	if n == len(before.History.PastEvents) || n == 0 {
		return board.Event{}, false
	}
	last := after.History.PastEvents[n-1]
	return last, last.ID == id
}

func (e *Engine) applyLocal(ev board.Event) bool {
	before := e.apply(document.EventAction(ev))
	if !ev.Type.Recorded() {
		e.scheduleSave()
		return true
	}
	rec, ok := recorded(before, e.doc, ev.ID)
	if !ok {
		return false
	}
	e.scheduleSave()
	if e.onLocal != nil {
		e.onLocal(rec)
	}
	return true
}

func checkEvent(ev board.Event, boardID string) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("engine: %w: %v", apperr.ErrInvalid, err)
	}
	if ev.BoardID != "" && ev.BoardID != boardID {
		return fmt.Errorf("engine: event for board %s sent to %s: %w", ev.BoardID, boardID, apperr.ErrInvalid)
	}
	return nil
}

// ApplyEvent applies a local event. It reports whether the event changed
// the board; policy may reduce it to nothing.
func (e *Engine) ApplyEvent(ev board.Event) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := checkEvent(ev, e.doc.Meta.ID); err != nil {
		return false, err
	}
	if ev.BoardID == "" {
		ev.BoardID = e.doc.Meta.ID
	}
	return e.applyLocal(ev), nil
}

// ApplyRemoteEvent applies an event received from a collaborator. The local
// event hook is not called.
func (e *Engine) ApplyRemoteEvent(ev board.Event) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := checkEvent(ev, e.doc.Meta.ID); err != nil {
		return false, err
	}
	before := e.apply(document.RemoteAction(ev))
	if _, ok := recorded(before, e.doc, ev.ID); !ok {
		return false, nil
	}
	e.scheduleSave()
	return true, nil
}

// Undo steps back one event. It reports false when there is nothing to undo.
func (e *Engine) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.doc.CanUndo() {
		return false
	}
	e.machine = e.machine.Cancel()
	e.apply(document.UndoAction())
	e.scheduleSave()
	return true
}

// Redo re-applies the next undone event.
func (e *Engine) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.doc.CanRedo() {
		return false
	}
	e.machine = e.machine.Cancel()
	e.apply(document.RedoAction())
	e.scheduleSave()
	return true
}

// SetViewport replaces the viewport.
func (e *Engine) SetViewport(v geom.Viewport) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.apply(document.ViewportAction(v))
	e.scheduleSave()
}

// ApplyTransientObjectPatch changes a live object for rendering only. It is
// neither recorded nor saved.
func (e *Engine) ApplyTransientObjectPatch(objectID string, p board.Patch) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.apply(document.TransientAction(objectID, p))
}

// CopySelectionToClipboard snapshots the selection. It reports false when
// nothing is selected; the clipboard is left unchanged in that case.
func (e *Engine) CopySelectionToClipboard() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := clipboard.FromSelection(e.doc.Objects, e.doc.SelectedObjectIDs, e.doc.Meta.ID, e.now().UTC())
	if snap == nil {
		return false
	}
	e.clip.Set(snap)
	return true
}

// PasteFromClipboard pastes the clipboard onto this board and selects the
// pasted objects. canvas, when given, centres pastes from another board.
// It returns the ids of the created objects.
func (e *Engine) PasteFromClipboard(canvas *geom.Size) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	res, ok, err := e.clip.Paste(clipboard.PasteOptions{
		TargetBoardID: e.doc.Meta.ID,
		Viewport:      e.doc.Viewport,
		CanvasSize:    canvas,
		ExistingIDs:   e.doc.ObjectIDs(),
		OffsetPx:      e.pasteOffset,
		NewID:         e.newID,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: paste: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var created []string
	for _, o := range res.Objects {
		if e.applyLocal(board.NewObjectCreated(e.doc.Meta.ID, o)) {
			created = append(created, o.ID)
		}
	}
	if len(created) > 0 {
		e.applyLocal(board.NewSelectionChanged(e.doc.Meta.ID, created))
	}
	return created, nil
}

// SetTool switches the active tool. Shape tools the board type does not
// offer are rejected.
func (e *Engine) SetTool(t interact.Tool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t != interact.ToolSelect {
		st := board.ShapeType(t)
		if !st.Known() || !board.PolicyFor(e.doc.Meta.BoardType).AllowsTool(st) {
			return fmt.Errorf("engine: tool %q on %s board: %w", t, e.doc.Meta.BoardType, apperr.ErrInvalid)
		}
	}
	e.cancelGesture()
	e.tool = t
	return nil
}

// Tool returns the active tool.
func (e *Engine) Tool() interact.Tool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tool
}

// SetStyle sets the style used for new shapes.
func (e *Engine) SetStyle(s board.Style) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.style = s
}

// SelectionCapabilities describes what the current selection allows.
func (e *Engine) SelectionCapabilities() shapes.SelectionCaps {
	e.mu.Lock()
	defer e.mu.Unlock()
	return shapes.CapsForSelection(e.doc.Selected(), board.PolicyFor(e.doc.Meta.BoardType))
}
