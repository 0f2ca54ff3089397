// Package clipboard copies selected objects and pastes them onto the same
// or another board with fresh ids, remapped connectors and an offset or
// centred placement.
package clipboard

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
	"github.com/erland/pwa-whiteboard-sub000/internal/idgen"
	"github.com/erland/pwa-whiteboard-sub000/internal/shapes"
)

// DefaultOffsetPx is the per-paste step, in view pixels, on the source board.
const DefaultOffsetPx = 20

// maxIDAttempts bounds the search for an unused id per pasted object.
const maxIDAttempts = 100

// ErrIDSpaceExhausted means the id generator kept returning ids that are
// already taken. It indicates a broken generator, not a user error.
var ErrIDSpaceExhausted = errors.New("clipboard: id space exhausted")

// Snapshot is a deep copy of a selection.
type Snapshot struct {
	SourceBoardID string         `json:"sourceBoardId"`
	CopiedAt      time.Time      `json:"copiedAt"`
	Objects       []board.Object `json:"objects"`
	Bounds        geom.Bounds    `json:"bounds"`
	PasteCount    int            `json:"pasteCount"`
}

// FromSelection snapshots the selected objects of objs. It returns nil when
// nothing is selected.
func FromSelection(objs []board.Object, selectedIDs []string, sourceBoardID string, now time.Time) *Snapshot {
	var picked []board.Object
	for _, o := range objs {
		if slices.Contains(selectedIDs, o.ID) {
			picked = append(picked, o.Clone())
		}
	}
	if len(picked) == 0 {
		return nil
	}
	return &Snapshot{
		SourceBoardID: sourceBoardID,
		CopiedAt:      now,
		Objects:       picked,
		Bounds:        selectionBounds(picked, objs),
	}
}

// selectionBounds unions the bounding boxes of picked. Objects without a
// bounding box contribute their raw coordinates instead.
func selectionBounds(picked, all []board.Object) geom.Bounds {
	env := shapes.Env{Objects: all}
	var boxes []geom.Bounds
	for _, o := range picked {
		if b, ok := shapes.BoundingBox(o, env); ok {
			boxes = append(boxes, b)
			continue
		}
		if b, ok := geom.BoundsOfPoints(rawPoints(o)); ok {
			boxes = append(boxes, b)
		}
	}
	b, _ := geom.UnionAll(boxes)
	return b
}

func rawPoints(o board.Object) []geom.Point {
	switch o.Type {
	case board.Connector:
		return nil
	case board.Freehand:
		return o.Points
	case board.Line:
		return []geom.Point{{X: o.X, Y: o.Y}, {X: o.X2, Y: o.Y2}}
	}
	return []geom.Point{{X: o.X, Y: o.Y}, {X: o.X + o.Width, Y: o.Y + o.Height}}
}

// PasteOptions describes the paste target.
type PasteOptions struct {
	TargetBoardID string
	Viewport      geom.Viewport
	// CanvasSize is required to centre cross-board pastes; without it the
	// objects keep their coordinates.
	CanvasSize  *geom.Size
	ExistingIDs map[string]struct{}
	OffsetPx    float64
	NewID       idgen.Generator
}

// Result is the outcome of a paste. Snapshot carries the updated paste count.
type Result struct {
	Objects     []board.Object
	SelectedIDs []string
	Snapshot    Snapshot
}

// Paste materialises snap onto the target board.
func Paste(snap Snapshot, opts PasteOptions) (Result, error) {
	sameBoard := snap.SourceBoardID == opts.TargetBoardID
	v := opts.Viewport.Normalize()
	gen := idgen.Or(opts.NewID)

	taken := make(map[string]struct{}, len(opts.ExistingIDs)+len(snap.Objects))
	for id := range opts.ExistingIDs {
		taken[id] = struct{}{}
	}
	idMap := make(map[string]string, len(snap.Objects))
	for _, o := range snap.Objects {
		id, err := freshID(gen, taken)
		if err != nil {
			return Result{}, fmt.Errorf("clipboard: paste %s: %w", o.ID, err)
		}
		idMap[o.ID] = id
	}

	var dx, dy float64
	switch {
	case sameBoard:
		offset := opts.OffsetPx
		if offset == 0 {
			offset = DefaultOffsetPx
		}
		step := geom.PixelsToWorld(offset, v) * float64(snap.PasteCount+1)
		dx, dy = step, step
	case opts.CanvasSize != nil:
		center := geom.ToWorld(geom.Point{X: opts.CanvasSize.Width / 2, Y: opts.CanvasSize.Height / 2}, v)
		bc := snap.Bounds.Center()
		dx, dy = center.X-bc.X, center.Y-bc.Y
	}

	res := Result{Snapshot: snap}
	for _, o := range snap.Objects {
		o = o.Clone()
		if o.Type == board.Connector {
			var ok bool
			if o, ok = remapConnector(o, idMap, sameBoard); !ok {
				continue
			}
		} else if p, ok := shapes.Translate(o, dx, dy); ok {
			o = p.Apply(o)
		}
		o.ID = idMap[o.ID]
		res.Objects = append(res.Objects, o)
		res.SelectedIDs = append(res.SelectedIDs, o.ID)
	}

	if sameBoard {
		res.Snapshot.PasteCount++
	}
	return res, nil
}

// remapConnector points connector ends at the pasted copies. On the same
// board an end whose target was not copied keeps referencing the original;
// on another board such a connector is dropped.
func remapConnector(o board.Object, idMap map[string]string, sameBoard bool) (board.Object, bool) {
	for _, ep := range []*board.Endpoint{o.From, o.To} {
		if ep == nil {
			return o, false
		}
		if id, ok := idMap[ep.ObjectID]; ok {
			ep.ObjectID = id
			continue
		}
		if !sameBoard {
			return o, false
		}
	}
	return o, true
}

func freshID(gen idgen.Generator, taken map[string]struct{}) (string, error) {
	for range maxIDAttempts {
		id := gen()
		if _, dup := taken[id]; !dup && id != "" {
			taken[id] = struct{}{}
			return id, nil
		}
	}
	return "", ErrIDSpaceExhausted
}

// Holder is the process-wide clipboard shared by every open board.
type Holder struct {
	mu   sync.Mutex
	snap *Snapshot
}

// Set replaces the clipboard content.
func (h *Holder) Set(s *Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snap = s
}

// Get returns a copy of the clipboard content.
func (h *Holder) Get() (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.snap == nil {
		return Snapshot{}, false
	}
	s := *h.snap
	s.Objects = board.CloneObjects(h.snap.Objects)
	return s, true
}

// Paste pastes the clipboard content and records the new paste count.
// It reports false when the clipboard is empty.
func (h *Holder) Paste(opts PasteOptions) (Result, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.snap == nil {
		return Result{}, false, nil
	}
	res, err := Paste(*h.snap, opts)
	if err != nil {
		return Result{}, true, err
	}
	s := res.Snapshot
	h.snap = &s
	return res, true, nil
}
