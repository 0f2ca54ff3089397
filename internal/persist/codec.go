// Package persist converts board documents to and from their stored JSON
// snapshot form and saves them through a storage provider.
package persist

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/document"
	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
)

const (
	// SchemaVersion is written into every snapshot.
	SchemaVersion = 2
	// DefaultPointsScale is the fixed-point factor for packed freehand points.
	DefaultPointsScale = 100
)

// Status reports how a snapshot was decoded.
type Status int

const (
	// Current means the payload was a snapshot in the current schema.
	Current Status = iota
	// Migrated means the payload was an older format and should be written back.
	Migrated
	// Fresh means nothing usable was found and an empty document was returned.
	Fresh
)

func (s Status) String() string {
	switch s {
	case Current:
		return "current"
	case Migrated:
		return "migrated"
	default:
		return "fresh"
	}
}

type snapshot struct {
	SchemaVersion     int            `json:"schemaVersion"`
	Meta              board.Meta     `json:"meta"`
	Objects           []storedObject `json:"objects"`
	SelectedObjectIDs []string       `json:"selectedObjectIds,omitempty"`
	Viewport          *geom.Viewport `json:"viewport,omitempty"`
	PointsScale       int            `json:"pointsScale,omitempty"`
}

// storedObject shadows Object.Points with the packed string form.
type storedObject struct {
	board.Object
	Points string `json:"points,omitempty"`
}

// Encode serialises doc as a current-schema snapshot. History is not stored.
func Encode(doc board.Document) ([]byte, error) {
	return encode(doc, true)
}

// EncodeMinimal drops selection and viewport, keeping meta and objects.
func EncodeMinimal(doc board.Document) ([]byte, error) {
	return encode(doc, false)
}

func encode(doc board.Document, full bool) ([]byte, error) {
	snap := snapshot{
		SchemaVersion: SchemaVersion,
		Meta:          doc.Meta,
		Objects: lo.Map(doc.Objects, func(o board.Object, _ int) storedObject {
			s := storedObject{Object: o}
			if len(o.Points) > 0 {
				s.Points = PackPoints(o.Points, DefaultPointsScale)
				s.Object.Points = nil
			}
			return s
		}),
		PointsScale: DefaultPointsScale,
	}
	if full {
		snap.SelectedObjectIDs = doc.SelectedObjectIDs
		v := doc.Viewport
		snap.Viewport = &v
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("persist: encode %s: %w", doc.Meta.ID, err)
	}
	return data, nil
}

// PackPoints writes points as "x,y;x,y" scaled integers.
func PackPoints(pts []geom.Point, scale int) string {
	var b strings.Builder
	for i, p := range pts {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(strconv.FormatInt(int64(math.Round(p.X*float64(scale))), 10))
		b.WriteByte(',')
		b.WriteString(strconv.FormatInt(int64(math.Round(p.Y*float64(scale))), 10))
	}
	return b.String()
}

// UnpackPoints is the inverse of PackPoints. Malformed pairs are skipped.
func UnpackPoints(s string, scale int) []geom.Point {
	if scale <= 0 {
		scale = 1
	}
	var out []geom.Point
	for pair := range strings.SplitSeq(s, ";") {
		xs, ys, ok := strings.Cut(strings.TrimSpace(pair), ",")
		if !ok {
			continue
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(xs), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(ys), 64)
		if errX != nil || errY != nil {
			continue
		}
		out = append(out, geom.Point{X: x / float64(scale), Y: y / float64(scale)})
	}
	return out
}

// Decode parses a stored payload. It never fails: anything it cannot read
// yields an empty document carrying fallback as its meta.
func Decode(data []byte, fallback board.Meta) (board.Document, Status) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return board.NewDocument(fallback), Fresh
	}

	meta := decodeMeta(raw["meta"], fallback)

	if _, ok := raw["schemaVersion"]; !ok {
		if events, ok := legacyEvents(raw); ok {
			return rebuild(meta, events), Migrated
		}
	}

	rawObjects, ok := raw["objects"].([]any)
	if !ok {
		return board.NewDocument(meta), Fresh
	}

	scale := DefaultPointsScale
	if n, ok := number(raw["pointsScale"]); ok && n > 0 {
		scale = int(n)
	}

	doc := board.NewDocument(meta)
	seen := map[string]struct{}{}
	for _, ro := range rawObjects {
		m, ok := ro.(map[string]any)
		if !ok {
			continue
		}
		o, ok := decodeObject(m, scale)
		if !ok {
			continue
		}
		if _, dup := seen[o.ID]; dup {
			continue
		}
		seen[o.ID] = struct{}{}
		doc.Objects = append(doc.Objects, o)
	}
	if ids, ok := raw["selectedObjectIds"].([]any); ok {
		doc.SelectedObjectIDs = lo.FilterMap(ids, func(v any, _ int) (string, bool) {
			s, ok := v.(string)
			return s, ok
		})
	}
	if vm, ok := raw["viewport"].(map[string]any); ok {
		doc.Viewport = geom.Viewport{
			OffsetX: numberOr(vm["offsetX"], 0),
			OffsetY: numberOr(vm["offsetY"], 0),
			Zoom:    numberOr(vm["zoom"], 1),
		}
	}

	status := Current
	if v, _ := number(raw["schemaVersion"]); int(v) != SchemaVersion {
		status = Migrated
	}
	return document.Reduce(board.Document{}, document.ResetAction(doc)), status
}

// legacyEvents extracts a recorded event log from {history:{pastEvents}} or
// a flat {pastEvents} payload.
func legacyEvents(raw map[string]any) ([]board.Event, bool) {
	list, ok := raw["pastEvents"].([]any)
	if !ok {
		h, isMap := raw["history"].(map[string]any)
		if !isMap {
			return nil, false
		}
		if list, ok = h["pastEvents"].([]any); !ok {
			return nil, false
		}
	}
	var events []board.Event
	for _, item := range list {
		data, err := json.Marshal(item)
		if err != nil {
			continue
		}
		var ev board.Event
		if err := json.Unmarshal(data, &ev); err != nil || ev.Validate() != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, true
}

// rebuild folds a recovered event log through the reducer so the board
// policy of meta applies, then drops the history it recorded.
func rebuild(meta board.Meta, events []board.Event) board.Document {
	doc := document.Reduce(board.Document{}, document.ResetAction(board.NewDocument(meta)))
	for _, ev := range events {
		ev.BoardID = doc.Meta.ID
		doc = document.Reduce(doc, document.EventAction(ev))
	}
	doc.History = board.History{}
	return doc
}

func decodeMeta(v any, fallback board.Meta) board.Meta {
	m, ok := v.(map[string]any)
	if !ok {
		return fallback
	}
	meta := fallback
	if s, ok := m["id"].(string); ok && s != "" && fallback.ID == "" {
		meta.ID = s
	}
	if s, ok := m["name"].(string); ok && s != "" {
		meta.Name = s
	}
	if s, ok := m["boardType"].(string); ok {
		meta.BoardType = board.ParseBoardType(s)
	}
	if t, ok := timestamp(m["createdAt"]); ok {
		meta.CreatedAt = t
	}
	if t, ok := timestamp(m["updatedAt"]); ok {
		meta.UpdatedAt = t
	}
	return meta
}

func decodeObject(m map[string]any, scale int) (board.Object, bool) {
	o := board.Object{
		ID:          str(m["id"]),
		Type:        board.ShapeType(str(m["type"])),
		X:           numberOr(m["x"], 0),
		Y:           numberOr(m["y"], 0),
		Width:       numberOr(m["width"], 0),
		Height:      numberOr(m["height"], 0),
		StrokeColor: str(m["strokeColor"]),
		StrokeWidth: numberOr(m["strokeWidth"], 0),
		FillColor:   str(m["fillColor"]),
		X2:          numberOr(m["x2"], 0),
		Y2:          numberOr(m["y2"], 0),
		Text:        str(m["text"]),
		FontSize:    numberOr(m["fontSize"], 0),
		TextColor:   str(m["textColor"]),

		CornerRadius: numberOr(m["cornerRadius"], 0),
		ArrowStart:   board.ArrowKind(str(m["arrowStart"])),
		ArrowEnd:     board.ArrowKind(str(m["arrowEnd"])),
	}
	switch pts := m["points"].(type) {
	case string:
		o.Points = UnpackPoints(pts, scale)
	case []any:
		o.Points = legacyPoints(pts)
	}
	o.From = endpoint(m["from"])
	o.To = endpoint(m["to"])
	if err := o.Validate(); err != nil {
		return board.Object{}, false
	}
	return o, true
}

// legacyPoints accepts [{x,y}] and [[x,y]] point lists.
func legacyPoints(list []any) []geom.Point {
	var out []geom.Point
	for _, item := range list {
		switch p := item.(type) {
		case map[string]any:
			x, okX := number(p["x"])
			y, okY := number(p["y"])
			if okX && okY {
				out = append(out, geom.Point{X: x, Y: y})
			}
		case []any:
			if len(p) < 2 {
				continue
			}
			x, okX := number(p[0])
			y, okY := number(p[1])
			if okX && okY {
				out = append(out, geom.Point{X: x, Y: y})
			}
		}
	}
	return out
}

func endpoint(v any) *board.Endpoint {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var ep board.Endpoint
	if err := json.Unmarshal(data, &ep); err != nil || ep.Validate() != nil {
		return nil
	}
	return &ep
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// number accepts JSON numbers and numeric strings.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func numberOr(v any, def float64) float64 {
	if n, ok := number(v); ok {
		return n
	}
	return def
}

func timestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts.UTC(), true
		}
	case float64:
		return time.UnixMilli(int64(t)).UTC(), true
	}
	return time.Time{}, false
}
