// Package board defines the whiteboard data model: shape objects, partial
// patches, connector attachments, board events and documents.
package board

import (
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
)

// ShapeType tags an Object.
type ShapeType string

const (
	Rectangle   ShapeType = "rectangle"
	Ellipse     ShapeType = "ellipse"
	Diamond     ShapeType = "diamond"
	RoundedRect ShapeType = "roundedRect"
	Freehand    ShapeType = "freehand"
	Line        ShapeType = "line"
	Text        ShapeType = "text"
	StickyNote  ShapeType = "stickyNote"
	Connector   ShapeType = "connector"
)

// ShapeTypes lists every declared shape type in toolbar order.
var ShapeTypes = []ShapeType{
	Rectangle, Ellipse, Diamond, RoundedRect, Freehand, Line, Text, StickyNote, Connector,
}

// Known reports whether t is a declared shape type.
func (t ShapeType) Known() bool {
	return slices.Contains(ShapeTypes, t)
}

// ArrowKind decorates the ends of lines and connectors.
type ArrowKind string

const (
	ArrowNone ArrowKind = "none"
	ArrowHead ArrowKind = "arrow"
)

// Object is a single shape on a board. Which optional fields are meaningful
// depends on Type.
type Object struct {
	ID     string    `json:"id"`
	Type   ShapeType `json:"type"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	Width  float64   `json:"width,omitempty"`
	Height float64   `json:"height,omitempty"`

	StrokeColor string  `json:"strokeColor,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	FillColor   string  `json:"fillColor,omitempty"`

	// Freehand.
	Points []geom.Point `json:"points,omitempty"`
	// Line end point.
	X2 float64 `json:"x2,omitempty"`
	Y2 float64 `json:"y2,omitempty"`
	// Text and sticky notes.
	Text      string  `json:"text,omitempty"`
	FontSize  float64 `json:"fontSize,omitempty"`
	TextColor string  `json:"textColor,omitempty"`

	CornerRadius float64   `json:"cornerRadius,omitempty"`
	ArrowStart   ArrowKind `json:"arrowStart,omitempty"`
	ArrowEnd     ArrowKind `json:"arrowEnd,omitempty"`

	// Connector endpoints.
	From *Endpoint `json:"from,omitempty"`
	To   *Endpoint `json:"to,omitempty"`
}

// Clone returns a deep copy of o.
func (o Object) Clone() Object {
	o.Points = slices.Clone(o.Points)
	if o.From != nil {
		from := *o.From
		o.From = &from
	}
	if o.To != nil {
		to := *o.To
		o.To = &to
	}
	return o
}

// Validate checks the fields every object must carry.
func (o Object) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.ID, validation.Required),
		validation.Field(&o.Type, validation.Required, validation.By(knownShape)),
		validation.Field(&o.From, validation.When(o.Type == Connector, validation.Required)),
		validation.Field(&o.To, validation.When(o.Type == Connector, validation.Required)),
	)
}

func knownShape(v any) error {
	t, _ := v.(ShapeType)
	if !t.Known() {
		return validation.NewError("validation_unknown_shape", "unknown shape type")
	}
	return nil
}

// CloneObjects deep-copies a slice of objects.
func CloneObjects(objs []Object) []Object {
	if objs == nil {
		return nil
	}
	out := make([]Object, len(objs))
	for i, o := range objs {
		out[i] = o.Clone()
	}
	return out
}

// IndexOf returns the position of the object with id, or -1.
func IndexOf(objs []Object, id string) int {
	return slices.IndexFunc(objs, func(o Object) bool { return o.ID == id })
}

// Find returns the object with id.
func Find(objs []Object, id string) (Object, bool) {
	if i := IndexOf(objs, id); i >= 0 {
		return objs[i], true
	}
	return Object{}, false
}
