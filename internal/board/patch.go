package board

import (
	"encoding/json"
	"slices"

	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
)

// Field names a patchable object property. Values match the JSON keys.
type Field string

const (
	FieldX            Field = "x"
	FieldY            Field = "y"
	FieldWidth        Field = "width"
	FieldHeight       Field = "height"
	FieldStrokeColor  Field = "strokeColor"
	FieldStrokeWidth  Field = "strokeWidth"
	FieldFillColor    Field = "fillColor"
	FieldPoints       Field = "points"
	FieldX2           Field = "x2"
	FieldY2           Field = "y2"
	FieldText         Field = "text"
	FieldFontSize     Field = "fontSize"
	FieldTextColor    Field = "textColor"
	FieldCornerRadius Field = "cornerRadius"
	FieldArrowStart   Field = "arrowStart"
	FieldArrowEnd     Field = "arrowEnd"
	FieldFrom         Field = "from"
	FieldTo           Field = "to"
)

// Patch is a partial Object: nil fields are absent and left untouched.
// Present fields carry absolute values, never deltas.
type Patch struct {
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`

	StrokeColor *string  `json:"strokeColor,omitempty"`
	StrokeWidth *float64 `json:"strokeWidth,omitempty"`
	FillColor   *string  `json:"fillColor,omitempty"`

	Points []geom.Point `json:"points,omitempty"`
	X2     *float64     `json:"x2,omitempty"`
	Y2     *float64     `json:"y2,omitempty"`

	Text      *string  `json:"text,omitempty"`
	FontSize  *float64 `json:"fontSize,omitempty"`
	TextColor *string  `json:"textColor,omitempty"`

	CornerRadius *float64   `json:"cornerRadius,omitempty"`
	ArrowStart   *ArrowKind `json:"arrowStart,omitempty"`
	ArrowEnd     *ArrowKind `json:"arrowEnd,omitempty"`

	From *Endpoint `json:"from,omitempty"`
	To   *Endpoint `json:"to,omitempty"`
}

// MarshalJSON keeps an empty but present Points on the wire, so a patch
// that clears a stroke is not mistaken for one that leaves it alone.
func (p Patch) MarshalJSON() ([]byte, error) {
	type plain Patch
	var pts *[]geom.Point
	if p.Points != nil {
		pts = &p.Points
	}
	return json.Marshal(struct {
		plain
		Points *[]geom.Point `json:"points,omitempty"`
	}{plain(p), pts})
}

// fieldSpec binds one Field to its Patch and Object storage.
type fieldSpec struct {
	name    Field
	present func(p *Patch) bool
	clear   func(p *Patch)
	same    func(p *Patch, o *Object) bool
	apply   func(p *Patch, o *Object)
	copy    func(dst, src *Patch)
	capture func(p *Patch, o *Object)
}

func scalarField[T comparable](name Field, pf func(*Patch) **T, of func(*Object) *T) fieldSpec {
	return fieldSpec{
		name:    name,
		present: func(p *Patch) bool { return *pf(p) != nil },
		clear:   func(p *Patch) { *pf(p) = nil },
		same:    func(p *Patch, o *Object) bool { return **pf(p) == *of(o) },
		apply:   func(p *Patch, o *Object) { *of(o) = **pf(p) },
		copy: func(dst, src *Patch) {
			if v := *pf(src); v != nil {
				c := *v
				*pf(dst) = &c
			}
		},
		capture: func(p *Patch, o *Object) {
			v := *of(o)
			*pf(p) = &v
		},
	}
}

func endpointField(name Field, pf func(*Patch) **Endpoint, of func(*Object) **Endpoint) fieldSpec {
	return fieldSpec{
		name:    name,
		present: func(p *Patch) bool { return *pf(p) != nil },
		clear:   func(p *Patch) { *pf(p) = nil },
		same: func(p *Patch, o *Object) bool {
			cur := *of(o)
			return cur != nil && *cur == **pf(p)
		},
		apply: func(p *Patch, o *Object) {
			e := **pf(p)
			*of(o) = &e
		},
		copy: func(dst, src *Patch) {
			if v := *pf(src); v != nil {
				e := *v
				*pf(dst) = &e
			}
		},
		capture: func(p *Patch, o *Object) {
			if cur := *of(o); cur != nil {
				e := *cur
				*pf(p) = &e
			}
		},
	}
}

var pointsField = fieldSpec{
	name:    FieldPoints,
	present: func(p *Patch) bool { return p.Points != nil },
	clear:   func(p *Patch) { p.Points = nil },
	same:    func(p *Patch, o *Object) bool { return slices.Equal(p.Points, o.Points) },
	apply:   func(p *Patch, o *Object) { o.Points = slices.Clone(p.Points) },
	copy: func(dst, src *Patch) {
		if src.Points != nil {
			dst.Points = slices.Clone(src.Points)
		}
	},
	capture: func(p *Patch, o *Object) {
		if o.Points != nil {
			p.Points = slices.Clone(o.Points)
		}
	},
}

var patchFields = []fieldSpec{
	scalarField(FieldX, func(p *Patch) **float64 { return &p.X }, func(o *Object) *float64 { return &o.X }),
	scalarField(FieldY, func(p *Patch) **float64 { return &p.Y }, func(o *Object) *float64 { return &o.Y }),
	scalarField(FieldWidth, func(p *Patch) **float64 { return &p.Width }, func(o *Object) *float64 { return &o.Width }),
	scalarField(FieldHeight, func(p *Patch) **float64 { return &p.Height }, func(o *Object) *float64 { return &o.Height }),
	scalarField(FieldStrokeColor, func(p *Patch) **string { return &p.StrokeColor }, func(o *Object) *string { return &o.StrokeColor }),
	scalarField(FieldStrokeWidth, func(p *Patch) **float64 { return &p.StrokeWidth }, func(o *Object) *float64 { return &o.StrokeWidth }),
	scalarField(FieldFillColor, func(p *Patch) **string { return &p.FillColor }, func(o *Object) *string { return &o.FillColor }),
	pointsField,
	scalarField(FieldX2, func(p *Patch) **float64 { return &p.X2 }, func(o *Object) *float64 { return &o.X2 }),
	scalarField(FieldY2, func(p *Patch) **float64 { return &p.Y2 }, func(o *Object) *float64 { return &o.Y2 }),
	scalarField(FieldText, func(p *Patch) **string { return &p.Text }, func(o *Object) *string { return &o.Text }),
	scalarField(FieldFontSize, func(p *Patch) **float64 { return &p.FontSize }, func(o *Object) *float64 { return &o.FontSize }),
	scalarField(FieldTextColor, func(p *Patch) **string { return &p.TextColor }, func(o *Object) *string { return &o.TextColor }),
	scalarField(FieldCornerRadius, func(p *Patch) **float64 { return &p.CornerRadius }, func(o *Object) *float64 { return &o.CornerRadius }),
	scalarField(FieldArrowStart, func(p *Patch) **ArrowKind { return &p.ArrowStart }, func(o *Object) *ArrowKind { return &o.ArrowStart }),
	scalarField(FieldArrowEnd, func(p *Patch) **ArrowKind { return &p.ArrowEnd }, func(o *Object) *ArrowKind { return &o.ArrowEnd }),
	endpointField(FieldFrom, func(p *Patch) **Endpoint { return &p.From }, func(o *Object) **Endpoint { return &o.From }),
	endpointField(FieldTo, func(p *Patch) **Endpoint { return &p.To }, func(o *Object) **Endpoint { return &o.To }),
}

// Apply returns o with every present field of p written over it.
func (p Patch) Apply(o Object) Object {
	o = o.Clone()
	for _, f := range patchFields {
		if f.present(&p) {
			f.apply(&p, &o)
		}
	}
	return o
}

// IsEmpty reports whether p carries no fields.
func (p Patch) IsEmpty() bool {
	for _, f := range patchFields {
		if f.present(&p) {
			return false
		}
	}
	return true
}

// Fields lists the present fields of p.
func (p Patch) Fields() []Field {
	var out []Field
	for _, f := range patchFields {
		if f.present(&p) {
			out = append(out, f.name)
		}
	}
	return out
}

// Has reports whether field is present in p.
func (p Patch) Has(field Field) bool {
	return slices.Contains(p.Fields(), field)
}

// Without returns a copy of p with the given fields removed.
func (p Patch) Without(fields ...Field) Patch {
	out := p.Clone()
	for _, f := range patchFields {
		if slices.Contains(fields, f.name) {
			f.clear(&out)
		}
	}
	return out
}

// Minimize drops every field whose value already equals orig's.
func (p Patch) Minimize(orig Object) Patch {
	out := p.Clone()
	for _, f := range patchFields {
		if f.present(&out) && f.same(&out, &orig) {
			f.clear(&out)
		}
	}
	return out
}

// Merge returns p overlaid with the present fields of next.
func (p Patch) Merge(next Patch) Patch {
	out := p.Clone()
	for _, f := range patchFields {
		f.copy(&out, &next)
	}
	return out
}

// Clone deep-copies p.
func (p Patch) Clone() Patch {
	var out Patch
	for _, f := range patchFields {
		f.copy(&out, &p)
	}
	return out
}

// Diff returns the patch that turns from into to: every field whose value
// differs between the two objects.
func Diff(from, to Object) Patch {
	var out Patch
	for _, f := range patchFields {
		var probe Patch
		f.capture(&probe, &to)
		if !f.present(&probe) {
			continue
		}
		if !f.same(&probe, &from) {
			f.copy(&out, &probe)
		}
	}
	return out
}
