package board

import (
	"slices"

	"github.com/samber/lo"
)

// BoardType selects the policy a board runs under.
type BoardType string

const (
	BoardAdvanced BoardType = "advanced"
	BoardFreehand BoardType = "freehand"
	BoardMindmap  BoardType = "mindmap"
)

// BoardTypes lists the known board types.
var BoardTypes = []BoardType{BoardAdvanced, BoardFreehand, BoardMindmap}

// ParseBoardType maps unknown or empty values to BoardAdvanced.
func ParseBoardType(s string) BoardType {
	t := BoardType(s)
	if slices.Contains(BoardTypes, t) {
		return t
	}
	return BoardAdvanced
}

// Policy is the per-board-type rule set. Locked values always win over
// whatever an event carries; hidden fields are not offered for editing.
type Policy struct {
	Tools  []ShapeType
	Locked map[ShapeType]Patch
	Hidden map[ShapeType][]Field
}

// AllowsTool reports whether t may be used to create objects.
func (p Policy) AllowsTool(t ShapeType) bool {
	return slices.Contains(p.Tools, t)
}

// LockedFor returns the locked values for objects of type t.
func (p Policy) LockedFor(t ShapeType) (Patch, bool) {
	l, ok := p.Locked[t]
	return l, ok
}

// EditableFields filters fields down to those not locked or hidden for t.
func (p Policy) EditableFields(t ShapeType, fields []Field) []Field {
	locked := p.Locked[t].Fields()
	hidden := p.Hidden[t]
	return lo.Filter(fields, func(f Field, _ int) bool {
		return !slices.Contains(locked, f) && !slices.Contains(hidden, f)
	})
}

const mindmapNoteFill = "#fef3c7"

var policies = map[BoardType]Policy{
	BoardAdvanced: {
		Tools: ShapeTypes,
	},
	BoardFreehand: {
		Tools: []ShapeType{Freehand, Text, StickyNote},
		Locked: map[ShapeType]Patch{
			StickyNote: {FillColor: lo.ToPtr("#fde68a")},
		},
		Hidden: map[ShapeType][]Field{
			StickyNote: {FieldFillColor},
		},
	},
	BoardMindmap: {
		Tools: []ShapeType{RoundedRect, Ellipse, Text, StickyNote, Connector},
		Locked: map[ShapeType]Patch{
			RoundedRect: {CornerRadius: lo.ToPtr(12.0)},
			StickyNote:  {FillColor: lo.ToPtr(mindmapNoteFill)},
			Connector:   {ArrowStart: lo.ToPtr(ArrowNone), ArrowEnd: lo.ToPtr(ArrowNone)},
		},
		Hidden: map[ShapeType][]Field{
			Connector: {FieldArrowStart, FieldArrowEnd},
		},
	},
}

// PolicyFor returns the policy of t; unknown types get the advanced policy.
func PolicyFor(t BoardType) Policy {
	if p, ok := policies[t]; ok {
		return p
	}
	return policies[BoardAdvanced]
}
