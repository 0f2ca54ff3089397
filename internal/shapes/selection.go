package shapes

import (
	"slices"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
)

// SelectionCaps describes what the property panel may offer for a selection.
type SelectionCaps struct {
	Editable  []board.Field `json:"editable"`
	Resizable bool          `json:"resizable"`
	Movable   bool          `json:"movable"`
}

// CapsForSelection intersects the editable fields of every selected object,
// minus whatever the board policy locks or hides for each type.
func CapsForSelection(selected []board.Object, policy board.Policy) SelectionCaps {
	if len(selected) == 0 {
		return SelectionCaps{Editable: []board.Field{}}
	}
	var editable []board.Field
	movable := true
	for i, o := range selected {
		caps := Lookup(o.Type)
		fields := policy.EditableFields(o.Type, caps.Editable)
		if i == 0 {
			editable = slices.Clone(fields)
		} else {
			editable = slices.DeleteFunc(editable, func(f board.Field) bool {
				return !slices.Contains(fields, f)
			})
		}
		movable = movable && caps.Translate != nil
	}
	if editable == nil {
		editable = []board.Field{}
	}
	return SelectionCaps{
		Editable:  editable,
		Resizable: len(selected) == 1 && Resizable(selected[0].Type),
		Movable:   movable,
	}
}
