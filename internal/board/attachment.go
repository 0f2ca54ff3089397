package board

import validation "github.com/go-ozzo/ozzo-validation/v4"

// AttachmentKind tags an Attachment.
type AttachmentKind string

const (
	AttachPort           AttachmentKind = "port"
	AttachEdgeT          AttachmentKind = "edgeT"
	AttachPerimeterAngle AttachmentKind = "perimeterAngle"
	AttachFallback       AttachmentKind = "fallback"
)

// Edge names one side of a box-like shape.
type Edge string

const (
	EdgeTop    Edge = "top"
	EdgeRight  Edge = "right"
	EdgeBottom Edge = "bottom"
	EdgeLeft   Edge = "left"
)

// Anchor is a coarse fallback location on a shape's bounds.
type Anchor string

const (
	AnchorCenter Anchor = "center"
	AnchorTop    Anchor = "top"
	AnchorRight  Anchor = "right"
	AnchorBottom Anchor = "bottom"
	AnchorLeft   Anchor = "left"
)

// Attachment describes where on a target shape a connector end sits. It is
// always relative to the shape so connectors follow when shapes move.
type Attachment struct {
	Kind     AttachmentKind `json:"type"`
	PortID   string         `json:"portId,omitempty"`
	Edge     Edge           `json:"edge,omitempty"`
	T        float64        `json:"t,omitempty"`
	AngleRad float64        `json:"angleRad,omitempty"`
	Anchor   Anchor         `json:"anchor,omitempty"`
}

func PortAttachment(portID string) Attachment {
	return Attachment{Kind: AttachPort, PortID: portID}
}

func EdgeAttachment(e Edge, t float64) Attachment {
	return Attachment{Kind: AttachEdgeT, Edge: e, T: t}
}

func AngleAttachment(rad float64) Attachment {
	return Attachment{Kind: AttachPerimeterAngle, AngleRad: rad}
}

func FallbackAttachment(a Anchor) Attachment {
	return Attachment{Kind: AttachFallback, Anchor: a}
}

// Endpoint binds a connector end to a target object.
type Endpoint struct {
	ObjectID   string     `json:"objectId"`
	Attachment Attachment `json:"attachment"`
}

// Validate implements validation.Validatable.
func (e Endpoint) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.ObjectID, validation.Required),
	)
}
