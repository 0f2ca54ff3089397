package mcpserver

// ObjectFormatURI is the resource describing board objects.
const ObjectFormatURI = "whiteboard://object-format"

// ObjectFormatContract describes the board object model that LLM consumers
// should follow when adding or updating shapes.
const ObjectFormatContract = `# Whiteboard Object Format

A board is a list of objects drawn in order: later objects are on top.
Coordinates are world units; x grows right and y grows down.

## Object types

| type          | geometry                       | notes |
|---------------|--------------------------------|-------|
| rectangle     | x, y, width, height            | |
| roundedRect   | x, y, width, height            | cornerRadius |
| ellipse       | x, y, width, height            | bounds of the ellipse |
| diamond       | x, y, width, height            | |
| stickyNote    | x, y, width, height            | text, yellow fill by default |
| text          | x, y, width, height            | text, fontSize, textColor |
| line          | x, y (start), x2, y2 (end)     | arrowStart, arrowEnd: "none" or "arrow" |
| freehand      | points: [{x, y}, ...]          | at least two points |
| connector     | from, to endpoints             | created with connect_shapes |

Style fields: strokeColor, strokeWidth, fillColor (hex like ` + "`#3b82f6`" + ` or
"transparent").

## Connectors

A connector joins two different shapes and follows them when they move.
Each end is ` + "`{objectId, attachment}`" + `; the attachment is one of:

- ` + "`{\"type\":\"port\",\"portId\":\"top\"}`" + ` with ports center, top, right, bottom, left
- ` + "`{\"type\":\"edgeT\",\"edge\":\"left\",\"t\":0.5}`" + ` for a point along a box edge
- ` + "`{\"type\":\"perimeterAngle\",\"angleRad\":0}`" + ` for a point on an ellipse

Lines, freehand strokes, text and connectors cannot be connector targets.
Deleting a shape leaves its connectors in place; they are not drawn until
the shape comes back (for example through undo).

## Board types

- advanced: every shape type.
- freehand: freehand, text, stickyNote. Sticky notes have a fixed fill.
- mindmap: roundedRect, ellipse, text, stickyNote, connector. Corner radius,
  sticky fill and connector arrows are fixed by the board.

Values the board type fixes are silently replaced; tools it does not offer
are rejected.

## Updating

update_shape takes a JSON patch with only the fields to change, e.g.
` + "`{\"x\": 120, \"text\": \"Done\"}`" + `. Every change is undoable.
`
