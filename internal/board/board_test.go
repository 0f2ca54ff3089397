package board

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/samber/lo"

	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
)

func rect(id string, x, y, w, h float64) Object {
	return Object{ID: id, Type: Rectangle, X: x, Y: y, Width: w, Height: h, StrokeColor: "#000"}
}

func TestPatchApplyOnlyPresentFields(t *testing.T) {
	o := rect("a", 1, 2, 10, 20)
	got := Patch{X: lo.ToPtr(5.0), FillColor: lo.ToPtr("red")}.Apply(o)

	if got.X != 5 || got.Y != 2 || got.Width != 10 || got.FillColor != "red" || got.StrokeColor != "#000" {
		t.Errorf("unexpected result: %+v", got)
	}
	if o.X != 1 {
		t.Error("Apply mutated its input")
	}
}

func TestPatchMinimize(t *testing.T) {
	o := rect("a", 1, 2, 10, 20)
	p := Patch{X: lo.ToPtr(1.0), Y: lo.ToPtr(3.0), StrokeColor: lo.ToPtr("#000")}

	got := p.Minimize(o)
	if fields := got.Fields(); !slices.Equal(fields, []Field{FieldY}) {
		t.Errorf("fields = %v, want [y]", fields)
	}
	if !(Patch{X: lo.ToPtr(1.0)}).Minimize(o).IsEmpty() {
		t.Error("no-op patch should minimize to empty")
	}
}

func TestPatchWithoutAndMerge(t *testing.T) {
	p := Patch{X: lo.ToPtr(1.0), FillColor: lo.ToPtr("red"), Points: []geom.Point{{X: 1, Y: 1}}}
	stripped := p.Without(FieldFillColor, FieldPoints)
	if !slices.Equal(stripped.Fields(), []Field{FieldX}) {
		t.Errorf("fields = %v", stripped.Fields())
	}
	if p.FillColor == nil {
		t.Error("Without mutated its receiver")
	}

	merged := Patch{X: lo.ToPtr(1.0), Y: lo.ToPtr(1.0)}.Merge(Patch{Y: lo.ToPtr(9.0)})
	if *merged.X != 1 || *merged.Y != 9 {
		t.Errorf("merge = x %v y %v", *merged.X, *merged.Y)
	}
}

func TestDiffRoundTrip(t *testing.T) {
	from := Object{
		ID: "c", Type: Connector,
		From: &Endpoint{ObjectID: "a", Attachment: PortAttachment("center")},
		To:   &Endpoint{ObjectID: "b", Attachment: EdgeAttachment(EdgeLeft, 0.5)},
	}
	to := from.Clone()
	to.To = &Endpoint{ObjectID: "d", Attachment: AngleAttachment(1)}
	to.StrokeWidth = 4

	d := Diff(from, to)
	if !slices.Equal(d.Fields(), []Field{FieldStrokeWidth, FieldTo}) {
		t.Fatalf("diff fields = %v", d.Fields())
	}
	got := d.Apply(from)
	if got.To.ObjectID != "d" || got.StrokeWidth != 4 || got.From.ObjectID != "a" {
		t.Errorf("applied diff = %+v", got)
	}
}

func TestPatchEmptyPointsSurviveWire(t *testing.T) {
	ev := NewObjectUpdated("b1", "f1", Patch{Points: []geom.Point{}})
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"points":[]`) {
		t.Fatalf("empty points dropped: %s", data)
	}
	var got Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Patch == nil || got.Patch.Points == nil || len(got.Patch.Points) != 0 {
		t.Fatalf("patch = %+v", got.Patch)
	}
	stroke := Object{ID: "f1", Type: Freehand, Points: []geom.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}}
	if cleared := got.Patch.Apply(stroke); len(cleared.Points) != 0 {
		t.Errorf("points after apply = %v", cleared.Points)
	}

	data, _ = json.Marshal(Patch{X: lo.ToPtr(1.0)})
	if strings.Contains(string(data), "points") {
		t.Errorf("absent points rendered: %s", data)
	}
}

func TestObjectCloneIsDeep(t *testing.T) {
	o := Object{ID: "f", Type: Freehand, Points: []geom.Point{{X: 1, Y: 1}}, From: &Endpoint{ObjectID: "x"}}
	c := o.Clone()
	c.Points[0].X = 99
	c.From.ObjectID = "y"
	if o.Points[0].X != 1 || o.From.ObjectID != "x" {
		t.Error("clone shares memory with original")
	}
}

func TestObjectValidate(t *testing.T) {
	if err := rect("a", 0, 0, 1, 1).Validate(); err != nil {
		t.Errorf("valid rect: %v", err)
	}
	if err := (Object{ID: "a", Type: "hexagon"}).Validate(); err == nil {
		t.Error("unknown type should fail")
	}
	if err := (Object{Type: Rectangle}).Validate(); err == nil {
		t.Error("missing id should fail")
	}
	if err := (Object{ID: "c", Type: Connector}).Validate(); err == nil {
		t.Error("connector without endpoints should fail")
	}
}

func TestEventWireShape(t *testing.T) {
	ev := NewObjectUpdated("b1", "o1", Patch{X: lo.ToPtr(3.0)})
	ev.ID = "e1"
	ev.Timestamp = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("unmarshal generic: %v", err)
	}
	for _, key := range []string{"id", "boardId", "type", "timestamp", "payload"} {
		if _, ok := generic[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	payload := generic["payload"].(map[string]any)
	if payload["objectId"] != "o1" {
		t.Errorf("payload = %v", payload)
	}

	var back Event
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.ObjectID != "o1" || back.Patch == nil || *back.Patch.X != 3 || !back.Timestamp.Equal(ev.Timestamp) {
		t.Errorf("decoded = %+v", back)
	}
}

func TestEventUnmarshalEpochMillis(t *testing.T) {
	raw := `{"id":"e","boardId":"b","type":"objectDeleted","timestamp":1700000000000,"payload":{"objectId":"x"}}`
	var ev Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Timestamp.UnixMilli() != 1700000000000 || ev.ObjectID != "x" {
		t.Errorf("decoded = %+v", ev)
	}
}

func TestEventUnmarshalUnknownType(t *testing.T) {
	var ev Event
	err := json.Unmarshal([]byte(`{"id":"e","type":"teleport","payload":{}}`), &ev)
	if err == nil || !strings.Contains(err.Error(), "unknown type") {
		t.Errorf("err = %v", err)
	}
}

func TestEventValidate(t *testing.T) {
	ok := NewObjectCreated("b", rect("a", 0, 0, 1, 1))
	if err := ok.Validate(); err != nil {
		t.Errorf("valid event: %v", err)
	}
	bad := NewObjectUpdated("b", "", Patch{})
	if err := bad.Validate(); err == nil {
		t.Error("update without object id should fail")
	}
}

func TestPolicyEditableFields(t *testing.T) {
	p := PolicyFor(BoardMindmap)
	got := p.EditableFields(Connector, []Field{FieldStrokeColor, FieldArrowStart, FieldArrowEnd})
	if !slices.Equal(got, []Field{FieldStrokeColor}) {
		t.Errorf("editable = %v", got)
	}
	if !PolicyFor("bogus").AllowsTool(Diamond) {
		t.Error("unknown board type should fall back to advanced")
	}
	if ParseBoardType("nope") != BoardAdvanced {
		t.Error("ParseBoardType should default to advanced")
	}
}

func TestViewportPatchApply(t *testing.T) {
	v := ViewportPatch{Zoom: lo.ToPtr(0.0), OffsetX: lo.ToPtr(4.0)}.Apply(geom.Viewport{OffsetY: 2, Zoom: 3})
	if v != (geom.Viewport{OffsetX: 4, OffsetY: 2, Zoom: 1}) {
		t.Errorf("viewport = %+v", v)
	}
}
