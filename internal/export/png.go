// Package export renders a board to PNG through the shape registry and to
// PDF as vector drawing.
package export

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/geom"
	"github.com/erland/pwa-whiteboard-sub000/internal/shapes"
)

// ErrEmptyBoard is returned when there is nothing to draw.
var ErrEmptyBoard = errors.New("export: board has no drawable objects")

// ErrTooLarge is returned when the content cannot fit the output limits.
var ErrTooLarge = errors.New("export: board too large")

// maxPixels caps the raster size.
const maxPixels = 64 << 20

// maxSide caps either output dimension, in pixels or PDF points.
const maxSide = 1 << 16

// Options controls export layout.
type Options struct {
	Padding    float64 // world units around the content
	Scale      float64 // output pixels per world unit
	Background string  // hex colour; empty means white
}

// DefaultOptions returns the options used by the API and CLI.
func DefaultOptions() Options {
	return Options{Padding: 20, Scale: 1, Background: "#ffffff"}
}

func (o Options) normalized() Options {
	if !finite(o.Scale) || o.Scale <= 0 {
		o.Scale = 1
	}
	if !finite(o.Padding) || o.Padding < 0 {
		o.Padding = 0
	}
	if o.Background == "" {
		o.Background = "#ffffff"
	}
	return o
}

// ContentBounds unions the bounding boxes of every drawable object.
// Dangling connectors are skipped.
func ContentBounds(objs []board.Object) (geom.Bounds, bool) {
	env := shapes.Env{Objects: objs, Zoom: 1}
	var bs []geom.Bounds
	for _, o := range objs {
		if !shapes.Registered(o.Type) {
			continue
		}
		if b, ok := shapes.BoundingBox(o, env); ok {
			bs = append(bs, b)
		}
	}
	return geom.UnionAll(bs)
}

var (
	fontOnce sync.Once
	fontTTF  *truetype.Font
	fontErr  error
)

func monoFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		fontTTF, fontErr = truetype.Parse(gomono.TTF)
	})
	return fontTTF, fontErr
}

// faceCache hands out one face per text size for a single render.
func faceCache(f *truetype.Font) func(size float64) font.Face {
	faces := map[float64]font.Face{}
	return func(size float64) font.Face {
		if face, ok := faces[size]; ok {
			return face
		}
		face := truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
		faces[size] = face
		return face
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// pixelSize checks the scaled bounds in float space before converting, so an
// oversized board is rejected instead of wrapping.
func pixelSize(b geom.Bounds, scale float64) (int, int, error) {
	fw, fh := b.Width*scale, b.Height*scale
	if !finite(b.X) || !finite(b.Y) || !finite(fw) || !finite(fh) || fw > maxSide || fh > maxSide {
		return 0, 0, fmt.Errorf("%w: %gx%g at scale %g", ErrTooLarge, b.Width, b.Height, scale)
	}
	w := max(int(fw+0.5), 1)
	h := max(int(fh+0.5), 1)
	if w*h > maxPixels {
		return 0, 0, fmt.Errorf("%w: %dx%d image exceeds %d pixels", ErrTooLarge, w, h, maxPixels)
	}
	return w, h, nil
}

// Render draws the board content into an image sized to fit it.
func Render(doc board.Document, opts Options) (image.Image, error) {
	opts = opts.normalized()
	b, ok := ContentBounds(doc.Objects)
	if !ok {
		return nil, ErrEmptyBoard
	}
	b = b.Inflate(opts.Padding)

	w, h, err := pixelSize(b, opts.Scale)
	if err != nil {
		return nil, err
	}

	f, err := monoFont()
	if err != nil {
		return nil, fmt.Errorf("export: parse font: %w", err)
	}

	dc := gg.NewContext(w, h)
	dc.SetHexColor(opts.Background)
	dc.Clear()
	dc.Scale(opts.Scale, opts.Scale)
	dc.Translate(-b.X, -b.Y)

	env := shapes.Env{Objects: doc.Objects, Zoom: opts.Scale, FontFace: faceCache(f)}
	for _, o := range doc.Objects {
		if !shapes.Registered(o.Type) {
			continue
		}
		dc.Push()
		shapes.Draw(dc, o, env)
		dc.Pop()
	}
	return dc.Image(), nil
}

// PNG writes the board as a PNG image.
func PNG(w io.Writer, doc board.Document, opts Options) error {
	img, err := Render(doc, opts)
	if err != nil {
		return err
	}
	dc := gg.NewContextForImage(img)
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("export: encode png: %w", err)
	}
	return nil
}
