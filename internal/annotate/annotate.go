// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

// Package annotate renders detection boxes, labels and a capture timestamp
// over a camera frame.
package annotate

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/tomtom215/cartsense/internal/detection"
)

// TimestampLayout is the layout of the timestamp drawn in the top-left corner.
const TimestampLayout = "2006-01-02 15:04:05"

// DefaultQuality is the JPEG quality of annotated images.
const DefaultQuality = 90

var (
	boxColor   = color.RGBA{R: 0x00, G: 0xe6, B: 0x76, A: 0xff}
	labelBG    = color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xb0}
	labelColor = color.White
)

// Renderer draws annotations. The zero value is not usable; call NewRenderer.
type Renderer struct {
	face      font.Face
	quality   int
	thickness int
	location  *time.Location
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithQuality sets the JPEG quality (1-100).
func WithQuality(q int) Option {
	return func(r *Renderer) {
		if q >= 1 && q <= 100 {
			r.quality = q
		}
	}
}

// WithLocation sets the zone the timestamp is printed in.
func WithLocation(loc *time.Location) Option {
	return func(r *Renderer) {
		if loc != nil {
			r.location = loc
		}
	}
}

// NewRenderer creates a Renderer using the 7x13 bitmap face.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		face:      basicfont.Face7x13,
		quality:   DefaultQuality,
		thickness: 2,
		location:  time.UTC,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render decodes src, draws every detection and the timestamp, and returns
// the JPEG-encoded result.
func (r *Renderer) Render(src []byte, dets []detection.Labeled, at time.Time) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode capture: %w", err)
	}

	b := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Src)

	for _, d := range dets {
		rect := pixelRect(canvas.Bounds(), d.Box.XMin, d.Box.YMin, d.Box.XMax, d.Box.YMax)
		r.strokeRect(canvas, rect)
		r.label(canvas, rect.Min, fmt.Sprintf("%s %.0f%%", d.Name, d.Score*100))
	}
	r.label(canvas, image.Pt(0, 0), at.In(r.location).Format(TimestampLayout))

	var out bytes.Buffer
	if err := jpeg.Encode(&out, canvas, &jpeg.Options{Quality: r.quality}); err != nil {
		return nil, fmt.Errorf("encode annotated image: %w", err)
	}
	return out.Bytes(), nil
}

// pixelRect converts normalized coordinates to pixels, clamped to bounds.
func pixelRect(bounds image.Rectangle, xmin, ymin, xmax, ymax float64) image.Rectangle {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	return image.Rect(int(clamp01(xmin)*w), int(clamp01(ymin)*h), int(clamp01(xmax)*w), int(clamp01(ymax)*h)).
		Intersect(bounds)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func (r *Renderer) strokeRect(dst *image.RGBA, rect image.Rectangle) {
	if rect.Empty() {
		return
	}
	src := image.NewUniform(boxColor)
	t := r.thickness
	edges := []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+t),
		image.Rect(rect.Min.X, rect.Max.Y-t, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+t, rect.Max.Y),
		image.Rect(rect.Max.X-t, rect.Min.Y, rect.Max.X, rect.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(rect), src, image.Point{}, draw.Over)
	}
}

// label draws text on a translucent background with its top-left at pt.
func (r *Renderer) label(dst *image.RGBA, pt image.Point, text string) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(labelColor), Face: r.face}
	metrics := r.face.Metrics()
	ascent := metrics.Ascent.Ceil()
	height := metrics.Height.Ceil()
	width := d.MeasureString(text).Ceil()

	const pad = 2
	bg := image.Rect(pt.X, pt.Y, pt.X+width+2*pad, pt.Y+height+2*pad).Intersect(dst.Bounds())
	draw.Draw(dst, bg, image.NewUniform(labelBG), image.Point{}, draw.Over)

	d.Dot = fixed.P(pt.X+pad, pt.Y+pad+ascent)
	d.DrawString(text)
}
