// seehuhn.de/go/pdfview - on-demand page rendering for PDF viewers
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package zoompan implements the zoom and pan state of a page view.
//
// The state consists of a scale factor and a translation.  A point p of the
// unzoomed content is shown at the screen position p*scale + translation.
// The state does not depend on which pages are rendered; it only determines
// the transformation applied when drawing.
package zoompan

import (
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
)

// Default zoom limits.
const (
	DefaultMinZoom = 1.0
	DefaultMaxZoom = 3.0
)

// State is the zoom and pan state of a view.
//
// At the minimum zoom level the translation is always exactly zero.
// Otherwise the translation is clamped so that no space outside the
// content becomes visible.
type State struct {
	minZoom, maxZoom float64

	// width and height are the size of the unzoomed content,
	// which is also the size of the view.
	width, height float64

	scale float64
	tx    float64
	ty    float64
}

// New returns the identity state for the given zoom limits.
// Invalid limits are replaced by the defaults.
func New(minZoom, maxZoom float64) *State {
	if !(minZoom > 0) {
		minZoom = DefaultMinZoom
	}
	if !(maxZoom >= minZoom) {
		maxZoom = max(DefaultMaxZoom, minZoom)
	}
	return &State{
		minZoom: minZoom,
		maxZoom: maxZoom,
		scale:   minZoom,
	}
}

// SetContentSize sets the size of the unzoomed content.
// The current translation is clamped to the new bounds.
// Non-finite sizes are ignored.
func (s *State) SetContentSize(width, height float64) {
	if !finite(width, height) {
		return
	}
	s.width = max(width, 0)
	s.height = max(height, 0)
	s.clamp()
}

// Reset returns to the identity state.
func (s *State) Reset() {
	s.scale = s.minZoom
	s.tx, s.ty = 0, 0
}

// Scale returns the current scale factor.
func (s *State) Scale() float64 {
	return s.scale
}

// Translation returns the current translation.
func (s *State) Translation() vec.Vec2 {
	return vec.Vec2{X: s.tx, Y: s.ty}
}

// Identity reports whether the view is at the minimum zoom level.
func (s *State) Identity() bool {
	return s.scale == s.minZoom
}

// MiddleZoom returns the zoom level used by double taps.
func (s *State) MiddleZoom() float64 {
	return s.minZoom + (s.maxZoom-s.minZoom)/2
}

// Limits returns the minimum and maximum zoom level.
func (s *State) Limits() (minZoom, maxZoom float64) {
	return s.minZoom, s.maxZoom
}

// Transform returns the matrix which maps content coordinates to
// screen coordinates.
func (s *State) Transform() matrix.Matrix {
	return matrix.Matrix{s.scale, 0, 0, s.scale, s.tx, s.ty}
}

// OnDrag moves the content by (dx, dy).
func (s *State) OnDrag(dx, dy float64) {
	if !finite(dx, dy) {
		return
	}
	s.tx += dx
	s.ty += dy
	s.clamp()
}

// OnPinch multiplies the scale by delta, keeping the content point under
// the focus (fx, fy) in place.
func (s *State) OnPinch(delta, fx, fy float64) {
	if !(delta > 0) || !finite(delta, fx, fy) {
		return
	}
	s.zoomTo(s.scale*delta, fx, fy)
}

// OnDoubleTap switches between the minimum zoom level and the middle zoom
// level, keeping the content point under (x, y) in place.
func (s *State) OnDoubleTap(x, y float64) {
	if !finite(x, y) {
		return
	}
	target := s.minZoom
	if s.scale < s.MiddleZoom() {
		target = s.MiddleZoom()
	}
	s.zoomTo(target, x, y)
}

// Fling returns the velocity to use for a fling gesture.
// When zoomed in, the velocity is reduced to make scrolling easier
// to control.
func (s *State) Fling(vx, vy float64) (float64, float64) {
	if !finite(vx, vy) {
		return 0, 0
	}
	smoothing := 1.0
	if !s.Identity() {
		smoothing = 2 * s.scale
	}
	return vx / smoothing, vy / smoothing
}

func (s *State) zoomTo(scale, fx, fy float64) {
	scale = min(max(scale, s.minZoom), s.maxZoom)

	// The effective factor may differ from the requested one
	// because of clamping.
	d := scale / s.scale
	s.scale = scale

	// f - (f - t)*d keeps the point under f fixed on screen
	s.tx = fx - (fx-s.tx)*d
	s.ty = fy - (fy-s.ty)*d
	s.clamp()
}

func (s *State) clamp() {
	if s.scale <= s.minZoom {
		s.scale = s.minZoom
		s.tx, s.ty = 0, 0
		return
	}
	dx := s.width * (1 - s.scale)
	dy := s.height * (1 - s.scale)
	s.tx = clampRange(s.tx, min(dx, 0), max(dx, 0))
	s.ty = clampRange(s.ty, min(dy, 0), max(dy, 0))
}

// finite reports whether none of the values is NaN or infinite.
func finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func clampRange(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
