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

// Package rastertest provides an in-memory raster backend for tests.
//
// The backend does not interpret PDF data.  Pages are filled with a solid
// colour which depends on the page index, and every call is counted so that
// tests can check how often a page was rendered.
package rastertest

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/pdfview"
	"seehuhn.de/go/pdfview/raster"
)

// Letter is the size of a US Letter page in PDF points.
var Letter = rect.Rect{URx: 612, URy: 792}

// ErrNotPDF is returned by Engine for data without a PDF header.
var ErrNotPDF = errors.New("missing %PDF header")

// Backend is a fake raster.Backend.
type Backend struct {
	Sizes []rect.Rect

	// Gate, if non-nil, blocks every Render call until a value can be
	// received from the channel or ctx is cancelled.
	Gate chan struct{}

	// Fail and Panic select pages for which Render fails.
	Fail  map[int]error
	Panic map[int]bool

	// Password, if set, must be given to open the document.
	Password string

	mu      sync.Mutex
	renders map[int]int
	active  int
	closed  int
}

// New returns a backend with n pages of the given size.
func New(n int, size rect.Rect) *Backend {
	sizes := make([]rect.Rect, n)
	for i := range sizes {
		sizes[i] = size
	}
	return &Backend{Sizes: sizes}
}

// Engine returns an engine which hands out b for every input which starts
// with "%PDF".  The engine implements raster.PasswordEngine.
func (b *Backend) Engine() raster.Engine {
	return engine{b}
}

type engine struct {
	b *Backend
}

func (e engine) Load(data []byte) (raster.Backend, error) {
	return e.LoadEncrypted(data, "")
}

func (e engine) LoadEncrypted(data []byte, password string) (raster.Backend, error) {
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, ErrNotPDF
	}
	if password != e.b.Password {
		return nil, pdfview.ErrNeedsPassword
	}
	return e.b, nil
}

// NumPages implements the raster.Backend interface.
func (b *Backend) NumPages() int {
	return len(b.Sizes)
}

// PageSize implements the raster.Backend interface.
func (b *Backend) PageSize(i int) (rect.Rect, error) {
	return b.Sizes[i], nil
}

// Render implements the raster.Backend interface.
func (b *Backend) Render(ctx context.Context, i int, dpi float64) (*image.RGBA, error) {
	b.mu.Lock()
	if b.renders == nil {
		b.renders = make(map[int]int)
	}
	b.renders[i]++
	b.active++
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.active--
		b.mu.Unlock()
	}()

	if b.Gate != nil {
		select {
		case <-b.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if b.Panic[i] {
		panic("page is cursed")
	}
	if err := b.Fail[i]; err != nil {
		return nil, err
	}

	size := b.Sizes[i]
	w := int(math.Round(size.Dx() * dpi / 72))
	h := int(math.Round(size.Dy() * dpi / 72))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(Colour(i)), image.Point{}, draw.Src)
	return img, nil
}

// Close implements the raster.Backend interface.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
	if b.active > 0 {
		return errors.New("closed during render")
	}
	return nil
}

// Renders returns how often page i has been rendered.
func (b *Backend) Renders(i int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.renders[i]
}

// TotalRenders returns the number of Render calls for all pages.
func (b *Backend) TotalRenders() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, n := range b.renders {
		total += n
	}
	return total
}

// Closed returns how often Close has been called.
func (b *Backend) Closed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Colour returns the fill colour used for page i.
func Colour(i int) color.RGBA {
	return color.RGBA{R: uint8(40 * i), G: uint8(255 - 10*i), B: 128, A: 255}
}
