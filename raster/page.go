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

package raster

import (
	"image"
	"sync"
	"sync/atomic"

	"seehuhn.de/go/geom/rect"
)

// Page is a rendered PDF page.
//
// A page owns its pixel buffer until Release is called.  After that, Image is
// nil and the buffer may be reused for other pages.
type Page struct {
	// Index is the page index within the document.
	Index int

	// DPI is the resolution used for rendering.
	DPI float64

	Image *image.RGBA

	released atomic.Bool
}

// Width returns the width of the page in pixels.
func (p *Page) Width() int {
	if p.Image == nil {
		return 0
	}
	return p.Image.Bounds().Dx()
}

// Height returns the height of the page in pixels.
func (p *Page) Height() int {
	if p.Image == nil {
		return 0
	}
	return p.Image.Bounds().Dy()
}

// Size returns the memory used by the pixel buffer, in bytes.
func (p *Page) Size() int {
	if p.Image == nil {
		return 0
	}
	return len(p.Image.Pix)
}

// Release frees the pixel buffer.  Only the first call has an effect;
// the return value reports whether this call released the page.
func (p *Page) Release() bool {
	if p == nil || !p.released.CompareAndSwap(false, true) {
		return false
	}
	recycle(p.Image)
	p.Image = nil
	return true
}

// Released reports whether Release has been called.
func (p *Page) Released() bool {
	return p.released.Load()
}

// TargetSize returns the pixel size for rendering a page of the given
// intrinsic size on a screen with the given pixel density.
// One inch is 72 PDF points.  The result is at least 1x1.
func TargetSize(size rect.Rect, densityDPI float64) (width, height int) {
	width = int(densityDPI / 72 * size.Dx())
	height = int(densityDPI / 72 * size.Dy())
	return max(width, 1), max(height, 1)
}

// pixPool holds released pixel buffers, keyed by length.
var pixPool = &bufferPool{pools: make(map[int]*sync.Pool)}

type bufferPool struct {
	mu    sync.RWMutex
	pools map[int]*sync.Pool
}

func (bp *bufferPool) get(n int) []byte {
	bp.mu.RLock()
	pool := bp.pools[n]
	bp.mu.RUnlock()

	if pool != nil {
		if buf, ok := pool.Get().(*[]byte); ok {
			return *buf
		}
	}
	return make([]byte, n)
}

func (bp *bufferPool) put(buf []byte) {
	n := len(buf)
	if n == 0 {
		return
	}

	bp.mu.RLock()
	pool := bp.pools[n]
	bp.mu.RUnlock()

	if pool == nil {
		bp.mu.Lock()
		pool = bp.pools[n]
		if pool == nil {
			pool = &sync.Pool{}
			bp.pools[n] = pool
		}
		bp.mu.Unlock()
	}
	pool.Put(&buf)
}

// newRGBA allocates an image, reusing a released pixel buffer if possible.
// The contents of the image are undefined.
func newRGBA(width, height int) *image.RGBA {
	return &image.RGBA{
		Pix:    pixPool.get(4 * width * height),
		Stride: 4 * width,
		Rect:   image.Rect(0, 0, width, height),
	}
}

func recycle(img *image.RGBA) {
	if img == nil {
		return
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if img.Stride != 4*w || len(img.Pix) != 4*w*h {
		return
	}
	pixPool.put(img.Pix)
}
