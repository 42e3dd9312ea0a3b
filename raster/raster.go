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

// Package raster opens PDF documents and rasterizes their pages.
//
// The actual PDF interpretation is done by a Backend, which is created by an
// Engine.  This package wraps a backend into a Document, which checks page
// indices, guards against use after Close, converts backend failures into the
// error types from the pdfview package, and makes sure that rendered pages have
// exactly the requested size.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"golang.org/x/image/draw"
	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/pdfview"
)

// An Engine creates backends from the bytes of a PDF file.
type Engine interface {
	Load(data []byte) (Backend, error)
}

// EngineFunc adapts an ordinary function to the Engine interface.
type EngineFunc func(data []byte) (Backend, error)

// Load calls f(data).
func (f EngineFunc) Load(data []byte) (Backend, error) {
	return f(data)
}

// A Backend gives access to one opened PDF file.
//
// Page indices passed to a backend are always in range.  Render may be called
// concurrently from different goroutines; PageSize and NumPages must be safe
// for concurrent use as well.
type Backend interface {
	NumPages() int

	// PageSize returns the visible area of a page, in PDF points.
	PageSize(i int) (rect.Rect, error)

	// Render draws page i at the given resolution.  The size of the
	// resulting image should be close to the page size times dpi/72.
	Render(ctx context.Context, i int, dpi float64) (*image.RGBA, error)

	Close() error
}

var (
	errEmpty      = errors.New("empty input")
	errEmptyPage  = errors.New("empty page")
	errTargetSize = errors.New("invalid target size")
)

// Document is an opened PDF file.
//
// All methods are safe for concurrent use.  After Close has been called,
// all operations fail.
type Document struct {
	b        Backend
	numPages int

	mu     sync.RWMutex
	closed bool
}

// Open reads a PDF file from r and opens it using the given engine.
//
// Any failure, including read errors on r and empty input, is reported as a
// *pdfview.OpenError.
func Open(e Engine, r io.Reader) (*Document, error) {
	return open(r, e.Load)
}

func open(r io.Reader, load func([]byte) (Backend, error)) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &pdfview.OpenError{Err: err}
	}
	if len(data) == 0 {
		return nil, &pdfview.OpenError{Err: errEmpty}
	}

	b, err := load(data)
	if err != nil {
		return nil, &pdfview.OpenError{Err: err}
	}

	n := b.NumPages()
	if n < 0 {
		b.Close()
		return nil, &pdfview.OpenError{Err: fmt.Errorf("invalid page count %d", n)}
	}

	return &Document{b: b, numPages: n}, nil
}

// NumPages returns the number of pages in the document.
// The result is zero after the document has been closed.
func (d *Document) NumPages() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return 0
	}
	return d.numPages
}

// PageSize returns the intrinsic size of page i, in PDF points.
func (d *Document) PageSize(i int) (rect.Rect, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return rect.Rect{}, pdfview.ErrClosed
	}
	return d.pageSize(i)
}

func (d *Document) pageSize(i int) (rect.Rect, error) {
	err := pdfview.CheckIndex(i, d.numPages)
	if err != nil {
		return rect.Rect{}, err
	}

	size, err := d.b.PageSize(i)
	if err != nil {
		return rect.Rect{}, err
	}
	if size.Dx() <= 0 || size.Dy() <= 0 {
		return rect.Rect{}, errEmptyPage
	}
	return size, nil
}

// Render rasterizes page i into an image of exactly width x height pixels.
//
// All errors are reported as *pdfview.RenderError, including an invalid page
// index, a closed document, and cancellation of ctx.
func (d *Document) Render(ctx context.Context, i, width, height int) (*Page, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, &pdfview.RenderError{Page: i, Err: pdfview.ErrClosed}
	}
	if width <= 0 || height <= 0 {
		return nil, &pdfview.RenderError{Page: i, Err: errTargetSize}
	}

	size, err := d.pageSize(i)
	if err != nil {
		return nil, &pdfview.RenderError{Page: i, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &pdfview.RenderError{Page: i, Err: err}
	}

	dpi := 72 * float64(width) / size.Dx()
	img, err := d.render(ctx, i, dpi)
	if err != nil {
		return nil, &pdfview.RenderError{Page: i, Err: err}
	}

	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height || b.Min != (image.Point{}) {
		dst := newRGBA(width, height)
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		recycle(img)
		img = dst
	}

	return &Page{Index: i, DPI: dpi, Image: img}, nil
}

// render calls the backend, converting panics into errors.
func (d *Document) render(ctx context.Context, i int, dpi float64) (img *image.RGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = fmt.Errorf("backend panic: %v", r)
		}
	}()

	img, err = d.b.Render(ctx, i, dpi)
	if err == nil && img == nil {
		err = errEmptyPage
	}
	return img, err
}

// Close closes the document.  Close waits for running Render calls to
// finish.  Calling Close more than once returns pdfview.ErrClosed.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return pdfview.ErrClosed
	}
	d.closed = true
	return d.b.Close()
}
