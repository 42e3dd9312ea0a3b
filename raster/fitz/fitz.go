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

// Package fitz renders PDF pages using MuPDF, via github.com/gen2brain/go-fitz.
package fitz

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	gofitz "github.com/gen2brain/go-fitz"
	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/pdfview"
	"seehuhn.de/go/pdfview/raster"
)

// Engine opens documents with MuPDF.
// Encrypted documents are rejected with pdfview.ErrNeedsPassword.
type Engine struct{}

// Load implements the raster.Engine interface.
func (Engine) Load(data []byte) (raster.Backend, error) {
	doc, err := gofitz.NewFromMemory(data)
	if errors.Is(err, gofitz.ErrNeedsPassword) {
		// go-fitz cannot authenticate, so encrypted files cannot be opened
		doc.Close()
		return nil, fmt.Errorf("mupdf: %w", pdfview.ErrNeedsPassword)
	} else if err != nil {
		return nil, fmt.Errorf("mupdf: %w", err)
	}
	return &backend{
		doc:      doc,
		numPages: doc.NumPage(),
	}, nil
}

// backend serialises all access to the MuPDF document,
// since a fitz document cannot be used from several threads at once.
type backend struct {
	mu       sync.Mutex
	doc      *gofitz.Document
	numPages int
}

func (b *backend) NumPages() int {
	return b.numPages
}

func (b *backend) PageSize(i int) (rect.Rect, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bounds, err := b.doc.Bound(i)
	if err != nil {
		return rect.Rect{}, fmt.Errorf("mupdf: page %d: %w", i, err)
	}
	return rect.Rect{
		LLx: float64(bounds.Min.X),
		LLy: float64(bounds.Min.Y),
		URx: float64(bounds.Max.X),
		URy: float64(bounds.Max.Y),
	}, nil
}

func (b *backend) Render(ctx context.Context, i int, dpi float64) (*image.RGBA, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// MuPDF cannot be interrupted, so we only check before starting.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := b.doc.ImageDPI(i, dpi)
	if err != nil {
		return nil, fmt.Errorf("mupdf: page %d: %w", i, err)
	}
	return img, nil
}

func (b *backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.doc.Close()
}
