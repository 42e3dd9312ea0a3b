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

package fitz

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/pdfview"
	"seehuhn.de/go/pdfview/internal/testpdf"
	"seehuhn.de/go/pdfview/raster"
)

var testSizes = []rect.Rect{
	{URx: 200, URy: 100},
	{URx: 612, URy: 792},
	{URx: 300, URy: 300},
}

func TestPageGeometry(t *testing.T) {
	doc, err := raster.Open(Engine{}, bytes.NewReader(testpdf.Make(testSizes...)))
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()

	if n := doc.NumPages(); n != len(testSizes) {
		t.Fatalf("got %d pages, want %d", n, len(testSizes))
	}
	var got []rect.Rect
	for i := range doc.NumPages() {
		size, err := doc.PageSize(i)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, size)
	}
	if d := cmp.Diff(testSizes, got); d != "" {
		t.Errorf("page sizes (-want +got):\n%s", d)
	}
}

func TestRender(t *testing.T) {
	doc, err := raster.Open(Engine{}, bytes.NewReader(testpdf.Make(testSizes...)))
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()

	size, err := doc.PageSize(0)
	if err != nil {
		t.Fatal(err)
	}
	w, h := raster.TargetSize(size, 144)
	page, err := doc.Render(context.Background(), 0, w, h)
	if err != nil {
		t.Fatal(err)
	}
	defer page.Release()

	if page.Width() != 400 || page.Height() != 200 {
		t.Errorf("wrong size %dx%d", page.Width(), page.Height())
	}

	// The square covers the lower left quarter, the rest is white.
	dark := page.Image.RGBAAt(20, 180)
	light := page.Image.RGBAAt(380, 20)
	if dark.R > 128 || light.R < 200 {
		t.Errorf("unexpected page contents: dark=%v light=%v", dark, light)
	}
}

func TestNotPDF(t *testing.T) {
	_, err := raster.Open(Engine{}, bytes.NewReader([]byte("this is not a PDF file")))
	var openErr *pdfview.OpenError
	if !errors.As(err, &openErr) {
		t.Errorf("expected OpenError, got %v", err)
	}
}
