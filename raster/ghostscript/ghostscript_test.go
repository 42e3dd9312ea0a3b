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

package ghostscript

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/pdfview/internal/testpdf"
	"seehuhn.de/go/pdfview/raster"
)

func TestRender(t *testing.T) {
	if !IsAvailable() {
		t.Skip("ghostscript not found")
	}

	sizes := []rect.Rect{
		{URx: 144, URy: 72},
		{URx: 72, URy: 144},
	}
	doc, err := raster.Open(Engine{Dir: t.TempDir()}, bytes.NewReader(testpdf.Make(sizes...)))
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()

	if doc.NumPages() != 2 {
		t.Fatalf("wrong page count %d", doc.NumPages())
	}
	var got []rect.Rect
	for i := range 2 {
		size, err := doc.PageSize(i)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, size)
	}
	if d := cmp.Diff(sizes, got); d != "" {
		t.Errorf("page sizes (-want +got):\n%s", d)
	}

	w, h := raster.TargetSize(sizes[1], 72)
	page, err := doc.Render(context.Background(), 1, w, h)
	if err != nil {
		t.Fatal(err)
	}
	defer page.Release()
	if page.Width() != 72 || page.Height() != 144 {
		t.Errorf("wrong size %dx%d", page.Width(), page.Height())
	}

	// lower left corner is covered by the grey square
	dark := page.Image.RGBAAt(10, 134)
	light := page.Image.RGBAAt(60, 10)
	if dark.R > 128 || light.R < 200 {
		t.Errorf("unexpected page contents: dark=%v light=%v", dark, light)
	}
}

func TestCloseRemovesFiles(t *testing.T) {
	if !IsAvailable() {
		t.Skip("ghostscript not found")
	}

	parent := t.TempDir()
	b, err := Engine{Dir: parent}.Load(testpdf.Make(rect.Rect{URx: 10, URy: 10}))
	if err != nil {
		t.Fatal(err)
	}
	dir := b.(*backend).dir
	err = b.Close()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("%s was not removed", dir)
	}
}

// fakeGS prints a warning on stdout and copies the PNG file named by
// $FAKE_GS_PNG to the output file, like gs does for a damaged file.
const fakeGS = `#!/bin/sh
while [ $# -gt 0 ]; do
	if [ "$1" = "-o" ]; then out="$2"; fi
	shift
done
echo "   **** Warning: An error occurred while reading an XREF table."
cp "$FAKE_GS_PNG" "$out"
`

func TestWarningKeepsImage(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "gs")
	if err := os.WriteFile(script, []byte(fakeGS), 0o755); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(dir, "page.png")
	fd, err := os.Create(src)
	if err != nil {
		t.Fatal(err)
	}
	err = png.Encode(fd, image.NewRGBA(image.Rect(0, 0, 20, 10)))
	fd.Close()
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("FAKE_GS_PNG", src)

	saved := gsCommand
	gsCommand = script
	defer func() { gsCommand = saved }()

	logBuf := &bytes.Buffer{}
	b := &backend{
		dir:     dir,
		pdfName: filepath.Join(dir, "document.pdf"),
		logger:  slog.New(slog.NewTextHandler(logBuf, nil)),
		sizes:   []rect.Rect{{URx: 20, URy: 10}},
	}
	img, err := b.Render(context.Background(), 0, 72)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 10 {
		t.Errorf("wrong image size %v", img.Bounds())
	}
	if !strings.Contains(logBuf.String(), "XREF table") {
		t.Errorf("warning was not logged: %q", logBuf.String())
	}
}
