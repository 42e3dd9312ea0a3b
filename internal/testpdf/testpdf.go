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

// Package testpdf writes small PDF files for use in unit tests.
package testpdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"seehuhn.de/go/geom/rect"
)

// Make returns a PDF file with one page for every entry of sizes.
// Each page shows a dark grey square in the lower left corner.
func Make(sizes ...rect.Rect) []byte {
	buf := &bytes.Buffer{}
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	obj("<< /Type /Catalog /Pages 2 0 R >>")

	kids := &bytes.Buffer{}
	for i := range sizes {
		if i > 0 {
			kids.WriteByte(' ')
		}
		fmt.Fprintf(kids, "%d 0 R", 3+2*i)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(sizes)))

	for i, size := range sizes {
		side := min(size.Dx(), size.Dy()) / 2
		content := fmt.Sprintf("0.2 g %g %g %g %g re f\n", size.LLx, size.LLy, side, side)
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [%g %g %g %g] /Contents %d 0 R >>",
			size.LLx, size.LLy, size.URx, size.URy, 4+2*i))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xref)

	return buf.Bytes()
}

// WriteFile writes the output of Make to a file in a temporary directory
// and returns the file name.
func WriteFile(t *testing.T, sizes ...rect.Rect) string {
	t.Helper()

	name := filepath.Join(t.TempDir(), "test.pdf")
	err := os.WriteFile(name, Make(sizes...), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	return name
}
