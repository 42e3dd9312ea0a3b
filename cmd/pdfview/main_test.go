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

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/pdfview"
	"seehuhn.de/go/pdfview/raster/rastertest"
	"seehuhn.de/go/pdfview/session"
)

func TestPageRange(t *testing.T) {
	type testCase struct {
		first, last, n int
		from, to       int
		ok             bool
	}
	cases := []testCase{
		{1, 0, 5, 0, 4, true},
		{2, 3, 5, 1, 2, true},
		{1, 9, 5, 0, 4, true},
		{5, 5, 5, 4, 4, true},
		{0, 3, 5, 0, 0, false},
		{4, 2, 5, 0, 0, false},
		{1, 0, 0, 0, 0, false},
	}
	for _, c := range cases {
		from, to, err := pageRange(c.first, c.last, c.n)
		if (err == nil) != c.ok {
			t.Errorf("pageRange(%d, %d, %d): err = %v", c.first, c.last, c.n, err)
			continue
		}
		if c.ok && (from != c.from || to != c.to) {
			t.Errorf("pageRange(%d, %d, %d) = %d, %d, want %d, %d",
				c.first, c.last, c.n, from, to, c.from, c.to)
		}
	}
}

func TestGetEngine(t *testing.T) {
	for _, name := range []string{"fitz", "MuPDF", "gs", "ghostscript"} {
		if _, err := getEngine(name, nil); err != nil {
			t.Errorf("getEngine(%q): %v", name, err)
		}
	}
	if _, err := getEngine("pdfium", nil); err == nil {
		t.Error("unknown engine accepted")
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.pdf")
	err := os.WriteFile(input, []byte("%PDF-1.7\n"), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "out")

	stderr, err := os.Create(filepath.Join(dir, "stderr"))
	if err != nil {
		t.Fatal(err)
	}
	defer stderr.Close()

	b := rastertest.New(5, rect.Rect{URx: 36, URy: 48})
	cfg := &config{
		input:  input,
		outDir: outDir,
		first:  2,
		last:   4,
		window: 2,
		opt:    &session.Options{DPI: 72},
	}
	err = run(context.Background(), b.Engine(), cfg, stderr)
	if err != nil {
		t.Fatal(err)
	}

	for page := 1; page <= 5; page++ {
		name := filepath.Join(outDir, fmt.Sprintf("page-%04d.png", page))
		_, err := os.Stat(name)
		want := page >= 2 && page <= 4
		if got := err == nil; got != want {
			t.Errorf("page %d: file exists = %t, want %t", page, got, want)
		}
	}
}

func TestRunPassword(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.pdf")
	err := os.WriteFile(input, []byte("%PDF-1.7\n"), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	stderr, err := os.Create(filepath.Join(dir, "stderr"))
	if err != nil {
		t.Fatal(err)
	}
	defer stderr.Close()

	b := rastertest.New(2, rect.Rect{URx: 36, URy: 48})
	b.Password = "secret"
	for _, pwd := range []string{"", "secret"} {
		cfg := &config{
			input:    input,
			outDir:   filepath.Join(dir, "out"),
			first:    1,
			window:   2,
			password: pwd,
			opt:      &session.Options{DPI: 72},
		}
		err = run(context.Background(), b.Engine(), cfg, stderr)
		if pwd == "" && !errors.Is(err, pdfview.ErrNeedsPassword) {
			t.Errorf("missing password: %v", err)
		} else if pwd != "" && err != nil {
			t.Errorf("with password: %v", err)
		}
	}
}

func TestStatusLine(t *testing.T) {
	buf := &bytes.Buffer{}
	sl := &statusLine{w: buf, width: 40}

	sl.pageDone(0) // before the range is known
	sl.setRange(2, 5)
	for _, i := range []int{1, 2, 3, 3, 6, 4, 5} {
		sl.pageDone(i)
	}
	sl.finish()

	out := buf.String()
	if !strings.Contains(out, "rendering: 4/4 pages") {
		t.Errorf("final status missing: %q", out)
	}
	for _, bad := range []string{"5/4", "6/4", "0/"} {
		if strings.Contains(out, bad) {
			t.Errorf("unexpected status %q in %q", bad, out)
		}
	}
}
