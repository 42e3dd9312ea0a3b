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

// Pdfview renders pages of a PDF file to PNG images.
//
// The pages are rendered the way a viewer would render them while the user
// scrolls through the document: a few pages at a time, with pages outside the
// current window released as soon as they are no longer needed.
//
// Usage:
//
//	pdfview [options] input.pdf outdir
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"seehuhn.de/go/pdfview"
	"seehuhn.de/go/pdfview/raster"
	"seehuhn.de/go/pdfview/raster/fitz"
	"seehuhn.de/go/pdfview/raster/ghostscript"
	"seehuhn.de/go/pdfview/session"
	"seehuhn.de/go/pdfview/viewport"
)

var termGetSize = term.GetSize

func main() {
	engineName := flag.String("engine", "fitz", "rendering engine (fitz or gs)")
	dpi := flag.Float64("dpi", session.DefaultDPI, "screen resolution in dots per inch")
	first := flag.Int("first", 1, "first page to render (1-based)")
	last := flag.Int("last", 0, "last page to render (1-based, 0 for the last page)")
	window := flag.Int("window", 2, "number of pages visible at a time")
	margin := flag.Int("margin", viewport.DefaultMargin, "number of pages to prefetch on each side")
	workers := flag.Int("workers", 0, "number of concurrent render jobs (0 for one per CPU)")
	password := flag.String("password", "", "password for encrypted files (gs engine only)")
	verbose := flag.Bool("v", false, "log render events to stderr")
	flag.Parse()

	if flag.NArg() < 2 {
		fmt.Printf("Usage: %s [options] input.pdf outdir\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	var logger *slog.Logger
	if *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}

	engine, err := getEngine(*engineName, logger)
	if err != nil {
		log.Fatal(err)
	}

	cfg := &config{
		input:    flag.Arg(0),
		outDir:   flag.Arg(1),
		first:    *first,
		last:     *last,
		window:   *window,
		password: *password,
		opt: &session.Options{
			Logger:  logger,
			DPI:     *dpi,
			Margin:  *margin,
			Workers: *workers,
		},
	}
	if *margin == 0 {
		cfg.opt.Margin = -1
	}

	err = run(context.Background(), engine, cfg, os.Stderr)
	if err != nil {
		log.Fatal(err)
	}
}

func getEngine(name string, logger *slog.Logger) (raster.Engine, error) {
	switch strings.ToLower(name) {
	case "fitz", "mupdf":
		return fitz.Engine{}, nil
	case "gs", "ghostscript":
		return ghostscript.Engine{Logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown engine %q", name)
	}
}

type config struct {
	input    string
	outDir   string
	first    int
	last     int
	window   int
	password string
	opt      *session.Options
}

func run(ctx context.Context, engine raster.Engine, cfg *config, stderr *os.File) error {
	fd, err := os.Open(cfg.input)
	if err != nil {
		return &pdfview.OpenError{Err: err}
	}
	defer fd.Close()

	err = os.MkdirAll(cfg.outDir, 0o755)
	if err != nil {
		return err
	}

	status := newStatusLine(stderr)
	cfg.opt.OnPageChanged = status.pageDone

	s := session.New(engine, cfg.opt)
	defer s.Close()

	err = s.OpenEncrypted(ctx, fd, cfg.password)
	if errors.Is(err, pdfview.ErrNeedsPassword) && cfg.password == "" {
		return fmt.Errorf("%w (use -password)", err)
	} else if err != nil {
		return err
	}

	n := s.PageCount()
	from, to, err := pageRange(cfg.first, cfg.last, n)
	if err != nil {
		return err
	}
	status.setRange(from, to)

	step := max(cfg.window, 1)
	var failed []int
	peak := 0
	for lo := from; lo <= to; lo += step {
		hi := min(lo+step-1, to)
		s.VisibleRangeChanged(lo, hi)
		err := s.WaitIdle(ctx)
		if err != nil {
			return err
		}
		peak = max(peak, s.Stats().Resident)

		for i := lo; i <= hi; i++ {
			err := writePage(s, i, cfg.outDir)
			if errors.Is(err, errNotReady) {
				failed = append(failed, i+1)
			} else if err != nil {
				return err
			}
		}
	}
	status.finish()

	fmt.Fprintf(stderr, "rendered %d of %d pages, at most %d pages in memory\n",
		to-from+1-len(failed), to-from+1, peak)
	if len(failed) > 0 {
		return fmt.Errorf("could not render pages %v", failed)
	}
	return nil
}

// pageRange converts 1-based page numbers into a range of page indices.
func pageRange(first, last, numPages int) (int, int, error) {
	if numPages == 0 {
		return 0, 0, errors.New("document has no pages")
	}
	if last <= 0 || last > numPages {
		last = numPages
	}
	if first < 1 || first > last {
		return 0, 0, fmt.Errorf("invalid page range %d-%d", first, last)
	}
	return first - 1, last - 1, nil
}

var errNotReady = errors.New("page not rendered")

func writePage(s *session.Session, i int, outDir string) error {
	img := s.CopyPage(i)
	if img == nil {
		return errNotReady
	}

	name := filepath.Join(outDir, fmt.Sprintf("page-%04d.png", i+1))
	out, err := os.Create(name)
	if err != nil {
		return err
	}
	err = png.Encode(out, img)
	if err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// statusLine shows progress on a terminal.  On other outputs it stays silent.
type statusLine struct {
	w        io.Writer
	width    int
	from, to int
	done     map[int]bool
}

// setRange selects the pages which count towards the progress.
// Prefetched pages outside the range are not counted.
func (sl *statusLine) setRange(from, to int) {
	sl.from, sl.to = from, to
	sl.done = make(map[int]bool)
}

func newStatusLine(f *os.File) *statusLine {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return &statusLine{w: io.Discard}
	}
	width, _, err := termGetSize(fd)
	if err != nil || width <= 0 {
		width = 80
	}
	return &statusLine{w: f, width: width}
}

// pageDone is called on the session's event loop.
func (sl *statusLine) pageDone(i int) {
	if sl.done == nil || i < sl.from || i > sl.to || sl.done[i] {
		return
	}
	sl.done[i] = true
	msg := fmt.Sprintf("rendering: %d/%d pages", len(sl.done), sl.to-sl.from+1)
	if len(msg) > sl.width-1 {
		msg = msg[:max(sl.width-1, 0)]
	}
	fmt.Fprintf(sl.w, "\r%-*s", max(sl.width-1, 0), msg)
}

func (sl *statusLine) finish() {
	if len(sl.done) > 0 {
		fmt.Fprintln(sl.w)
	}
}
