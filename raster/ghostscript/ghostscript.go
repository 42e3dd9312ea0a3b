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

// Package ghostscript renders PDF pages by running the ghostscript
// command-line tool.
//
// The document is written to a temporary directory when it is loaded.  Page
// count and page sizes are read with pdfcpu; every call to Render starts a
// separate gs process which writes a PNG image.  Renders for different pages
// can run concurrently.
package ghostscript

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/pdfview"
	"seehuhn.de/go/pdfview/raster"
)

// KeepTempFiles can be set to keep the temporary files for debugging.
var KeepTempFiles = false

// ErrNoGhostscript is returned if the ghostscript command-line tool is not
// available.
var ErrNoGhostscript = errors.New("cannot run ghostscript")

// Engine opens documents for rendering with ghostscript.
type Engine struct {
	// Dir is the parent directory for temporary files.
	// If this is empty, the default directory for temporary files is used.
	Dir string

	// Logger receives warnings printed by ghostscript.
	// If this is nil, the warnings are discarded.
	Logger *slog.Logger
}

// Load implements the raster.Engine interface.
func (e Engine) Load(data []byte) (raster.Backend, error) {
	return e.LoadEncrypted(data, "")
}

// LoadEncrypted implements the raster.PasswordEngine interface.
// The password is used both for reading the page sizes and for rendering.
func (e Engine) LoadEncrypted(data []byte, password string) (raster.Backend, error) {
	if !IsAvailable() {
		return nil, ErrNoGhostscript
	}

	dir, err := os.MkdirTemp(e.Dir, "pdfview")
	if err != nil {
		return nil, err
	}
	b := &backend{
		dir:      dir,
		pdfName:  filepath.Join(dir, "document.pdf"),
		password: password,
		logger:   e.Logger,
	}
	if b.logger == nil {
		b.logger = slog.New(slog.DiscardHandler)
	}

	err = os.WriteFile(b.pdfName, data, 0o600)
	if err != nil {
		b.Close()
		return nil, err
	}

	pdfcpuOnce.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	dims, err := api.PageDims(bytes.NewReader(data), conf)
	if err != nil {
		b.Close()
		if errors.Is(err, pdfcpu.ErrWrongPassword) {
			return nil, fmt.Errorf("reading page sizes: %w", pdfview.ErrNeedsPassword)
		}
		return nil, fmt.Errorf("reading page sizes: %w", err)
	}
	b.sizes = make([]rect.Rect, len(dims))
	for i, dim := range dims {
		b.sizes[i] = rect.Rect{URx: dim.Width, URy: dim.Height}
	}

	return b, nil
}

type backend struct {
	dir      string
	pdfName  string
	password string
	logger   *slog.Logger
	sizes    []rect.Rect
	seq      atomic.Int64
}

func (b *backend) NumPages() int {
	return len(b.sizes)
}

func (b *backend) PageSize(i int) (rect.Rect, error) {
	return b.sizes[i], nil
}

func (b *backend) Render(ctx context.Context, i int, dpi float64) (*image.RGBA, error) {
	pngName := filepath.Join(b.dir, fmt.Sprintf("page%04d-%d.png", i+1, b.seq.Add(1)))

	pageNo := strconv.Itoa(i + 1)
	args := []string{
		"-q", "-dSAFER", "-dBATCH", "-dNOPAUSE",
		"-sDEVICE=png16m", "-r" + strconv.FormatFloat(dpi, 'f', 3, 64),
		"-dTextAlphaBits=4", "-dGraphicsAlphaBits=4",
		"-dFirstPage=" + pageNo, "-dLastPage=" + pageNo,
	}
	if b.password != "" {
		args = append(args, "-sPDFPassword="+b.password)
	}
	args = append(args, "-o", pngName, b.pdfName)
	cmd := exec.CommandContext(ctx, gsCommand, args...)
	cmd.Dir = b.dir
	cmd.Stdin = nil
	cmd.Stderr = nil
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ghostscript: %w", err)
	}
	if len(out) > 0 {
		// gs reports recoverable problems with the file on stdout
		b.logger.Warn("ghostscript output", "page", i, "output", string(bytes.TrimSpace(out)))
	}

	fd, err := os.Open(pngName)
	if err != nil {
		return nil, err
	}
	img, err := png.Decode(fd)
	fd.Close()
	if !KeepTempFiles {
		os.Remove(pngName)
	}
	if err != nil {
		return nil, err
	}

	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba, nil
}

func (b *backend) Close() error {
	if KeepTempFiles {
		return nil
	}
	return os.RemoveAll(b.dir)
}

// IsAvailable returns true if the ghostscript command-line tool is available
// and supports the png16m output device.
func IsAvailable() bool {
	gsOnce.Do(func() {
		out, err := exec.Command(gsCommand, "-h").Output()
		if err != nil {
			gsFound = false
			return
		}
		gsFound = gsPNGRe.Match(out)
	})
	return gsFound
}

// gsCommand is the name of the ghostscript executable.
var gsCommand = "gs"

var (
	gsOnce  sync.Once
	gsPNGRe = regexp.MustCompile(`\bpng16m\b`)
	gsFound bool

	pdfcpuOnce sync.Once
)
