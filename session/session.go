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

// Package session implements the event loop of a PDF viewer.
//
// A Session owns the current document, the page cache, the viewport
// controller and the zoom state.  All of this state is confined to a single
// goroutine, the event loop, which plays the role of the UI thread.  The
// exported methods of Session can be called from any goroutine; they pass
// their work to the event loop and wait for it to complete.
//
// Opening documents and rendering pages happens on a pool of background
// workers.  Finished pages are handed back to the event loop in completion
// order.  Pages which are no longer needed when they arrive, because the
// user scrolled away or a different document was opened, are released
// immediately.
//
// Documents are reference counted: every render job holds a reference to the
// document it was started for.  When a new document is opened, the previous
// one is closed once its last job has reported back.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"

	"seehuhn.de/go/geom/matrix"

	"seehuhn.de/go/pdfview"
	"seehuhn.de/go/pdfview/internal/workpool"
	"seehuhn.de/go/pdfview/pagecache"
	"seehuhn.de/go/pdfview/raster"
	"seehuhn.de/go/pdfview/viewport"
	"seehuhn.de/go/pdfview/zoompan"
)

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = errors.New("session is closed")

// Session is a PDF viewer session.
type Session struct {
	engine raster.Engine
	opt    Options
	log    *slog.Logger
	pool   *workpool.Pool

	ctx    context.Context
	cancel context.CancelFunc

	events    chan func()
	quit      chan struct{}
	loopDone  chan struct{}
	closeOnce sync.Once
	closeErr  error

	// The following fields are only accessed from the event loop.
	cur   *docHandle
	docs  []*docHandle // documents which are not yet closed
	gen   uint64
	jobs  int // render jobs which have not reported back
	cache *pagecache.Cache
	view  *viewport.Controller
	zoom  *zoompan.State
	idle  []chan struct{}
}

// docHandle is a reference counted document.
type docHandle struct {
	doc     *raster.Document
	gen     uint64
	refs    int
	retired bool
	closed  bool
}

// New starts a new session which uses the given engine to open documents.
// The session must be closed after use.
func New(engine raster.Engine, opt *Options) *Session {
	o := opt.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		engine:   engine,
		opt:      o,
		log:      o.Logger,
		pool:     workpool.New(o.Workers),
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan func()),
		quit:     make(chan struct{}),
		loopDone: make(chan struct{}),
		zoom:     zoompan.New(o.MinZoom, o.MaxZoom),
	}
	s.cache = pagecache.New(0, o.MaxResident, s.schedule)
	s.view = viewport.New(s.cache, o.Margin)
	s.view.SetLimit(o.MaxResident)

	go s.loop()
	return s
}

func (s *Session) loop() {
	defer close(s.loopDone)
	for {
		select {
		case f := <-s.events:
			f()
		case <-s.quit:
			return
		}
	}
}

// post hands f to the event loop.  The result is false if the session
// has been closed.
func (s *Session) post(f func()) bool {
	select {
	case s.events <- f:
		return true
	case <-s.quit:
		return false
	}
}

// do runs f on the event loop and waits for it to finish.
func (s *Session) do(f func()) error {
	done := make(chan struct{})
	ok := s.post(func() {
		defer close(done)
		f()
	})
	if !ok {
		return ErrSessionClosed
	}
	<-done
	return nil
}

// Open reads a PDF file from r and makes it the current document.
//
// Reading and parsing happen on a background worker.  If the file cannot be
// opened, a *pdfview.OpenError is returned and the current document remains
// unchanged.  On success, all pages of the previous document are released and
// the zoom state is reset.
func (s *Session) Open(ctx context.Context, r io.Reader) error {
	return s.OpenEncrypted(ctx, r, "")
}

// OpenEncrypted is like Open, but uses password to decrypt the file.
// The engine must implement raster.PasswordEngine.  If the password is
// missing or wrong, the returned error wraps pdfview.ErrNeedsPassword.
func (s *Session) OpenEncrypted(ctx context.Context, r io.Reader, password string) error {
	select {
	case <-s.quit:
		return ErrSessionClosed
	default:
	}

	type result struct {
		doc *raster.Document
		err error
	}
	c := make(chan result, 1)
	s.pool.Go(func() {
		doc, err := raster.OpenEncrypted(s.engine, r, password)
		c <- result{doc, err}
	})

	var res result
	select {
	case res = <-c:
	case <-ctx.Done():
		go func() {
			if res := <-c; res.doc != nil {
				res.doc.Close()
			}
		}()
		return &pdfview.OpenError{Err: ctx.Err()}
	}
	if res.err != nil {
		s.log.Warn("cannot open document", "err", res.err)
		return res.err
	}

	err := s.do(func() { s.install(res.doc) })
	if err != nil {
		res.doc.Close()
		return err
	}
	return nil
}

func (s *Session) install(doc *raster.Document) {
	old := s.cur

	s.gen++
	h := &docHandle{doc: doc, gen: s.gen}
	s.cur = h
	s.docs = append(s.docs, h)

	s.cache.Reset(doc.NumPages())
	s.view.Reset()
	s.zoom.Reset()
	s.log.Info("document opened", "pages", doc.NumPages(), "gen", h.gen)

	if old != nil {
		old.retired = true
		s.release(old)
	}
	s.checkIdle()
}

// release closes h if it is retired and no render jobs use it any more.
func (s *Session) release(h *docHandle) {
	if !h.retired || h.refs > 0 || h.closed {
		return
	}
	h.closed = true
	for i, d := range s.docs {
		if d == h {
			s.docs = append(s.docs[:i], s.docs[i+1:]...)
			break
		}
	}
	s.pool.Go(func() {
		err := h.doc.Close()
		if err != nil {
			s.log.Warn("cannot close document", "gen", h.gen, "err", err)
		}
	})
}

// schedule starts a render job for the current document.
// This is called by the page cache, on the event loop.
func (s *Session) schedule(t pagecache.Ticket) {
	h := s.cur
	h.refs++
	s.jobs++
	dpi := s.opt.DPI
	s.log.Debug("render", "page", t.Index, "gen", h.gen)

	s.pool.Go(func() {
		page, err := s.render(h.doc, t.Index, dpi)
		ok := s.post(func() { s.finish(h, t, page, err) })
		if !ok {
			page.Release()
		}
	})
}

// render runs on a worker.  Panics are turned into render errors,
// so that a broken page never takes down the viewer.
func (s *Session) render(doc *raster.Document, i int, dpi float64) (page *raster.Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			page = nil
			err = &pdfview.RenderError{Page: i, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	size, err := doc.PageSize(i)
	if err != nil {
		return nil, &pdfview.RenderError{Page: i, Err: err}
	}
	w, h := raster.TargetSize(size, dpi)
	return doc.Render(s.ctx, i, w, h)
}

// finish runs on the event loop when a render job completes.
func (s *Session) finish(h *docHandle, t pagecache.Ticket, page *raster.Page, err error) {
	h.refs--
	s.jobs--

	applied := s.cache.OnRendered(t, page, err)
	switch {
	case !applied:
		s.log.Debug("discarded late page", "page", t.Index, "gen", h.gen)
	case err != nil:
		s.log.Warn("cannot render page", "page", t.Index, "err", err)
	}
	if applied && s.opt.OnPageChanged != nil {
		s.opt.OnPageChanged(t.Index)
	}

	s.release(h)
	s.checkIdle()
}

func (s *Session) checkIdle() {
	if s.jobs > 0 {
		return
	}
	for _, c := range s.idle {
		close(c)
	}
	s.idle = s.idle[:0]
}

// WaitIdle waits until all render jobs have reported back,
// including jobs whose results are no longer needed.
func (s *Session) WaitIdle(ctx context.Context) error {
	c := make(chan struct{})
	err := s.do(func() {
		s.idle = append(s.idle, c)
		s.checkIdle()
	})
	if err != nil {
		return err
	}
	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.quit:
		return ErrSessionClosed
	}
}

// PageCount returns the number of pages of the current document.
func (s *Session) PageCount() int {
	var n int
	s.do(func() { n = s.view.PageCount() })
	return n
}

// VisibleRangeChanged must be called when the pages first, ..., last become
// visible.  Pages near this range are rendered, pages further away are
// released.
func (s *Session) VisibleRangeChanged(first, last int) viewport.Delta {
	var d viewport.Delta
	s.do(func() {
		d = s.view.OnVisibleRangeChanged(first, last)
		if !d.IsEmpty() {
			s.log.Debug("visible range changed",
				"first", first, "last", last,
				"requested", len(d.Requested), "evicted", len(d.Evicted))
		}
	})
	return d
}

// PageContent returns the state of page i.
//
// The Page field of the result is owned by the session and may be released
// at any time after PageContent returns.  Use ViewPage to access the pixels.
func (s *Session) PageContent(i int) viewport.Content {
	var c viewport.Content
	s.do(func() { c = s.view.Content(i) })
	return c
}

// ViewPage calls fn with the state of page i.  The call happens on the event
// loop; the page image is valid until fn returns.  fn must not call methods of
// the Session.
func (s *Session) ViewPage(i int, fn func(c viewport.Content)) error {
	return s.do(func() { fn(s.view.Content(i)) })
}

// CopyPage returns a copy of the image of page i, or nil if the page is not
// rendered yet.
func (s *Session) CopyPage(i int) *image.RGBA {
	var res *image.RGBA
	s.ViewPage(i, func(c viewport.Content) {
		if c.Page == nil {
			return
		}
		img := c.Page.Image
		res = &image.RGBA{
			Pix:    append([]byte(nil), img.Pix...),
			Stride: img.Stride,
			Rect:   img.Rect,
		}
	})
	return res
}

// Resize sets the size of the view, in screen pixels.
func (s *Session) Resize(width, height float64) {
	s.do(func() { s.zoom.SetContentSize(width, height) })
}

// Drag moves the view by (dx, dy) screen pixels.
func (s *Session) Drag(dx, dy float64) {
	s.do(func() { s.zoom.OnDrag(dx, dy) })
}

// Pinch changes the zoom level by the factor delta around (fx, fy).
func (s *Session) Pinch(delta, fx, fy float64) {
	s.do(func() { s.zoom.OnPinch(delta, fx, fy) })
}

// DoubleTap toggles between the minimum and the middle zoom level.
func (s *Session) DoubleTap(x, y float64) {
	s.do(func() { s.zoom.OnDoubleTap(x, y) })
}

// Fling converts the velocity of a fling gesture for the current zoom level.
func (s *Session) Fling(vx, vy float64) (float64, float64) {
	s.do(func() { vx, vy = s.zoom.Fling(vx, vy) })
	return vx, vy
}

// ApplyTransform returns the scale and translation to use when drawing.
func (s *Session) ApplyTransform() (scale, tx, ty float64) {
	s.do(func() {
		scale = s.zoom.Scale()
		t := s.zoom.Translation()
		tx, ty = t.X, t.Y
	})
	return scale, tx, ty
}

// Transform returns the drawing transformation as a matrix.
func (s *Session) Transform() matrix.Matrix {
	m := matrix.Identity
	s.do(func() { m = s.zoom.Transform() })
	return m
}

// Stats describes the memory use of a session.
type Stats struct {
	Generation    uint64 // counts the documents opened so far
	Pages         int
	Resident      int
	ResidentBytes int
	Pending       int
	Jobs          int
	OpenDocuments int
}

// Stats returns information about the pages held by the session.
func (s *Session) Stats() Stats {
	var st Stats
	s.do(func() {
		st = Stats{
			Generation:    s.gen,
			Pages:         s.cache.PageCount(),
			Resident:      s.cache.Resident(),
			ResidentBytes: s.cache.ResidentBytes(),
			Pending:       s.cache.Pending(),
			Jobs:          s.jobs,
			OpenDocuments: len(s.docs),
		}
	})
	return st
}

// Close stops the session, releases all pages and closes all documents.
// Running render jobs are cancelled.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		close(s.quit)
		<-s.loopDone
		s.pool.Wait()

		// The event loop has stopped, so it is safe to access its state here.
		s.cache.Reset(0)
		var errs []error
		for _, h := range s.docs {
			if !h.closed {
				h.closed = true
				errs = append(errs, h.doc.Close())
			}
		}
		s.docs = nil
		s.cur = nil
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
