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

// Package pagecache keeps track of rendered PDF pages.
//
// The cache holds one state machine per page index:
//
//	Unrendered --Request--> Rendering --OnRendered--> Ready or Failed
//	Ready, Rendering, Failed --Evict--> Unrendered
//	Failed --Request--> Rendering
//
// Every transition to Rendering issues a new Ticket.  Results are only
// accepted for the ticket which is currently outstanding; all other results
// are discarded and their pages released.  This way, results which arrive
// after an eviction or a reset never become visible.
//
// A Cache is not safe for concurrent use.  It is meant to be owned by a
// single goroutine, which also receives the rendering results.
package pagecache

import (
	"errors"
	"strconv"

	"seehuhn.de/go/pdfview/raster"
)

// State is the rendering state of a page.
type State int

// These are the possible page states.
const (
	Unrendered State = iota
	Rendering
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Unrendered:
		return "unrendered"
	case Rendering:
		return "rendering"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// Entry describes the state of one page.
// Page is set if and only if State is Ready, Err only if State is Failed.
type Entry struct {
	State State
	Page  *raster.Page
	Err   error
}

// A Ticket identifies one rendering job.
type Ticket struct {
	Index int
	id    uint64
}

// ScheduleFunc starts rendering the page t.Index.  The result must be reported
// back using Cache.OnRendered, on the goroutine which owns the cache.
type ScheduleFunc func(t Ticket)

var errNoPage = errors.New("renderer returned no page")

// Cache maps page indices to rendered pages.
type Cache struct {
	numPages    int
	maxResident int
	schedule    ScheduleFunc

	entries map[int]*entry
	ready   lruList
	pending int
	lastID  uint64

	// pages in [keepLo, keepHi] are never evicted by the resident limit
	keepLo, keepHi int
}

type entry struct {
	index  int
	state  State
	ticket uint64
	page   *raster.Page
	err    error

	prev, next *entry
}

// New creates a cache for a document with the given number of pages.
//
// If maxResident is positive, at most this many pages are kept in the Ready
// state; when more pages become ready, the least recently used pages are
// evicted.  Pages in the range set by Protect are exempt, so the limit can be
// exceeded while the protected range alone holds more pages than allowed.
func New(numPages, maxResident int, schedule ScheduleFunc) *Cache {
	return &Cache{
		numPages:    max(numPages, 0),
		maxResident: maxResident,
		schedule:    schedule,
		entries:     make(map[int]*entry),
		keepLo:      0,
		keepHi:      -1,
	}
}

// Protect exempts the pages lo, ..., hi from eviction by the resident limit.
// This is normally the visible range.  An empty range (lo > hi) removes the
// protection.  Explicit calls to Evict are not affected.
func (c *Cache) Protect(lo, hi int) {
	c.keepLo, c.keepHi = lo, hi
	c.trim()
}

func (c *Cache) protected(i int) bool {
	return i >= c.keepLo && i <= c.keepHi
}

// trim evicts least recently used pages outside the protected range
// until the resident limit is met.
func (c *Cache) trim() {
	if c.maxResident <= 0 {
		return
	}
	e := c.ready.last
	for c.ready.size > c.maxResident && e != nil {
		prev := e.prev
		if !c.protected(e.index) {
			c.Evict(e.index)
		}
		e = prev
	}
}

// PageCount returns the number of pages of the current document.
func (c *Cache) PageCount() int {
	return c.numPages
}

// Get returns the state of page i.  A ready page is marked as recently used.
// Indices outside the document are reported as Unrendered.
func (c *Cache) Get(i int) Entry {
	e := c.entries[i]
	if e == nil {
		return Entry{State: Unrendered}
	}
	if e.state == Ready {
		c.ready.moveToFront(e)
	}
	return Entry{State: e.state, Page: e.page, Err: e.err}
}

// Request makes sure that page i is rendered.
//
// If the page is Unrendered or Failed, a new rendering job is scheduled and
// Request returns true.  If the page is already Rendering or Ready, or if i is
// not a valid page index, nothing happens.
func (c *Cache) Request(i int) bool {
	if i < 0 || i >= c.numPages {
		return false
	}

	e := c.entries[i]
	if e == nil {
		e = &entry{index: i}
		c.entries[i] = e
	}
	switch e.state {
	case Rendering, Ready:
		return false
	}

	c.lastID++
	e.state = Rendering
	e.ticket = c.lastID
	e.err = nil
	c.pending++

	// The entry is fully updated before calling out, so that the
	// scheduler may report the result immediately.
	c.schedule(Ticket{Index: i, id: e.ticket})
	return true
}

// OnRendered records the result of a rendering job.
//
// If the job was superseded, because the page has been evicted or the cache
// has been reset since the job was scheduled, the result is discarded and p
// is released.  The return value reports whether the result was used.
func (c *Cache) OnRendered(t Ticket, p *raster.Page, err error) bool {
	e := c.entries[t.Index]
	if e == nil || e.state != Rendering || e.ticket != t.id {
		p.Release()
		return false
	}
	c.pending--

	if err == nil && p == nil {
		err = errNoPage
	}
	if err != nil {
		p.Release()
		e.state = Failed
		e.err = err
		return true
	}

	e.state = Ready
	e.page = p
	c.ready.moveToFront(e)
	c.trim()
	return true
}

// Evict releases page i and resets it to Unrendered.
// An outstanding rendering job for the page is invalidated.
// The return value reports whether the page was in a state
// other than Unrendered.
func (c *Cache) Evict(i int) bool {
	e := c.entries[i]
	if e == nil {
		return false
	}
	c.drop(e)
	delete(c.entries, i)
	return true
}

// Reset releases all pages and prepares the cache for a new document
// with the given number of pages.  All outstanding rendering jobs
// are invalidated.
func (c *Cache) Reset(numPages int) {
	for _, e := range c.entries {
		c.drop(e)
	}
	c.entries = make(map[int]*entry)
	c.ready = lruList{}
	c.pending = 0
	c.numPages = max(numPages, 0)
	c.keepLo, c.keepHi = 0, -1
}

func (c *Cache) drop(e *entry) {
	switch e.state {
	case Ready:
		c.ready.remove(e)
		e.page.Release()
		e.page = nil
	case Rendering:
		c.pending--
	}
	e.state = Unrendered
	e.ticket = 0
	e.err = nil
}

// Resident returns the number of pages in the Ready state.
func (c *Cache) Resident() int {
	return c.ready.size
}

// Pending returns the number of pages in the Rendering state.
func (c *Cache) Pending() int {
	return c.pending
}

// ResidentBytes returns the memory used by all ready pages.
func (c *Cache) ResidentBytes() int {
	total := 0
	for e := c.ready.first; e != nil; e = e.next {
		total += e.page.Size()
	}
	return total
}
