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

// Package viewport decides which pages need to be rendered.
//
// The controller keeps the pages of the visible range, plus a margin of
// pages on each side, in the page cache.  Pages which leave this window are
// evicted, so that the number of resident pages does not depend on the length
// of the document.
package viewport

import (
	"slices"

	"seehuhn.de/go/pdfview"
	"seehuhn.de/go/pdfview/pagecache"
	"seehuhn.de/go/pdfview/raster"
)

// DefaultMargin is the number of pages kept on each side of the visible range.
const DefaultMargin = 1

// Cache is the part of the page cache used by the controller.
type Cache interface {
	PageCount() int
	Get(i int) pagecache.Entry
	Request(i int) bool
	Evict(i int) bool
	Protect(lo, hi int)
}

// Delta lists the changes caused by a change of the visible range.
type Delta struct {
	Requested []int // pages for which rendering was started
	Evicted   []int // pages which were released
}

// IsEmpty reports whether the delta contains no changes.
func (d Delta) IsEmpty() bool {
	return len(d.Requested) == 0 && len(d.Evicted) == 0
}

// Controller tracks the visible range of a page list.
type Controller struct {
	cache  Cache
	margin int
	limit  int

	// tracked holds the pages of the current window.
	tracked map[int]struct{}
	lo, hi  int
}

// New creates a controller.  A negative margin is treated as zero.
func New(cache Cache, margin int) *Controller {
	return &Controller{
		cache:   cache,
		margin:  max(margin, 0),
		tracked: make(map[int]struct{}),
		lo:      0,
		hi:      -1,
	}
}

// Margin returns the number of prefetched pages on each side.
func (c *Controller) Margin() int {
	return c.margin
}

// SetLimit restricts the window to at most n pages.  The margin is reduced
// as needed; the visible pages themselves are always kept, even if there are
// more than n of them.  A value n <= 0 removes the limit.
func (c *Controller) SetLimit(n int) {
	c.limit = max(n, 0)
}

// PageCount returns the number of pages in the current document.
func (c *Controller) PageCount() int {
	return c.cache.PageCount()
}

// Window returns the range of pages currently kept in the cache.
// If ok is false, no pages are kept.
func (c *Controller) Window() (lo, hi int, ok bool) {
	return c.lo, c.hi, c.lo <= c.hi
}

// OnVisibleRangeChanged must be called when the pages first, ..., last
// become visible.
//
// All pages in [first-margin, last+margin] are requested from the cache, all
// previously tracked pages outside this window are evicted.  Pages which are
// already tracked are only requested again if they have been dropped or have
// failed.  Calling the method repeatedly with the same range has no further
// effect.
//
// Out of range values are clamped to the document; if first > last the two
// are swapped.  The visible pages are protected from eviction by the
// resident limit of the cache.
func (c *Controller) OnVisibleRangeChanged(first, last int) Delta {
	n := c.cache.PageCount()
	if first > last {
		first, last = last, first
	}

	lo, hi := 0, -1
	if n > 0 {
		first = pdfview.ClampIndex(first, n)
		last = pdfview.ClampIndex(last, n)
		m := c.margin
		if c.limit > 0 {
			m = min(m, max((c.limit-(last-first+1))/2, 0))
		}
		lo = max(first-m, 0)
		hi = min(last+m, n-1)
		c.cache.Protect(first, last)
	} else {
		c.cache.Protect(0, -1)
	}

	var delta Delta
	for i := range c.tracked {
		if i < lo || i > hi {
			delete(c.tracked, i)
			if c.cache.Evict(i) {
				delta.Evicted = append(delta.Evicted, i)
			}
		}
	}
	slices.Sort(delta.Evicted)

	for i := lo; i <= hi; i++ {
		if _, seen := c.tracked[i]; seen {
			switch c.cache.Get(i).State {
			case pagecache.Rendering, pagecache.Ready:
				continue
			}
		}
		c.tracked[i] = struct{}{}
		if c.cache.Request(i) {
			delta.Requested = append(delta.Requested, i)
		}
	}

	c.lo, c.hi = lo, hi
	return delta
}

// Reset forgets the tracked pages.  This must be called after the cache has
// been reset for a new document.
func (c *Controller) Reset() {
	clear(c.tracked)
	c.lo, c.hi = 0, -1
}

// Content is what a page slot shows.
type Content struct {
	Index int
	State pagecache.State
	Page  *raster.Page // nil unless State is Ready
	Err   error
}

// Placeholder reports whether the slot shows a placeholder instead of the
// rendered page.
func (c Content) Placeholder() bool {
	return c.Page == nil
}

// Content returns what should be shown for page i.
func (c *Controller) Content(i int) Content {
	e := c.cache.Get(i)
	return Content{Index: i, State: e.State, Page: e.Page, Err: e.Err}
}
