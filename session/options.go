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

package session

import (
	"log/slog"

	"seehuhn.de/go/pdfview/viewport"
	"seehuhn.de/go/pdfview/zoompan"
)

// DefaultDPI is the default screen resolution.
// This is the density of a medium density phone screen.
const DefaultDPI = 160

// Options control the behaviour of a Session.
// A nil *Options is equivalent to a zero Options value.
type Options struct {
	// DPI is the pixel density of the screen.  Pages are rendered at
	// DPI/72 pixels per PDF point.  If this is zero, DefaultDPI is used.
	DPI float64

	// Margin is the number of pages on either side of the visible range
	// which are rendered in advance.  If this is zero,
	// viewport.DefaultMargin is used.  Use a negative value to disable
	// prefetching.
	Margin int

	// MaxResident, if positive, limits the number of rendered pages kept
	// in memory.  The margin is reduced to fit the limit.  Visible pages
	// are never dropped, so the limit is exceeded while more than
	// MaxResident pages are visible.
	MaxResident int

	// Workers is the number of pages which can be rendered concurrently.
	// If this is zero, the number of CPUs is used.
	Workers int

	// MinZoom and MaxZoom give the range of allowed zoom levels.
	// If these are zero, zoompan.DefaultMinZoom and zoompan.DefaultMaxZoom
	// are used.
	MinZoom, MaxZoom float64

	// Logger receives diagnostic messages.  If this is nil,
	// messages are discarded.
	Logger *slog.Logger

	// OnPageChanged, if set, is called when rendering of a page finishes,
	// successfully or not.  The function runs on the event loop and must
	// not call methods of the Session.
	OnPageChanged func(index int)
}

func (opt *Options) withDefaults() Options {
	var res Options
	if opt != nil {
		res = *opt
	}
	if res.DPI <= 0 {
		res.DPI = DefaultDPI
	}
	switch {
	case res.Margin == 0:
		res.Margin = viewport.DefaultMargin
	case res.Margin < 0:
		res.Margin = 0
	}
	if res.MinZoom <= 0 {
		res.MinZoom = zoompan.DefaultMinZoom
	}
	if res.MaxZoom <= 0 {
		res.MaxZoom = zoompan.DefaultMaxZoom
	}
	if res.Logger == nil {
		res.Logger = slog.New(slog.DiscardHandler)
	}
	return res
}
