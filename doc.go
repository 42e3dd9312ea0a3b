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

// Package pdfview is the core of a page-by-page PDF viewer.
//
// The subpackages split the viewer into independent parts:
//
//	raster     opens documents and rasterizes pages (fitz and ghostscript backends)
//	pagecache  keeps the rendered pages, one state machine per page index
//	viewport   decides which pages are needed for the visible range
//	zoompan    scale and translation for pinch, drag and double tap gestures
//	session    ties everything together around a single event loop
//
// A typical front end creates a session, opens a file and then reports the
// visible range whenever the user scrolls:
//
//	s := session.New(fitz.Engine{}, nil)
//	defer s.Close()
//	err := s.Open(ctx, fd)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	s.VisibleRangeChanged(0, 1)
//
// This package contains the error types shared by the subpackages.
package pdfview
