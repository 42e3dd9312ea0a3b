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

package pdfview

import (
	"errors"
	"strconv"
)

// ErrClosed is returned by operations on a document which has been closed.
var ErrClosed = errors.New("document is closed")

// ErrNeedsPassword indicates that a document is encrypted and the
// password was missing or wrong.
var ErrNeedsPassword = errors.New("document needs a password")

// OpenError indicates that a PDF file could not be opened.
// This covers malformed or empty input as well as read errors
// on the underlying stream.
type OpenError struct {
	Err error
}

func (err *OpenError) Error() string {
	middle := ""
	if err.Err != nil {
		middle = ": " + err.Err.Error()
	}
	return "could not open file" + middle
}

func (err *OpenError) Unwrap() error {
	return err.Err
}

// IndexError indicates that a page index was outside the range [0, Count).
type IndexError struct {
	Index int
	Count int
}

func (err *IndexError) Error() string {
	return "page index " + strconv.Itoa(err.Index) +
		" out of range [0, " + strconv.Itoa(err.Count) + ")"
}

// RenderError indicates that a page could not be rasterized.
// Render errors are transient: the page may be retried later.
type RenderError struct {
	Page int
	Err  error
}

func (err *RenderError) Error() string {
	middle := ""
	if err.Err != nil {
		middle = ": " + err.Err.Error()
	}
	return "cannot render page " + strconv.Itoa(err.Page) + middle
}

func (err *RenderError) Unwrap() error {
	return err.Err
}

// CheckIndex returns an *IndexError if i is not a valid page index
// for a document with n pages.
func CheckIndex(i, n int) error {
	if i < 0 || i >= n {
		return &IndexError{Index: i, Count: n}
	}
	return nil
}

// ClampIndex forces i into the range [0, n-1].
// The result is -1 if n is zero.
func ClampIndex(i, n int) int {
	if n <= 0 {
		return -1
	}
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
