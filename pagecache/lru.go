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

package pagecache

// lruList is a doubly linked list of the ready pages,
// most recently used first.
type lruList struct {
	first, last *entry
	size        int
}

// moveToFront marks e as most recently used.
// If e is not yet in the list, it is added.
func (l *lruList) moveToFront(e *entry) {
	if e == l.first {
		return
	}

	if e.prev != nil || e.next != nil || e == l.last {
		l.unlink(e)
	}
	l.size++

	e.prev = nil
	e.next = l.first
	if l.first != nil {
		l.first.prev = e
	}
	l.first = e
	if l.last == nil {
		l.last = e
	}
}

// remove takes e out of the list.
func (l *lruList) remove(e *entry) {
	if e != l.first && e.prev == nil && e.next == nil && e != l.last {
		return
	}
	l.unlink(e)
}

func (l *lruList) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		l.first = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		l.last = e.prev
	}
	e.prev = nil
	e.next = nil
	l.size--
}
