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

package raster

import (
	"errors"
	"io"

	"github.com/xdg-go/stringprep"

	"seehuhn.de/go/pdfview"
)

// A PasswordEngine is an Engine which can open encrypted documents.
type PasswordEngine interface {
	Engine

	// LoadEncrypted opens a document using the given password.  The
	// password has already been normalized by PreparePassword.
	LoadEncrypted(data []byte, password string) (Backend, error)
}

// ErrInvalidPassword is returned if a password contains characters which
// are not allowed in PDF passwords.
var ErrInvalidPassword = errors.New("invalid password")

var errNoPasswords = errors.New("engine does not support encrypted documents")

// PreparePassword normalizes a password using the SASLprep profile,
// as required for the AES-256 security handler.  The result is
// truncated to 127 bytes.
func PreparePassword(password string) (string, error) {
	prepped, err := stringprep.SASLprep.Prepare(password)
	if err != nil {
		return "", ErrInvalidPassword
	}
	if len(prepped) > 127 {
		prepped = prepped[:127]
	}
	return prepped, nil
}

// OpenEncrypted is like Open, but uses the given password to decrypt
// the document.  An empty password is the same as calling Open.
//
// If e does not implement PasswordEngine, or if the password is
// invalid, a *pdfview.OpenError is returned.
func OpenEncrypted(e Engine, r io.Reader, password string) (*Document, error) {
	if password == "" {
		return Open(e, r)
	}

	pe, ok := e.(PasswordEngine)
	if !ok {
		return nil, &pdfview.OpenError{Err: errNoPasswords}
	}
	prepped, err := PreparePassword(password)
	if err != nil {
		return nil, &pdfview.OpenError{Err: err}
	}
	return open(r, func(data []byte) (Backend, error) {
		return pe.LoadEncrypted(data, prepped)
	})
}
