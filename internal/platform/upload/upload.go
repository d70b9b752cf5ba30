// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package upload spools multipart uploads to disk so background jobs can read
them after the request has returned.

The multipart body is streamed part by part; the file part is copied to a
temporary file under a hard size limit and never held in memory. Plain form
fields are collected alongside it.
*/
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/taibuivan/truyen/internal/platform/apperr"
	"github.com/taibuivan/truyen/internal/platform/validate"
)

// maxFieldBytes bounds each non-file form field.
const maxFieldBytes = 4 << 10

// ErrTooLarge is returned when the file exceeds the configured limit.
var ErrTooLarge = validate.RequiredError("file", "File exceeds the maximum allowed size")

// File is an uploaded file that outlives its request.
type File struct {
	Name string
	Size int64

	path string
	data []byte
}

// NewMemory wraps data as a [File] held in memory.
func NewMemory(name string, data []byte) *File {
	return &File{Name: name, Size: int64(len(data)), data: data}
}

// Ext returns the lower-cased extension including the dot.
func (file *File) Ext() string {
	return strings.ToLower(filepath.Ext(file.Name))
}

// Open returns a fresh reader positioned at the start of the content.
func (file *File) Open() (io.ReadCloser, error) {
	if file.path == "" {
		return io.NopCloser(bytes.NewReader(file.data)), nil
	}
	handle, err := os.Open(file.path)
	if err != nil {
		return nil, fmt.Errorf("upload: failed to open spooled file: %w", err)
	}
	return handle, nil
}

// Remove deletes the spooled copy. Safe to call on memory files and more than once.
func (file *File) Remove() error {
	if file.path == "" {
		return nil
	}
	err := os.Remove(file.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("upload: failed to remove spooled file: %w", err)
	}
	return nil
}

/*
Spool reads a multipart request, writing the part named field to a temporary file.

Parameters:
  - request: *http.Request (multipart/form-data)
  - field: string (name of the file part)
  - maxBytes: int64 (largest accepted file)

Returns:
  - *File: the spooled file (caller must Remove it)
  - map[string]string: the other form fields
  - error: ValidationError for a missing, empty or oversized file
*/
func Spool(request *http.Request, field string, maxBytes int64) (*File, map[string]string, error) {
	reader, err := request.MultipartReader()
	if err != nil {
		return nil, nil, validate.RequiredError(field, "A multipart/form-data body is required")
	}

	values := make(map[string]string)
	var spooled *File

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			discard(spooled)
			return nil, nil, validate.RequiredError(field, "Malformed multipart body")
		}

		name := part.FormName()
		switch {
		case name == field && part.FileName() != "" && spooled == nil:
			spooled, err = spoolPart(part, maxBytes)
			if err != nil {
				_ = part.Close()
				return nil, nil, err
			}

		case part.FileName() == "":
			raw, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			if err != nil {
				discard(spooled)
				_ = part.Close()
				return nil, nil, validate.RequiredError(name, "Unreadable form field")
			}
			values[name] = strings.TrimSpace(string(raw))
		}
		_ = part.Close()
	}

	if spooled == nil {
		return nil, nil, validate.RequiredError(field, "A file is required")
	}
	if spooled.Size == 0 {
		discard(spooled)
		return nil, nil, validate.RequiredError(field, "The file is empty")
	}

	return spooled, values, nil
}

// spoolPart copies one part to a temp file, failing once maxBytes is exceeded.
func spoolPart(part *multipart.Part, maxBytes int64) (*File, error) {
	temp, err := os.CreateTemp("", "truyen-upload-*")
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("upload: failed to create temp file: %w", err))
	}

	file := &File{Name: filepath.Base(part.FileName()), path: temp.Name()}

	written, err := io.Copy(temp, io.LimitReader(part, maxBytes+1))
	closeErr := temp.Close()

	switch {
	case err != nil:
		discard(file)
		return nil, apperr.Internal(fmt.Errorf("upload: failed to spool file: %w", err))
	case closeErr != nil:
		discard(file)
		return nil, apperr.Internal(fmt.Errorf("upload: failed to close spooled file: %w", closeErr))
	case written > maxBytes:
		discard(file)
		return nil, ErrTooLarge
	}

	file.Size = written
	return file, nil
}

func discard(file *File) {
	if file != nil {
		_ = file.Remove()
	}
}
