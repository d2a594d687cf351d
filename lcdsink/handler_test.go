// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsink

import (
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestServeSnapshotPNG(t *testing.T) {
	d := mustNew(t, 2, 16)
	if _, err := d.WriteString("Hello"); err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != d.Bounds() {
		t.Errorf("decoded bounds = %v, want %v", img.Bounds(), d.Bounds())
	}
}

func TestServeSnapshotJPEG(t *testing.T) {
	d := mustNew(t, 2, 16)
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?format=jpeg", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q", ct)
	}
	if _, err := jpeg.Decode(rec.Body); err != nil {
		t.Fatal(err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		value string
		want  ImageFormat
		ok    bool
	}{
		{"png", PNG, true},
		{"jpg", JPEG, true},
		{"jpeg", JPEG, true},
		{"bmp", 0, false},
		{"PNG", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseFormat(tt.value)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("parseFormat(%q) = %v, %t, want %v, %t", tt.value, got, ok, tt.want, tt.ok)
		}
	}
}

func TestServeBadFormat(t *testing.T) {
	d := mustNew(t, 2, 16)
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?format=bmp", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestServeMethodNotAllowed(t *testing.T) {
	d := mustNew(t, 2, 16)
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
