package screenshots

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	return img
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage()); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSave_Layout(t *testing.T) {
	root := t.TempDir()
	s := NewFileStore(root, testLogger())
	loc := Location{Folder: "Computer Science", Course: "Algorithms", Set: "Dynamic Programming", Problem: "Knapsack Problem"}

	rel, err := s.Save(loc, pngBytes(t))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if rel != "Computer_Science/Algorithms/Dynamic_Programming/Knapsack_Problem.png" {
		t.Errorf("Save() path = %q", rel)
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel))); err != nil {
		t.Errorf("file not written: %v", err)
	}
}

func TestSave_Extensions(t *testing.T) {
	tests := []struct {
		name    string
		data    func(t *testing.T) []byte
		wantExt string
		wantErr error
	}{
		{name: "png", data: pngBytes, wantExt: ".png"},
		{name: "jpeg", data: jpegBytes, wantExt: ".jpg"},
		{name: "text", data: func(*testing.T) []byte { return []byte("hello, world") }, wantErr: ErrUnsupportedImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewFileStore(t.TempDir(), testLogger())
			rel, err := s.Save(Location{Folder: "F", Course: "C", Set: "S", Problem: "p"}, tt.data(t))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Save() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if filepath.Ext(rel) != tt.wantExt {
				t.Errorf("extension = %q, want %q", filepath.Ext(rel), tt.wantExt)
			}
		})
	}
}

func TestSave_NeverOverwrites(t *testing.T) {
	s := NewFileStore(t.TempDir(), testLogger())
	loc := Location{Folder: "F", Course: "C", Set: "S", Problem: "same"}

	first, err := s.Save(loc, pngBytes(t))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second, err := s.Save(loc, pngBytes(t))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if first != "F/C/S/same.png" || second != "F/C/S/same-2.png" {
		t.Errorf("paths = %q, %q", first, second)
	}
}

func TestSave_SanitizesSegments(t *testing.T) {
	s := NewFileStore(t.TempDir(), testLogger())
	loc := Location{Folder: "../../etc", Course: "a/b", Set: "  ", Problem: `what? "why"`}

	rel, err := s.Save(loc, pngBytes(t))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if rel != "etc/ab/untitled/what_why.png" {
		t.Errorf("Save() path = %q", rel)
	}
}

func TestRemove(t *testing.T) {
	root := t.TempDir()
	s := NewFileStore(root, testLogger())

	rel, err := s.Save(Location{Folder: "F", Course: "C", Set: "S", Problem: "p"}, pngBytes(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(rel); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel))); !os.IsNotExist(err) {
		t.Error("file still present after Remove()")
	}
}
