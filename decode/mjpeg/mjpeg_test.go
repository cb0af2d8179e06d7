package mjpeg

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ausocean/playout/decode"
)

// writeFixture concatenates n trivial two-byte-payload JPEG images into a
// new file under dir and returns its path.
func writeFixture(t *testing.T, dir string, n int) string {
	t.Helper()
	path := filepath.Join(dir, "fixture.mjpeg")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	for i := 0; i < n; i++ {
		img := []byte{0xff, markerSOI, byte(i), 0xaa, 0xff, markerEOI}
		if _, err := f.Write(img); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestIndexFramesCountsImages(t *testing.T) {
	path := writeFixture(t, t.TempDir(), 5)
	d := New(path, 30)
	info, err := d.FileInfo()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(d.frames), 5; got != want {
		t.Fatalf("indexed %d frames, want %d", got, want)
	}
	if info.FrameRate != 30 {
		t.Errorf("FrameRate = %v, want 30", info.FrameRate)
	}
	wantDuration := 5.0 / 30
	if info.Duration != wantDuration {
		t.Errorf("Duration = %v, want %v", info.Duration, wantDuration)
	}
}

func TestNextFrameDeliversInOrderThenEOF(t *testing.T) {
	path := writeFixture(t, t.TempDir(), 3)
	d := New(path, 10)

	for i := 0; i < 3; i++ {
		fr, err := d.NextFrame()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		wantBegin := float64(i) / 10
		if fr.Time.Begin != wantBegin {
			t.Errorf("frame %d begin = %v, want %v", i, fr.Time.Begin, wantBegin)
		}
		img := fr.Image.([]byte)
		if img[2] != byte(i) {
			t.Errorf("frame %d payload tag = %v, want %v", i, img[2], i)
		}
	}
	if _, err := d.NextFrame(); err != io.EOF {
		t.Fatalf("NextFrame past end = %v, want io.EOF", err)
	}
}

func TestSeekBeforePositionsAtOrBeforeTarget(t *testing.T) {
	path := writeFixture(t, t.TempDir(), 10)
	d := New(path, 10) // 1 frame per 0.1s

	if err := d.SeekBefore(0.45); err != nil {
		t.Fatal(err)
	}
	fr, err := d.NextFrame()
	if err != nil {
		t.Fatal(err)
	}
	if fr.Time.Begin != 0.4 {
		t.Errorf("SeekBefore(0.45) landed at %v, want 0.4", fr.Time.Begin)
	}
}

func TestFileInfoMissingFileIsNotFound(t *testing.T) {
	d := New(filepath.Join(t.TempDir(), "missing.mjpeg"), 30)
	if _, err := d.FileInfo(); !errors.Is(err, decode.ErrNotFound) {
		t.Fatalf("FileInfo on a missing file = %v, want an error wrapping decode.ErrNotFound", err)
	}
}
