package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodeTestImage(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestResizeToFit(t *testing.T) {
	t.Run("LargeImageDownscaled", func(t *testing.T) {
		data := encodeTestImage(t, 800, 400)

		out, err := ResizeToFit(data, 200)
		if err != nil {
			t.Fatalf("ResizeToFit failed: %v", err)
		}

		img, _, err := image.Decode(bytes.NewReader(out))
		if err != nil {
			t.Fatalf("decode resized image: %v", err)
		}
		if img.Bounds().Dx() != 200 {
			t.Errorf("width = %d, want 200", img.Bounds().Dx())
		}
		if img.Bounds().Dy() != 100 {
			t.Errorf("height = %d, want 100", img.Bounds().Dy())
		}
	})

	t.Run("PortraitOrientation", func(t *testing.T) {
		data := encodeTestImage(t, 300, 600)

		out, err := ResizeToFit(data, 300)
		if err != nil {
			t.Fatalf("ResizeToFit failed: %v", err)
		}
		img, _, err := image.Decode(bytes.NewReader(out))
		if err != nil {
			t.Fatalf("decode resized image: %v", err)
		}
		if img.Bounds().Dy() != 300 {
			t.Errorf("height = %d, want 300", img.Bounds().Dy())
		}
		if img.Bounds().Dx() != 150 {
			t.Errorf("width = %d, want 150", img.Bounds().Dx())
		}
	})

	t.Run("SmallImageUntouched", func(t *testing.T) {
		data := encodeTestImage(t, 100, 80)

		out, err := ResizeToFit(data, 200)
		if err != nil {
			t.Fatalf("ResizeToFit failed: %v", err)
		}
		if !bytes.Equal(out, data) {
			t.Error("image within bounds should be returned unchanged")
		}
	})

	t.Run("GarbageInput", func(t *testing.T) {
		if _, err := ResizeToFit([]byte("not an image"), 200); err == nil {
			t.Error("expected decode error")
		}
	})
}

func TestDetectMIME(t *testing.T) {
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", encodeTestImage(t, 4, 4), "image/jpeg"},
		{"png", pngBuf.Bytes(), "image/png"},
		{"gif", []byte("GIF89a\x00\x00"), "image/gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBP"), "image/webp"},
		{"unknown", []byte("plain text here"), "application/octet-stream"},
		{"short", []byte{0xFF}, "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMIME(tt.data); got != tt.want {
				t.Errorf("DetectMIME = %q, want %q", got, tt.want)
			}
		})
	}
}
