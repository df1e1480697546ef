package ocr

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"
)

func linePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 50))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	for y := 0; y < 50; y++ {
		img.Set(100, y, color.Black)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestPreprocess(t *testing.T) {
	prepared, err := Preprocess(linePNG(t), DefaultPreprocessOptions())
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	if prepared.Format != "png" {
		t.Fatalf("unexpected format %q", prepared.Format)
	}
	if prepared.Width != 1000 || prepared.Height != 250 {
		t.Fatalf("expected 1000x250 got %dx%d", prepared.Width, prepared.Height)
	}

	decoded, err := png.Decode(bytes.NewReader(prepared.PNG))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	gray, ok := decoded.(*image.Gray)
	if !ok {
		t.Fatalf("expected grayscale output got %T", decoded)
	}
	if v := gray.GrayAt(502, 125).Y; v != 0 {
		t.Fatalf("expected stroke pixel to be black got %d", v)
	}
	if v := gray.GrayAt(10, 10).Y; v != 255 {
		t.Fatalf("expected background pixel to be white got %d", v)
	}
}

func TestPreprocessRejectsGarbage(t *testing.T) {
	if _, err := Preprocess([]byte("definitely not an image"), DefaultPreprocessOptions()); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage got %v", err)
	}
	if _, err := Preprocess(nil, DefaultPreprocessOptions()); !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage got %v", err)
	}
}

func TestPreprocessBoundsTallStrip(t *testing.T) {
	strip := image.NewGray(image.Rect(0, 0, 1, 20000))
	for i := range strip.Pix {
		strip.Pix[i] = 255
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, strip); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	opts := DefaultPreprocessOptions()
	prepared, err := Preprocess(buf.Bytes(), opts)
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	if limit := maxAspect * opts.MaxWidth; prepared.Height > limit {
		t.Fatalf("expected height <= %d got %d", limit, prepared.Height)
	}
	if area := prepared.Width * prepared.Height; area > opts.MaxPixels {
		t.Fatalf("expected area <= %d got %d", opts.MaxPixels, area)
	}
}

func TestPreprocessRejectsOversizedImage(t *testing.T) {
	opts := DefaultPreprocessOptions()
	opts.MaxPixels = 5000

	_, err := Preprocess(linePNG(t), opts)
	if !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage for a 200x50 image over a 5000 pixel budget got %v", err)
	}
}

func TestDecodeBase64Image(t *testing.T) {
	raw := linePNG(t)
	encoded := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name    string
		payload string
		wantErr error
	}{
		{"plain", encoded, nil},
		{"data url", "data:image/png;base64," + encoded, nil},
		{"wrapped lines", encoded[:40] + "\n" + encoded[40:], nil},
		{"raw encoding", base64.RawStdEncoding.EncodeToString(raw), nil},
		{"empty", "   ", ErrNoImage},
		{"prefix only", "data:image/png;base64,", ErrNoImage},
		{"not base64", "***", ErrInvalidImage},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := DecodeBase64Image(tc.payload)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !bytes.Equal(data, raw) {
				t.Fatalf("decoded payload differs")
			}
		})
	}
}

func TestCleanText(t *testing.T) {
	if got := CleanText("  |NGREDIENTS: wheat flour \n"); got != "INGREDIENTS: wheat flour" {
		t.Fatalf("unexpected cleaned text %q", got)
	}
}

func TestFailed(t *testing.T) {
	got := Failed(ErrInvalidImage)
	if got.Success || got.Error != "invalid image data" {
		t.Fatalf("unexpected failure extraction %+v", got)
	}
	if Failed(nil).Error == "" {
		t.Fatalf("failure must always carry a message")
	}
}
