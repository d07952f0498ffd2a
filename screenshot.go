// screenshot.go - PNG export of a rendered frame

package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
)

// FrameImage wraps an RGBA frame from the ULA as an image without copying.
func FrameImage(frame []byte) (*image.RGBA, error) {
	want := ULA_FRAME_WIDTH * ULA_FRAME_HEIGHT * 4
	if len(frame) != want {
		return nil, fmt.Errorf("frame is %d bytes, want %d", len(frame), want)
	}
	return &image.RGBA{
		Pix:    frame,
		Stride: ULA_FRAME_WIDTH * 4,
		Rect:   image.Rect(0, 0, ULA_FRAME_WIDTH, ULA_FRAME_HEIGHT),
	}, nil
}

// SaveScreenshot writes frame to path as a PNG.
func SaveScreenshot(path string, frame []byte) error {
	img, err := FrameImage(frame)
	if err != nil {
		return fmt.Errorf("screenshot %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("screenshot %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("screenshot %s: %w", path, err)
	}
	return f.Close()
}
