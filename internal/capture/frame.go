package capture

import (
	"errors"
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"
)

// DefaultJPEGQuality is used for preview stream frames.
const DefaultJPEGQuality = 80

// ErrInvalidFactor is returned for a downsample factor below 1.
var ErrInvalidFactor = errors.New("downsample factor must be at least 1")

// Frame is a captured image handed to an analysis pipeline, which owns it
// and closes it when done.
type Frame struct {
	Mat      gocv.Mat
	Seq      uint64
	Captured time.Time
	// Scale maps coordinates in Mat back to the display frame.
	Scale float64
}

// Close releases the frame's native memory.
func (f *Frame) Close() {
	if f == nil {
		return
	}
	f.Mat.Close()
}

// DownsampleSize returns the size of a cols x rows frame shrunk by factor.
func DownsampleSize(cols, rows, factor int) (image.Point, error) {
	if factor < 1 {
		return image.Point{}, fmt.Errorf("%w: %d", ErrInvalidFactor, factor)
	}

	size := image.Point{X: cols / factor, Y: rows / factor}
	if size.X < 1 || size.Y < 1 {
		return image.Point{}, fmt.Errorf("frame %dx%d too small for factor %d", cols, rows, factor)
	}
	return size, nil
}

// Downsample returns a copy of src shrunk by factor in both dimensions using
// area interpolation. A factor of 1 returns a plain clone. The caller owns
// the returned Mat; on error nothing is allocated.
func Downsample(src gocv.Mat, factor int) (gocv.Mat, error) {
	size, err := DownsampleSize(src.Cols(), src.Rows(), factor)
	if err != nil {
		return gocv.Mat{}, err
	}
	if factor == 1 {
		return src.Clone(), nil
	}

	dst := gocv.NewMat()
	gocv.Resize(src, &dst, size, 0, 0, gocv.InterpolationArea)
	return dst, nil
}

// Mirror flips mat horizontally in place.
func Mirror(mat *gocv.Mat) {
	gocv.Flip(*mat, mat, 1)
}

// EncodeJPEG encodes mat at the given quality and returns a copy of the bytes.
func EncodeJPEG(mat gocv.Mat, quality int) ([]byte, error) {
	if mat.Empty() {
		return nil, ErrEmptyFrame
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
