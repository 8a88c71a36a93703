// File: internal/visual/tester.go

// Package visual captures, encodes and compares page frames for visual
// regression testing.
package visual

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"
	"github.com/tinkertool/tinker/api/schemas"
	"github.com/tinkertool/tinker/internal/errs"
	"go.uber.org/zap"
	"golang.org/x/image/webp"
)

// baselinePrefix names stored reference frames: baseline_<test>.png.
const baselinePrefix = "baseline_"

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Tester owns the screenshot directory and the comparison pipeline.
type Tester struct {
	logger *zap.Logger
	dir    string
}

// NewTester creates the screenshot directory if needed.
func NewTester(logger *zap.Logger, dir string) (*Tester, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating screenshot directory %s: %w", dir, err)
	}
	return &Tester{logger: logger.Named("visual"), dir: dir}, nil
}

// Dir returns the screenshot directory.
func (t *Tester) Dir() string {
	return t.dir
}

// CaptureFromData turns a raw RGBA frame into an encoded Screenshot,
// applying the optional crop and Lanczos rescale first.
func (t *Tester) CaptureFromData(rgba []byte, width, height int, opts schemas.ScreenshotOptions) (*schemas.Screenshot, error) {
	if err := opts.Normalize(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d", width, height)
	}
	if len(rgba) != width*height*4 {
		return nil, fmt.Errorf("frame data is %d bytes, want %d for %dx%d RGBA",
			len(rgba), width*height*4, width, height)
	}

	t.logger.Debug("Capturing screenshot from raw data",
		zap.Int("width", width), zap.Int("height", height))

	img := &image.NRGBA{
		Pix:    append([]byte(nil), rgba...),
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}

	var out *image.NRGBA = img
	if opts.Area != nil {
		a := opts.Area
		if a.X+a.Width > width || a.Y+a.Height > height {
			return nil, fmt.Errorf("capture area %dx%d at (%d,%d) exceeds frame %dx%d",
				a.Width, a.Height, a.X, a.Y, width, height)
		}
		out = imaging.Crop(out, image.Rect(a.X, a.Y, a.X+a.Width, a.Y+a.Height))
	}

	if opts.ScaleFactor != 0 && opts.ScaleFactor != 1.0 {
		w := int(float64(out.Bounds().Dx()) * opts.ScaleFactor)
		h := int(float64(out.Bounds().Dy()) * opts.ScaleFactor)
		if w <= 0 || h <= 0 {
			return nil, fmt.Errorf("scale factor %v collapses the frame", opts.ScaleFactor)
		}
		out = imaging.Resize(out, w, h, imaging.Lanczos)
	}

	encoded, err := encodeImage(out, opts.Format, opts.Quality)
	if err != nil {
		return nil, err
	}

	shot := &schemas.Screenshot{
		Data:      base64.StdEncoding.EncodeToString(encoded),
		Width:     out.Bounds().Dx(),
		Height:    out.Bounds().Dy(),
		Format:    opts.Format,
		Size:      len(encoded),
		Timestamp: time.Now().UTC(),
	}

	t.logger.Info("Screenshot captured",
		zap.Int("width", shot.Width), zap.Int("height", shot.Height),
		zap.String("format", string(shot.Format)), zap.Int("bytes", shot.Size))
	return shot, nil
}

// Compare diffs two screenshots pixel by pixel. A pixel differs when its
// normalized Euclidean RGBA distance exceeds tolerance. When anything
// differs, a diff image is produced with differing pixels in red over a
// dimmed copy of the first frame.
func (t *Tester) Compare(a, b *schemas.Screenshot, tolerance float64) (*schemas.ComparisonResult, error) {
	imgA, err := decodeScreenshot(a)
	if err != nil {
		return nil, err
	}
	imgB, err := decodeScreenshot(b)
	if err != nil {
		return nil, err
	}

	ba, bb := imgA.Bounds(), imgB.Bounds()
	if ba.Dx() != bb.Dx() || ba.Dy() != bb.Dy() {
		return nil, &errs.DimensionMismatchError{
			AWidth: ba.Dx(), AHeight: ba.Dy(),
			BWidth: bb.Dx(), BHeight: bb.Dy(),
		}
	}

	width, height := ba.Dx(), ba.Dy()
	totalPixels := width * height

	pixA := imaging.Clone(imgA)
	pixB := imaging.Clone(imgB)
	diff := image.NewNRGBA(image.Rect(0, 0, width, height))

	differing := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			offA := pixA.PixOffset(x, y)
			offB := pixB.PixOffset(x, y)
			pa := pixA.Pix[offA : offA+4 : offA+4]
			pb := pixB.Pix[offB : offB+4 : offB+4]

			if pixelDistance(pa, pb) > tolerance {
				differing++
				diff.SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
			} else {
				diff.SetNRGBA(x, y, color.NRGBA{
					R: pa[0] / 2,
					G: pa[1] / 2,
					B: pa[2] / 2,
					A: pa[3],
				})
			}
		}
	}

	result := &schemas.ComparisonResult{
		DifferencePercentage: float64(differing) / float64(totalPixels),
		DifferingPixels:      differing,
		TotalPixels:          totalPixels,
	}

	if differing > 0 {
		var buf bytes.Buffer
		if err := png.Encode(&buf, diff); err != nil {
			return nil, fmt.Errorf("encoding diff image: %w", err)
		}
		result.DiffImage = base64.StdEncoding.EncodeToString(buf.Bytes())
	}

	t.logger.Info("Visual comparison complete",
		zap.Float64("difference", result.DifferencePercentage),
		zap.Int("differing_pixels", differing),
		zap.Int("total_pixels", totalPixels))
	return result, nil
}

// SaveScreenshot writes the encoded bytes under the screenshot directory,
// appending the format extension when missing. Returns the full path.
func (t *Tester) SaveScreenshot(shot *schemas.Screenshot, filename string) (string, error) {
	ext := formatExtension(shot.Format)
	name := sanitizeName(filename)
	if !strings.HasSuffix(name, "."+ext) {
		name += "." + ext
	}

	data, err := base64.StdEncoding.DecodeString(shot.Data)
	if err != nil {
		return "", fmt.Errorf("decoding screenshot data: %w", err)
	}

	path := filepath.Join(t.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing screenshot %s: %w", path, err)
	}

	t.logger.Info("Screenshot saved", zap.String("path", path))
	return path, nil
}

// CreateBaseline stores the screenshot as baseline_<name>.png, re-encoding
// to PNG when the capture used another format.
func (t *Tester) CreateBaseline(shot *schemas.Screenshot, testName string) (string, error) {
	pngShot := shot
	if shot.Format != schemas.FormatPNG {
		img, err := decodeScreenshot(shot)
		if err != nil {
			return "", err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return "", fmt.Errorf("re-encoding baseline to png: %w", err)
		}
		pngShot = &schemas.Screenshot{
			Data:      base64.StdEncoding.EncodeToString(buf.Bytes()),
			Width:     shot.Width,
			Height:    shot.Height,
			Format:    schemas.FormatPNG,
			Size:      buf.Len(),
			Timestamp: shot.Timestamp,
		}
	}
	return t.SaveScreenshot(pngShot, baselinePrefix+sanitizeName(testName))
}

// LoadBaseline reads baseline_<name>.png back as a Screenshot.
func (t *Tester) LoadBaseline(testName string) (*schemas.Screenshot, error) {
	path := filepath.Join(t.dir, baselinePrefix+sanitizeName(testName)+".png")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading baseline %s: %w", testName, err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding baseline %s: %w", testName, err)
	}

	return &schemas.Screenshot{
		Data:      base64.StdEncoding.EncodeToString(data),
		Width:     img.Bounds().Dx(),
		Height:    img.Bounds().Dy(),
		Format:    schemas.FormatPNG,
		Size:      len(data),
		Timestamp: time.Now().UTC(),
	}, nil
}

// RunTest compares a capture against the stored baseline and reports a
// verdict: passed iff the difference fraction is within tolerance.
func (t *Tester) RunTest(current *schemas.Screenshot, testName string, tolerance float64) (*schemas.VisualTestResult, error) {
	baseline, err := t.LoadBaseline(testName)
	if err != nil {
		return nil, err
	}
	cmp, err := t.Compare(baseline, current, tolerance)
	if err != nil {
		return nil, err
	}
	return &schemas.VisualTestResult{
		TestName:   testName,
		Passed:     cmp.DifferencePercentage <= tolerance,
		Tolerance:  tolerance,
		Comparison: *cmp,
	}, nil
}

// pixelDistance is the normalized Euclidean distance between two RGBA
// pixels: 0 for identical, 1 for maximally distant.
func pixelDistance(a, b []byte) float64 {
	var sum float64
	for i := 0; i < 4; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum) / (255.0 * 2.0)
}

func encodeImage(img image.Image, format schemas.ScreenshotFormat, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case schemas.FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encoding png: %w", err)
		}
	case schemas.FormatJPEG:
		// JPEG carries no alpha; flatten to RGB first.
		rgb := imaging.Clone(img)
		if err := jpeg.Encode(&buf, rgb, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encoding jpeg: %w", err)
		}
	case schemas.FormatWebP:
		if err := nativewebp.Encode(&buf, img, nil); err != nil {
			return nil, fmt.Errorf("encoding webp: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown screenshot format %q", format)
	}
	return buf.Bytes(), nil
}

func decodeScreenshot(shot *schemas.Screenshot) (image.Image, error) {
	data, err := base64.StdEncoding.DecodeString(shot.Data)
	if err != nil {
		return nil, fmt.Errorf("decoding screenshot data: %w", err)
	}

	switch shot.Format {
	case schemas.FormatWebP:
		img, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding webp screenshot: %w", err)
		}
		return img, nil
	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding screenshot: %w", err)
		}
		return img, nil
	}
}

// formatExtension returns the file extension for a screenshot format.
func formatExtension(f schemas.ScreenshotFormat) string {
	return string(f)
}

// sanitizeName strips path components and characters that could escape the
// screenshot directory.
func sanitizeName(name string) string {
	name = filepath.Base(name)
	name = unsafeNameChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." {
		name = "unnamed"
	}
	return name
}
