package schemas

import (
	"fmt"
	"time"
)

// ScreenshotFormat selects the encoding of a captured frame.
type ScreenshotFormat string

const (
	FormatPNG  ScreenshotFormat = "png"
	FormatJPEG ScreenshotFormat = "jpeg"
	FormatWebP ScreenshotFormat = "webp"
)

// CaptureArea is a crop rectangle in pixels, relative to the full frame.
type CaptureArea struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ScreenshotOptions tune the capture pipeline. The zero value means a full
// frame PNG at natural scale.
type ScreenshotOptions struct {
	Format      ScreenshotFormat `json:"format,omitempty"`
	Quality     int              `json:"quality,omitempty"` // JPEG only, 1-100
	Area        *CaptureArea     `json:"area,omitempty"`
	ScaleFactor float64          `json:"scale_factor,omitempty"`
}

// Normalize fills defaults and rejects malformed options.
func (o *ScreenshotOptions) Normalize() error {
	if o.Format == "" {
		o.Format = FormatPNG
	}
	switch o.Format {
	case FormatPNG, FormatJPEG, FormatWebP:
	default:
		return fmt.Errorf("unknown screenshot format %q", o.Format)
	}
	if o.Quality == 0 {
		o.Quality = 90
	}
	if o.Quality < 1 || o.Quality > 100 {
		return fmt.Errorf("screenshot quality must be in 1..100, got %d", o.Quality)
	}
	if o.ScaleFactor < 0 {
		return fmt.Errorf("scale_factor must not be negative")
	}
	if o.Area != nil && (o.Area.Width <= 0 || o.Area.Height <= 0 || o.Area.X < 0 || o.Area.Y < 0) {
		return fmt.Errorf("capture area must have positive size and non-negative origin")
	}
	return nil
}

// Screenshot is an encoded frame plus its capture metadata. Data is the
// base64 form of the encoded bytes.
type Screenshot struct {
	Data      string           `json:"data"`
	Width     int              `json:"width"`
	Height    int              `json:"height"`
	Format    ScreenshotFormat `json:"format"`
	Size      int              `json:"size"`
	Timestamp time.Time        `json:"timestamp"`
}

// ComparisonResult is the outcome of a pixel diff between two screenshots.
// DiffImage is a base64 PNG and present only when at least one pixel differs.
type ComparisonResult struct {
	DifferencePercentage float64 `json:"difference_percentage"`
	DifferingPixels      int     `json:"differing_pixels"`
	TotalPixels          int     `json:"total_pixels"`
	DiffImage            string  `json:"diff_image,omitempty"`
}

// VisualTestResult pairs a comparison with its pass verdict against the
// requested tolerance.
type VisualTestResult struct {
	TestName   string           `json:"test_name"`
	Passed     bool             `json:"passed"`
	Tolerance  float64          `json:"tolerance"`
	Comparison ComparisonResult `json:"comparison"`
}
