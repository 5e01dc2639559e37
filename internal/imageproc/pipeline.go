package imageproc

import "gocv.io/x/gocv"

// Config controls the preprocessing pipeline. The zero value is not useful;
// start from DefaultConfig.
type Config struct {
	// MaxDimension bounds the longest image side before any per-pixel work.
	MaxDimension int

	// EnablePerspective turns on receipt-outline detection and warping.
	// Expensive; helps photos taken at an angle.
	EnablePerspective bool

	// EnableDeskew turns on Hough-based rotation correction. Expensive;
	// helps rotated photos.
	EnableDeskew bool

	// EnableSharpen applies an unsharp mask before thresholding. Use only
	// for blurry photos.
	EnableSharpen bool

	// SharpenStrength is the unsharp-mask amount in [0,1].
	SharpenStrength float64

	// ThresholdMethod selects gaussian or mean adaptive thresholding.
	ThresholdMethod ThresholdMethod

	// AutoCropMargin is the pixel margin kept around detected content.
	AutoCropMargin int

	// DenoiseStrength is the non-local-means filter strength.
	DenoiseStrength float32

	// OpeningSize is the side length of the despeckle opening kernel. The
	// historical default of 1 makes the opening a no-op; raise it to remove
	// speckle noise at the cost of thin strokes.
	OpeningSize int
}

// DefaultConfig mirrors the fast production defaults: geometry passes off,
// everything else on.
func DefaultConfig() Config {
	return Config{
		MaxDimension:    2000,
		SharpenStrength: 0.3,
		ThresholdMethod: ThresholdGaussian,
		AutoCropMargin:  20,
		DenoiseStrength: 10,
		OpeningSize:     1,
	}
}

// Preprocess runs the full normalization pipeline and returns a binary image
// ready for OCR. The input Mat is left untouched; the caller closes both.
//
// Order matters: resizing first bounds the cost of everything after it,
// geometry runs before photometrics because warping a thresholded image
// destroys edges, and illumination correction precedes auto-crop so shadows
// don't masquerade as content.
func Preprocess(img gocv.Mat, cfg Config) gocv.Mat {
	out := resizeMax(img, cfg.MaxDimension)

	if cfg.EnablePerspective {
		out = step(out, CorrectPerspective(out))
	}
	if cfg.EnableDeskew {
		out = step(out, Deskew(out))
	}

	out = step(out, CorrectIllumination(out))
	out = step(out, AutoCrop(out, cfg.AutoCropMargin))
	out = step(out, Denoise(out, cfg.DenoiseStrength))
	out = step(out, EnhanceContrast(out))

	if cfg.EnableSharpen {
		out = step(out, Sharpen(out, cfg.SharpenStrength))
	}

	out = step(out, Binarize(out, cfg.ThresholdMethod))
	out = step(out, MorphCleanup(out, cfg.OpeningSize))
	return out
}

// step closes the previous stage's Mat and hands back the next one, keeping
// the single-owner discipline across stage boundaries.
func step(prev, next gocv.Mat) gocv.Mat {
	prev.Close()
	return next
}
