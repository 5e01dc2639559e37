package imageproc

import (
	"fmt"
	"image"
	"strings"

	"gocv.io/x/gocv"
)

// ThresholdMethod selects how the adaptive threshold weighs the pixel
// neighborhood.
type ThresholdMethod string

const (
	ThresholdGaussian ThresholdMethod = "gaussian"
	ThresholdMean     ThresholdMethod = "mean"
)

// ParseThresholdMethod converts a user-supplied method name.
func ParseThresholdMethod(s string) (ThresholdMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gaussian", "":
		return ThresholdGaussian, nil
	case "mean":
		return ThresholdMean, nil
	}
	return ThresholdGaussian, fmt.Errorf("unknown threshold method %q (valid: gaussian, mean)", s)
}

// AutoCrop trims the image to its content bounding box plus a margin. The
// content mask comes from an inverted Otsu threshold; if it is empty the
// input is returned unchanged.
func AutoCrop(img gocv.Mat, margin int) gocv.Mat {
	gray := toGray(img)
	defer gray.Close()

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(gray, &mask, 0, 255, gocv.ThresholdBinaryInv|gocv.ThresholdOtsu)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()
	if contours.Size() == 0 {
		return img.Clone()
	}

	box := gocv.BoundingRect(contours.At(0))
	for i := 1; i < contours.Size(); i++ {
		box = box.Union(gocv.BoundingRect(contours.At(i)))
	}

	box = image.Rect(box.Min.X-margin, box.Min.Y-margin, box.Max.X+margin, box.Max.Y+margin)
	box = box.Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))
	if box.Empty() {
		return img.Clone()
	}

	region := img.Region(box)
	defer region.Close()
	return region.Clone()
}

// Binarize applies adaptive thresholding with an 11px neighborhood and a
// constant offset of 2. A single global threshold fails on receipts because
// lighting stays uneven even after illumination correction.
func Binarize(img gocv.Mat, method ThresholdMethod) gocv.Mat {
	gray := toGray(img)
	defer gray.Close()

	adaptive := gocv.AdaptiveThresholdGaussian
	if method == ThresholdMean {
		adaptive = gocv.AdaptiveThresholdMean
	}

	binary := gocv.NewMat()
	gocv.AdaptiveThreshold(gray, &binary, 255, adaptive, gocv.ThresholdBinary, 11, 2)
	return binary
}

// MorphCleanup bridges characters broken by noise with a small horizontal
// closing, then removes speckles with an opening of the configured size. An
// openingSize of 1 leaves the opening a no-op.
func MorphCleanup(img gocv.Mat, openingSize int) gocv.Mat {
	gray := toGray(img)
	defer gray.Close()

	closeKernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(2, 1))
	defer closeKernel.Close()

	connected := gocv.NewMat()
	defer connected.Close()
	gocv.MorphologyEx(gray, &connected, gocv.MorphClose, closeKernel)

	if openingSize < 1 {
		openingSize = 1
	}
	openKernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(openingSize, openingSize))
	defer openKernel.Close()

	cleaned := gocv.NewMat()
	gocv.MorphologyEx(connected, &cleaned, gocv.MorphOpen, openKernel)
	return cleaned
}
