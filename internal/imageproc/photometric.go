package imageproc

import (
	"image"

	"gocv.io/x/gocv"
)

// Structuring element size for background estimation. Large enough that text
// strokes vanish from the opening and only the illumination gradient remains.
const illuminationKernelSize = 25

// resizeMax downscales so that the longest side is at most maxDim, using area
// interpolation. Images are never upscaled.
func resizeMax(img gocv.Mat, maxDim int) gocv.Mat {
	w := img.Cols()
	h := img.Rows()
	longest := max(w, h)
	if maxDim <= 0 || longest <= maxDim {
		return img.Clone()
	}

	scale := float64(maxDim) / float64(longest)
	resized := gocv.NewMat()
	gocv.Resize(img, &resized, image.Pt(int(float64(w)*scale), int(float64(h)*scale)), 0, 0, gocv.InterpolationArea)
	return resized
}

// CorrectIllumination removes shadows and uneven lighting. The background is
// estimated with a morphological opening using a large elliptical kernel,
// subtracted from the grayscale image, and the inverted result is stretched
// back to the full [0,255] range. No fixed threshold is involved, so it holds
// up across very different exposures.
func CorrectIllumination(img gocv.Mat) gocv.Mat {
	gray := toGray(img)
	defer gray.Close()

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(illuminationKernelSize, illuminationKernelSize))
	defer kernel.Close()

	background := gocv.NewMat()
	defer background.Close()
	gocv.MorphologyEx(gray, &background, gocv.MorphOpen, kernel)

	flattened := gocv.NewMat()
	defer flattened.Close()
	gocv.Subtract(gray, background, &flattened)

	inverted := gocv.NewMat()
	defer inverted.Close()
	gocv.BitwiseNot(flattened, &inverted)

	normalized := gocv.NewMat()
	gocv.Normalize(inverted, &normalized, 0, 255, gocv.NormMinMax)
	return normalized
}

// Denoise applies non-local-means denoising at moderate strength.
func Denoise(img gocv.Mat, strength float32) gocv.Mat {
	gray := toGray(img)
	defer gray.Close()

	denoised := gocv.NewMat()
	gocv.FastNlMeansDenoisingWithParams(gray, &denoised, strength, 7, 21)
	return denoised
}

// EnhanceContrast runs CLAHE with 8x8 tiles and a 2.0 clip limit. Receipts
// have locally varying print density, so global equalization would wash out
// faint regions while blowing out dense ones.
func EnhanceContrast(img gocv.Mat) gocv.Mat {
	gray := toGray(img)
	defer gray.Close()

	clahe := gocv.NewCLAHEWithParams(2.0, image.Pt(8, 8))
	defer clahe.Close()

	enhanced := gocv.NewMat()
	clahe.Apply(gray, &enhanced)
	return enhanced
}

// Sharpen applies an unsharp mask, extrapolating the original away from a
// Gaussian blur by strength. Use only on blurry photos; over-sharpening a
// clean receipt raises the OCR error rate.
func Sharpen(img gocv.Mat, strength float64) gocv.Mat {
	if strength < 0 {
		strength = 0
	}
	if strength > 1 {
		strength = 1
	}

	gray := toGray(img)
	defer gray.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(0, 0), 3, 3, gocv.BorderDefault)

	sharpened := gocv.NewMat()
	gocv.AddWeighted(gray, 1.0+strength, blurred, -strength, 0, &sharpened)
	return sharpened
}
