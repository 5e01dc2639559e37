package imageproc

import (
	"image"
	"image/color"
	"math"
	"sort"

	"gocv.io/x/gocv"
)

// minSkewDegrees is the magnitude below which rotation is skipped: correcting
// sub-half-degree noise does more harm than leaving a receipt alone.
const minSkewDegrees = 0.5

// Deskew straightens a rotated receipt. It runs a Hough transform over the
// edge map, takes the median angle of the near-horizontal lines and rotates
// the image about its center, expanding the canvas so no content is cropped.
// When no usable lines are found, or the skew is insignificant, the input is
// returned unchanged.
func Deskew(img gocv.Mat) gocv.Mat {
	gray := toGray(img)
	defer gray.Close()

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, 50, 150)

	lines := gocv.NewMat()
	defer lines.Close()
	gocv.HoughLines(edges, &lines, 1, math.Pi/180, 100)
	if lines.Empty() {
		return img.Clone()
	}

	var angles []float64
	for i := 0; i < lines.Rows(); i++ {
		theta := float64(lines.GetFloatAt(i, 1))
		angle := theta*180/math.Pi - 90
		// Only near-horizontal lines carry the text orientation.
		if angle > -45 && angle < 45 {
			angles = append(angles, angle)
		}
	}
	if len(angles) == 0 {
		return img.Clone()
	}

	angle := median(angles)
	if math.Abs(angle) < minSkewDegrees {
		return img.Clone()
	}

	return rotateExpanded(img, angle)
}

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// rotateExpanded rotates about the image center, growing the output canvas to
// the rotated bounding box and filling new border pixels white.
func rotateExpanded(img gocv.Mat, angle float64) gocv.Mat {
	w := img.Cols()
	h := img.Rows()
	center := image.Pt(w/2, h/2)

	m := gocv.GetRotationMatrix2D(center, angle, 1.0)
	defer m.Close()

	cos := math.Abs(m.GetDoubleAt(0, 0))
	sin := math.Abs(m.GetDoubleAt(0, 1))
	newW := int(float64(h)*sin + float64(w)*cos)
	newH := int(float64(h)*cos + float64(w)*sin)

	m.SetDoubleAt(0, 2, m.GetDoubleAt(0, 2)+float64(newW)/2-float64(center.X))
	m.SetDoubleAt(1, 2, m.GetDoubleAt(1, 2)+float64(newH)/2-float64(center.Y))

	rotated := gocv.NewMat()
	gocv.WarpAffineWithParams(img, &rotated, m, image.Pt(newW, newH),
		gocv.InterpolationCubic, gocv.BorderConstant, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	return rotated
}

// CorrectPerspective removes camera-angle distortion by finding the receipt's
// outline and warping it onto an axis-aligned rectangle. It is deliberately
// conservative: unless the largest contour approximates to a quadrilateral,
// the input is returned unchanged.
func CorrectPerspective(img gocv.Mat) gocv.Mat {
	gray := toGray(img)
	defer gray.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, 50, 150)

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()
	if contours.Size() == 0 {
		return img.Clone()
	}

	largest := 0
	largestArea := 0.0
	for i := 0; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area > largestArea {
			largestArea = area
			largest = i
		}
	}

	peri := gocv.ArcLength(contours.At(largest), true)
	approx := gocv.ApproxPolyDP(contours.At(largest), 0.02*peri, true)
	defer approx.Close()
	if approx.Size() != 4 {
		return img.Clone()
	}

	pts := make([]image.Point, 4)
	for i := 0; i < 4; i++ {
		pts[i] = approx.At(i)
	}
	tl, tr, br, bl := orderCorners(pts)

	widthBottom := pointDistance(br, bl)
	widthTop := pointDistance(tr, tl)
	maxWidth := int(math.Max(widthBottom, widthTop))

	heightRight := pointDistance(tr, br)
	heightLeft := pointDistance(tl, bl)
	maxHeight := int(math.Max(heightRight, heightLeft))

	if maxWidth < 1 || maxHeight < 1 {
		return img.Clone()
	}

	src := gocv.NewPoint2fVectorFromPoints([]gocv.Point2f{
		toPoint2f(tl), toPoint2f(tr), toPoint2f(br), toPoint2f(bl),
	})
	defer src.Close()
	dst := gocv.NewPoint2fVectorFromPoints([]gocv.Point2f{
		{X: 0, Y: 0},
		{X: float32(maxWidth - 1), Y: 0},
		{X: float32(maxWidth - 1), Y: float32(maxHeight - 1)},
		{X: 0, Y: float32(maxHeight - 1)},
	})
	defer dst.Close()

	m := gocv.GetPerspectiveTransform2f(src, dst)
	defer m.Close()

	warped := gocv.NewMat()
	gocv.WarpPerspective(img, &warped, m, image.Pt(maxWidth, maxHeight))
	return warped
}

// orderCorners orders quadrilateral corners deterministically: the top-left
// has the smallest x+y, the bottom-right the largest; the top-right has the
// smallest x-y difference, the bottom-left the largest.
func orderCorners(pts []image.Point) (tl, tr, br, bl image.Point) {
	tl, br = pts[0], pts[0]
	tr, bl = pts[0], pts[0]
	for _, p := range pts[1:] {
		if p.X+p.Y < tl.X+tl.Y {
			tl = p
		}
		if p.X+p.Y > br.X+br.Y {
			br = p
		}
		if p.X-p.Y > tr.X-tr.Y {
			tr = p
		}
		if p.X-p.Y < bl.X-bl.Y {
			bl = p
		}
	}
	return tl, tr, br, bl
}

func pointDistance(a, b image.Point) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func toPoint2f(p image.Point) gocv.Point2f {
	return gocv.Point2f{X: float32(p.X), Y: float32(p.Y)}
}
