package pipeline

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/fire-go/ensemble"
)

const brightnessRadius = 71

var (
	fireColor   = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	noFireColor = color.RGBA{R: 55, G: 246, B: 125, A: 0}
	markerColor = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	textOrigin  = image.Pt(60, 60)
)

// overlayText is the banner drawn for a decision.
func overlayText(d ensemble.Decision) (string, color.RGBA) {
	if d.IsFire {
		return "Fire", fireColor
	}
	return "no fire", noFireColor
}

// drawOverlay writes the decision banner on img and, on fire, marks the
// brightest spot.
func drawOverlay(img *gocv.Mat, d ensemble.Decision) {
	text, c := overlayText(d)
	gocv.PutText(img, text, textOrigin, gocv.FontHersheyDuplex, 2, c, 5)

	if d.IsFire {
		markBrightness(img, brightnessRadius)
	}
}

// markBrightness dots the brightest pixel and circles the brightest blurred area.
func markBrightness(img *gocv.Mat, radius int) {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(*img, &gray, gocv.ColorBGRToGray)

	_, _, _, maxLoc := gocv.MinMaxLoc(gray)
	gocv.Circle(img, maxLoc, 5, markerColor, 12)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(radius, radius), 0, 0, gocv.BorderDefault)

	_, _, _, maxLoc = gocv.MinMaxLoc(blurred)
	gocv.Circle(img, maxLoc, radius, markerColor, 2)
}
