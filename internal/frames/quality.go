package frames

import (
	"image"
	"math"

	"github.com/faceguard/core/internal/domain"
)

// Quality weights and grade thresholds are fixed by spec.md §4.1; do not
// make these configurable, the spec pins the exact values.
const (
	weightSharpness  = 0.40
	weightBrightness = 0.30
	weightContrast   = 0.30

	gradeExcellentMin = 0.8
	gradeGoodMin      = 0.6
	gradeFairMin      = 0.4
	gradePoorMin      = 0.2
)

// Score computes the weighted quality score for a decoded grayscale frame.
// Sharpness is a normalized Laplacian variance, brightness is a penalty on
// distance from mid-gray, and contrast is normalized standard deviation —
// the same three-factor shape as quality_control.py's ImageQualityAnalyzer,
// with spec.md's weights rather than the original's.
func Score(img image.Image) domain.QualityResult {
	gray := toGray(img)
	sharp := sharpness(gray)
	bright := brightnessScore(gray)
	contrast := contrastScore(gray)

	score := weightSharpness*sharp + weightBrightness*bright + weightContrast*contrast
	res := domain.QualityResult{
		Score:      score,
		Grade:      grade(score),
		Sharpness:  sharp,
		Brightness: bright,
		Contrast:   contrast,
	}
	if sharp < 0.3 {
		res.Issues = append(res.Issues, "low sharpness")
		res.Recommendations = append(res.Recommendations, "check focus or reduce motion blur")
	}
	if bright < 0.3 {
		res.Issues = append(res.Issues, "poor exposure")
		res.Recommendations = append(res.Recommendations, "adjust camera exposure or lighting")
	}
	if contrast < 0.3 {
		res.Issues = append(res.Issues, "low contrast")
		res.Recommendations = append(res.Recommendations, "increase scene lighting contrast")
	}
	return res
}

func grade(score float64) domain.QualityGrade {
	switch {
	case score >= gradeExcellentMin:
		return domain.GradeExcellent
	case score >= gradeGoodMin:
		return domain.GradeGood
	case score >= gradeFairMin:
		return domain.GradeFair
	case score >= gradePoorMin:
		return domain.GradePoor
	default:
		return domain.GradeUnusable
	}
}

func toGray(img image.Image) [][]float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([][]float64, h)
	for y := 0; y < h; y++ {
		out[y] = make([]float64, w)
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out[y][x] = (0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)) / 255.0
		}
	}
	return out
}

// sharpness estimates the discrete Laplacian variance, normalized into
// [0,1] with a soft cap — real-world "sharp" frames land well above 0.05
// variance on a 0-1 grayscale image, so the cap is scaled accordingly.
func sharpness(gray [][]float64) float64 {
	h := len(gray)
	if h < 3 {
		return 0
	}
	w := len(gray[0])
	if w < 3 {
		return 0
	}
	var sum, sumSq float64
	n := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			lap := -4*gray[y][x] + gray[y-1][x] + gray[y+1][x] + gray[y][x-1] + gray[y][x+1]
			sum += lap
			sumSq += lap * lap
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	const normCap = 0.02
	v := variance / normCap
	if v > 1 {
		v = 1
	}
	if v < 0 {
		v = 0
	}
	return v
}

// brightnessScore penalizes distance from mid-gray (0.5); a frame that's
// all black or all blown-out scores 0, mid-gray scores 1.
func brightnessScore(gray [][]float64) float64 {
	mean := meanOf(gray)
	return 1 - 2*math.Abs(mean-0.5)
}

// contrastScore normalizes standard deviation against the theoretical max
// for a [0,1] signal (0.5, achieved by a half-black half-white image).
func contrastScore(gray [][]float64) float64 {
	mean := meanOf(gray)
	var sumSq float64
	n := 0
	for _, row := range gray {
		for _, v := range row {
			d := v - mean
			sumSq += d * d
			n++
		}
	}
	if n == 0 {
		return 0
	}
	std := math.Sqrt(sumSq / float64(n))
	v := std / 0.5
	if v > 1 {
		v = 1
	}
	return v
}

func meanOf(gray [][]float64) float64 {
	var sum float64
	n := 0
	for _, row := range gray {
		for _, v := range row {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
