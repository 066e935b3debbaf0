package raster

import (
	"fmt"
	"iter"
)

// VariantCount is the number of renderings derived from the stretched
// grayscale: 4 threshold levels in both polarities plus the global
// inversion. Variants yields VariantCount+1 = 10 renderings in total, the
// stretched grayscale first and then these 9.
const VariantCount = 9

// Variants lazily yields the preprocessing renderings of m in a fixed order:
// the contrast-stretched grayscale, each threshold level (lowest first) as
// normal then inverted, and finally the inverted grayscale. Nothing is
// computed beyond the point where the consumer stops ranging.
func Variants(m *Image) iter.Seq2[string, *Image] {
	return func(yield func(string, *Image) bool) {
		gray := ContrastStretch(m)
		if !yield("stretch", gray) {
			return
		}
		for _, level := range ThresholdLevels {
			bin := Threshold(gray, level)
			if !yield(fmt.Sprintf("threshold_%d", level), bin) {
				return
			}
			if !yield(fmt.Sprintf("threshold_%d_inv", level), Invert(bin)) {
				return
			}
		}
		yield("invert", Invert(gray))
	}
}
