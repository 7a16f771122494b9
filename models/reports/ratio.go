package reports

import "strconv"

// RatioPlaces is the number of decimal places every displayed ratio is rounded to.
const RatioPlaces = 4

// ConversionRatio returns numerator/denominator rounded to RatioPlaces. The
// binary quotient is rounded exactly, ties to even, so 1/32 gives 0.0312.
// A zero denominator yields exactly 0.
func ConversionRatio(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	q := float64(numerator) / float64(denominator)
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(q, 'f', RatioPlaces, 64), 64)
	if err != nil {
		return q
	}
	return rounded
}
