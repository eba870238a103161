// Package util holds small formatting and slice helpers shared across packages
package util

import "math"

func IndentExpand(indent string, growth int) string {
	indentByte := []byte(indent)
	out := make([]byte, 0, len(indent)*growth)
	for i := 0; i < growth; i++ {
		out = append(out, indentByte...)
	}
	return string(out)
}

// RoundToInt rounds each value to the nearest integer with halves rounded away from zero
func RoundToInt(arr []float64) []int {
	out := make([]int, len(arr))
	for i, v := range arr {
		out[i] = int(math.Round(v))
	}
	return out
}

// MeanInt returns the arithmetic mean of the values or 0 if there are none
func MeanInt(arr []int) float64 {
	if len(arr) == 0 {
		return 0
	}
	var sum int
	for _, v := range arr {
		sum += v
	}
	return float64(sum) / float64(len(arr))
}
