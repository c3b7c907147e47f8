package models

import (
	"math"
	"strconv"
	"strings"
)

// ParseWeight converts a weight input to float64. Both "." and "," are
// accepted as decimal separator ("102,5" -> 102.5). Blank or unparsable
// input yields 0.
func ParseWeight(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ParseReps converts a reps input to a non-negative int. Blank, unparsable
// or negative input yields 0.
func ParseReps(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
