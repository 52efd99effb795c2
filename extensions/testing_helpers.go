package extensions

import (
	"math"
	"testing"
)

func AssertAreEqual[T comparable](t *testing.T, name string, expected T, actual T) {
	t.Helper()
	if expected != actual {
		t.Fatalf("value mismatch for %s, expected %v, got %v", name, expected, actual)
	}
}

func AssertNillability[T any](t *testing.T, name string, expected bool, actual *T) {
	t.Helper()
	if (actual == nil) != expected {
		t.Fatalf("value mismatch for %s, expected nil to be %v, got %v", name, expected, (actual == nil))
	}
}

// AssertFloatNear fails unless actual is within tolerance of expected, NaN only matches NaN
func AssertFloatNear(t *testing.T, name string, expected, actual, tolerance float64) {
	t.Helper()
	if math.IsNaN(expected) || math.IsNaN(actual) {
		if math.IsNaN(expected) != math.IsNaN(actual) {
			t.Fatalf("value mismatch for %s, expected %v, got %v", name, expected, actual)
		}
		return
	}
	if math.Abs(expected-actual) > tolerance {
		t.Fatalf("value mismatch for %s, expected %v (+/- %v), got %v", name, expected, tolerance, actual)
	}
}

// AssertSeriesNear compares two series element wise with AssertFloatNear
func AssertSeriesNear(t *testing.T, name string, expected, actual []float64, tolerance float64) {
	t.Helper()
	if len(expected) != len(actual) {
		t.Fatalf("length mismatch for %s, expected %d, got %d", name, len(expected), len(actual))
	}
	for i := range expected {
		AssertFloatNear(t, name, expected[i], actual[i], tolerance)
	}
}
