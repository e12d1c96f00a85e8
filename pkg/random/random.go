package random

import (
	"math"
	"math/rand"
	"time"
)

// Randomize applies ±percent randomization to value
// Example: Randomize(100, 1.0) returns value in range [99, 101]
func Randomize(value float64, percent float64) float64 {
	if percent <= 0 {
		return value
	}

	// Calculate variance
	variance := value * (percent / 100.0)

	// Generate random offset in range [-variance, +variance]
	offset := (rand.Float64()*2 - 1) * variance

	return value + offset
}

// Jitter applies ±percent randomization to a duration, rounded to the millisecond.
// Used to spread retries of concurrent requests.
func Jitter(d time.Duration, percent float64) time.Duration {
	if d <= 0 {
		return 0
	}
	ms := Randomize(float64(d.Milliseconds()), percent)
	return time.Duration(math.Round(ms)) * time.Millisecond
}

// Backoff returns the jittered wait before retry number attempt (1-based):
// base * attempt, ±percent
func Backoff(base time.Duration, attempt int, percent float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return Jitter(base*time.Duration(attempt), percent)
}
