package config

import (
	"fmt"
	"time"
)

// ValidatePositiveDuration validates that a duration is greater than zero.
func ValidatePositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %v", d)
	}
	return nil
}

// ValidateNonNegativeDuration accepts zero, which disables pauses such as
// the retry delay.
func ValidateNonNegativeDuration(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("duration must not be negative, got %v", d)
	}
	return nil
}

// ValidateRatio validates a ratio in (0, 1].
func ValidateRatio(f float64) error {
	if f <= 0 || f > 1 {
		return fmt.Errorf("must be between 0.0 and 1.0, got %g", f)
	}
	return nil
}
