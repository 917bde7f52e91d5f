package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateCronSchedule_Valid(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
	}{
		{"hourly", "0 * * * *"},
		{"daily at midnight", "0 0 * * *"},
		{"every 6 hours", "0 */6 * * *"},
		{"weekdays at 9:30", "30 9 * * 1-5"},
		{"first day of month", "0 0 1 * *"},
		{"every minute", "* * * * *"},
		{"every 5 minutes", "*/5 * * * *"},
		{"complex expression", "15,45 */2 * * 1,3,5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCronSchedule(tt.schedule)
			assert.NoError(t, err, "Expected valid cron schedule: %s", tt.schedule)
		})
	}
}

func TestValidateCronSchedule_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
	}{
		{"empty string", ""},
		{"too few fields", "0 0"},
		{"too many fields", "0 0 * * * * *"},
		{"invalid minute", "60 0 * * *"},
		{"invalid hour", "0 24 * * *"},
		{"invalid day", "0 0 32 * *"},
		{"invalid month", "0 0 * 13 *"},
		{"invalid weekday", "0 0 * * 8"},
		{"random text", "invalid format"},
		{"negative values", "-1 0 * * *"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCronSchedule(tt.schedule)
			assert.Error(t, err, "Expected error for invalid schedule: %s", tt.schedule)
			assert.Contains(t, err.Error(), "invalid cron schedule")
		})
	}
}

func TestValidateCronSchedule_ErrorMessage(t *testing.T) {
	err := ValidateCronSchedule("invalid")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron schedule 'invalid'")
}

func TestValidateTimezone_Valid(t *testing.T) {
	timezones := []string{
		"UTC",
		"Asia/Colombo",
		"Asia/Tokyo",
		"Europe/London",
		"America/New_York",
		"Australia/Sydney",
		"Local",
	}

	for _, tz := range timezones {
		t.Run(tz, func(t *testing.T) {
			err := ValidateTimezone(tz)
			assert.NoError(t, err, "Expected valid timezone: %s", tz)
		})
	}
}

func TestValidateTimezone_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
	}{
		{"empty string", ""},
		{"invalid name", "Invalid/Timezone"},
		{"not a timezone", "NotATimezone"},
		{"UTC offset instead of IANA name", "+05:30"},
		{"typo in name", "Aisa/Colombo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTimezone(tt.timezone)
			assert.Error(t, err, "Expected error for invalid timezone: %s", tt.timezone)
			assert.Contains(t, err.Error(), "invalid timezone")
		})
	}
}

func TestValidateDuration_Valid(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		min      time.Duration
		max      time.Duration
	}{
		{"exactly min", 10 * time.Second, 10 * time.Second, 1 * time.Minute},
		{"exactly max", 1 * time.Minute, 10 * time.Second, 1 * time.Minute},
		{"middle of range", 30 * time.Second, 10 * time.Second, 1 * time.Minute},
		{"single value range", 5 * time.Second, 5 * time.Second, 5 * time.Second},
		{"large values", 24 * time.Hour, 1 * time.Hour, 48 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDuration(tt.duration, tt.min, tt.max)
			assert.NoError(t, err)
		})
	}
}

func TestValidateDuration_BelowMin(t *testing.T) {
	err := ValidateDuration(5*time.Second, 10*time.Second, 1*time.Minute)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "below minimum")
	assert.Contains(t, err.Error(), "5s")
	assert.Contains(t, err.Error(), "10s")
}

func TestValidateDuration_ExceedsMax(t *testing.T) {
	err := ValidateDuration(2*time.Minute, 10*time.Second, 1*time.Minute)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum")
	assert.Contains(t, err.Error(), "2m")
	assert.Contains(t, err.Error(), "1m")
}

func TestValidateDuration_InvalidRange(t *testing.T) {
	err := ValidateDuration(30*time.Second, 1*time.Minute, 10*time.Second)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid range")
}

func TestValidateDuration_ZeroWithinRange(t *testing.T) {
	err := ValidateDuration(0, 0, 10*time.Second)
	assert.NoError(t, err)
}

func TestValidateIntRange_Valid(t *testing.T) {
	tests := []struct {
		name  string
		value int
		min   int
		max   int
	}{
		{"exactly min", 1, 1, 10},
		{"exactly max", 10, 1, 10},
		{"middle of range", 5, 1, 10},
		{"single value range", 5, 5, 5},
		{"negative range", -5, -10, -1},
		{"zero in range", 0, -10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIntRange(tt.value, tt.min, tt.max)
			assert.NoError(t, err)
		})
	}
}

func TestValidateIntRange_BelowMin(t *testing.T) {
	err := ValidateIntRange(0, 1, 10)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "below minimum")
}

func TestValidateIntRange_ExceedsMax(t *testing.T) {
	err := ValidateIntRange(11, 1, 10)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum")
	assert.Contains(t, err.Error(), "11")
}

func TestValidateIntRange_InvalidRange(t *testing.T) {
	err := ValidateIntRange(5, 10, 1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid range")
}

func TestValidateIntRange_Boundaries(t *testing.T) {
	tests := []struct {
		name  string
		value int
		min   int
		max   int
		valid bool
	}{
		{"just below min", 0, 1, 10, false},
		{"just at min", 1, 1, 10, true},
		{"just at max", 10, 1, 10, true},
		{"just above max", 11, 1, 10, false},
		{"min equals max", 5, 5, 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIntRange(tt.value, tt.min, tt.max)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidatePositiveDuration_Valid(t *testing.T) {
	for _, d := range []time.Duration{
		1 * time.Nanosecond,
		1 * time.Second,
		30 * time.Minute,
		24 * time.Hour,
	} {
		assert.NoError(t, ValidatePositiveDuration(d), "Expected positive duration to be valid: %v", d)
	}
}

func TestValidatePositiveDuration_Invalid(t *testing.T) {
	for _, d := range []time.Duration{
		0,
		-1 * time.Second,
		-1 * time.Hour,
	} {
		err := ValidatePositiveDuration(d)
		assert.Error(t, err, "Expected error for non-positive duration: %v", d)
		assert.Contains(t, err.Error(), "must be positive")
	}
}

func TestValidatePositiveDuration_ErrorMessage(t *testing.T) {
	err := ValidatePositiveDuration(-30 * time.Minute)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duration must be positive")
	assert.Contains(t, err.Error(), "-30m")
}

// All validators include the offending value in their error text so the
// worker's fallback warnings are actionable.
func TestValidators_ErrorsIncludeValue(t *testing.T) {
	assert.Contains(t, ValidateCronSchedule("bogus").Error(), "bogus")
	assert.Contains(t, ValidateTimezone("Invalid/Zone").Error(), "Invalid/Zone")
	assert.Contains(t, ValidateDuration(5*time.Second, 10*time.Second, time.Minute).Error(), "5s")
	assert.Contains(t, ValidateIntRange(0, 1, 10).Error(), "0")
	assert.Contains(t, ValidatePositiveDuration(-5*time.Second).Error(), "-5s")
}
