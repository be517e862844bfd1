package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{name: "zero", duration: 0, expected: "0µs"},
		{name: "microseconds", duration: 500 * time.Microsecond, expected: "500µs"},
		{name: "milliseconds", duration: 250 * time.Millisecond, expected: "250ms"},
		{name: "one_millisecond", duration: time.Millisecond, expected: "1ms"},
		{name: "seconds", duration: 1500 * time.Millisecond, expected: "1.5s"},
		{name: "one_second", duration: time.Second, expected: "1.0s"},
		{name: "minutes", duration: 90 * time.Second, expected: "1.5m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Duration(tt.duration))
		})
	}
}
