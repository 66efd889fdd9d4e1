package campaign

import (
	"testing"
	"time"
)

func TestDelayFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		mpm  int
		want time.Duration
	}{
		{name: "thirty per minute", mpm: 30, want: 2 * time.Second},
		{name: "sixty per minute", mpm: 60, want: time.Second},
		{name: "one hundred twenty", mpm: 120, want: 500 * time.Millisecond},
		{name: "unlimited", mpm: 0, want: 0},
		{name: "negative treated as unlimited", mpm: -5, want: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := DelayFor(tt.mpm); got != tt.want {
				t.Fatalf("DelayFor(%d) = %v, want %v", tt.mpm, got, tt.want)
			}
		})
	}
}
