package observability

import (
	"strings"
	"testing"
)

func TestNewSampler(t *testing.T) {
	tests := []struct {
		name   string
		ratio  float64
		prefix string
	}{
		{"keep everything", 1, "ParentBased{root:AlwaysOnSampler"},
		{"above one clamps to always", 3, "ParentBased{root:AlwaysOnSampler"},
		{"zero follows callers only", 0, "ParentBased{root:AlwaysOffSampler"},
		{"fraction of roots", 0.25, "ParentBased{root:TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newSampler(tt.ratio).Description()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("newSampler(%v).Description() = %q, want prefix %q", tt.ratio, got, tt.prefix)
			}
		})
	}
}
