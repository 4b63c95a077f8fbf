package logic

import "testing"

func TestEvaluateScan(t *testing.T) {
	tests := []struct {
		name       string
		ssids      []string
		target     string
		min        int
		wantTarget bool
		wantMin    bool
		wantMet    bool
	}{
		{"target visible", []string{"robco"}, "robco", 3, true, false, true},
		{"enough networks", []string{"a", "b", "c"}, "robco", 3, false, true, true},
		{"both", []string{"a", "robco", "c"}, "robco", 3, true, true, true},
		{"neither", []string{"a", "b"}, "robco", 3, false, false, false},
		{"empty scan", nil, "robco", 3, false, false, false},
		{"target is case sensitive", []string{"RobCo"}, "robco", 3, false, false, false},
		{"empty target disables name check", []string{""}, "", 3, false, false, false},
		{"zero min disables count check", []string{"a", "b", "c"}, "robco", 0, false, false, false},
		{"duplicates count", []string{"a", "a", "a"}, "", 3, false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := EvaluateScan(tt.ssids, tt.target, tt.min)
			if m.TargetFound != tt.wantTarget {
				t.Errorf("TargetFound: got %v, want %v", m.TargetFound, tt.wantTarget)
			}
			if m.MinReached != tt.wantMin {
				t.Errorf("MinReached: got %v, want %v", m.MinReached, tt.wantMin)
			}
			if m.Met() != tt.wantMet {
				t.Errorf("Met: got %v, want %v", m.Met(), tt.wantMet)
			}
			if m.NetworkCount != len(tt.ssids) {
				t.Errorf("NetworkCount: got %d, want %d", m.NetworkCount, len(tt.ssids))
			}
		})
	}
}
