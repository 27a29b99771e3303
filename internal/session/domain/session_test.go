package domain

import "testing"

func TestTransitionRules(t *testing.T) {
	tests := []struct {
		name  string
		check func(Phase) bool
		allow []Phase
	}{
		{"start", CanStart, []Phase{PhaseIdle, PhaseClosed}},
		{"enable-verification", CanEnableVerification, []Phase{PhaseTracking}},
		{"close", CanClose, []Phase{PhaseTracking, PhaseVerifying, PhaseClosed}},
		{"submit", CanSubmit, []Phase{PhaseTracking, PhaseVerifying}},
		{"set-deadline", CanSetDeadline, []Phase{PhaseVerifying}},
	}

	all := []Phase{PhaseIdle, PhaseTracking, PhaseVerifying, PhaseClosed}
	for _, tt := range tests {
		allowed := make(map[Phase]bool)
		for _, p := range tt.allow {
			allowed[p] = true
		}
		for _, p := range all {
			if got := tt.check(p); got != allowed[p] {
				t.Errorf("%s from %s = %v, want %v", tt.name, p, got, allowed[p])
			}
		}
	}
}

func TestPhaseValid(t *testing.T) {
	for _, p := range []Phase{PhaseIdle, PhaseTracking, PhaseVerifying, PhaseClosed} {
		if !p.Valid() {
			t.Errorf("Phase(%q).Valid() = false", p)
		}
	}
	if Phase("open").Valid() {
		t.Error(`Phase("open").Valid() = true`)
	}
}

func TestIsCompletionToken(t *testing.T) {
	yes := []string{"ad", "AD", "all done", "All  Done", " done ", "all dn"}
	for _, s := range yes {
		if !IsCompletionToken(s) {
			t.Errorf("IsCompletionToken(%q) = false, want true", s)
		}
	}
	no := []string{"", "alldone", "i am done soon", "ads", "done!"}
	for _, s := range no {
		if IsCompletionToken(s) {
			t.Errorf("IsCompletionToken(%q) = true, want false", s)
		}
	}
}
