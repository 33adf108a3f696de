package dataset

import (
	"strings"
	"testing"

	"github.com/freeeve/polite-betrayal/baseline/internal/features"
	"github.com/freeeve/polite-betrayal/baseline/pkg/diplomacy"
)

func TestGenerateKey(t *testing.T) {
	tests := []struct {
		slot  string
		phase diplomacy.SeasonPhase
		want  Key
	}{
		{"A PAR", "SM", "A_PAR_SM"},
		{"F STP/SC", "FM", "F_STP_SC_FM"},
		{"PAR", "WA", "PAR_WA"},
		{`A B\C`, "SR", "A_B_C_SR"},
		{"A\tPAR", "SM", "A_PAR_SM"},
	}
	for _, tt := range tests {
		if got := GenerateKey(tt.slot, tt.phase); got != tt.want {
			t.Errorf("GenerateKey(%q, %q) = %q, want %q", tt.slot, tt.phase, got, tt.want)
		}
	}
}

func TestGenerateKeyIsPathSafe(t *testing.T) {
	for _, loc := range features.Locations {
		for _, prefix := range []string{"A ", "F ", "*F ", ""} {
			for _, sp := range diplomacy.SeasonPhases() {
				k := string(GenerateKey(prefix+loc, sp))
				if strings.ContainsAny(k, "/\\ \t\n\r") {
					t.Errorf("GenerateKey(%q, %q) = %q contains an unsafe character", prefix+loc, sp, k)
				}
			}
		}
	}
}

func TestGenerateKeyInjectiveOverVocabulary(t *testing.T) {
	seen := make(map[Key]string)
	for _, loc := range features.Locations {
		for _, prefix := range []string{"A ", "F ", ""} {
			for _, sp := range diplomacy.SeasonPhases() {
				slot := prefix + loc
				k := GenerateKey(slot, sp)
				id := slot + "|" + string(sp)
				if prev, ok := seen[k]; ok && prev != id {
					t.Fatalf("key %q produced by both %q and %q", k, prev, id)
				}
				seen[k] = id
			}
		}
	}
}
