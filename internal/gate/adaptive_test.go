package gate

import (
	"testing"
	"time"

	"tradepulse/internal/models"
)

func TestAdaptiveEscalation(t *testing.T) {
	// Feedback sequence of 5 not_helpful marks, adaptive mode enabled
	// after the 3rd.
	state := NewState()
	adaptive := false

	type step struct {
		wantLevel ThrottleLevel
	}
	steps := []step{
		{LevelNormal},          // count 1
		{LevelNormal},          // count 2
		{LevelSuggestAdaptive}, // count 3, adaptive still off
		{LevelNormal},          // count 4, adaptive now on but below active threshold
		{LevelThrottleActive},  // count 5, adaptive on
	}

	for i, s := range steps {
		state.SetFeedback(string(rune('a'+i)), models.FeedbackNotHelpful)
		level := Level(state.NotHelpfulCount(), adaptive)
		if level != s.wantLevel {
			t.Errorf("after %d marks (adaptive=%v): level = %q, want %q",
				i+1, adaptive, level, s.wantLevel)
		}
		if level == LevelSuggestAdaptive {
			adaptive = true
		}
	}
}

func TestLevelIsStateless(t *testing.T) {
	// Recomputing from the same inputs always yields the same level.
	for i := 0; i < 10; i++ {
		if Level(5, true) != LevelThrottleActive {
			t.Fatal("Level(5, true) should always be throttle_active")
		}
		if Level(3, false) != LevelSuggestAdaptive {
			t.Fatal("Level(3, false) should always be suggest_adaptive")
		}
		if Level(4, true) != LevelNormal {
			t.Fatal("Level(4, true) should always be normal")
		}
	}
}

func TestLevelBoundaries(t *testing.T) {
	tests := []struct {
		count    int
		adaptive bool
		want     ThrottleLevel
	}{
		{0, false, LevelNormal},
		{2, false, LevelNormal},
		{3, false, LevelSuggestAdaptive},
		{5, false, LevelSuggestAdaptive}, // suggestion persists while off
		{3, true, LevelNormal},
		{4, true, LevelNormal},
		{5, true, LevelThrottleActive},
		{9, true, LevelThrottleActive},
	}

	for _, tt := range tests {
		if got := Level(tt.count, tt.adaptive); got != tt.want {
			t.Errorf("Level(%d, %v) = %q, want %q", tt.count, tt.adaptive, got, tt.want)
		}
	}
}

func TestEffectiveMinInterval(t *testing.T) {
	base := 30 * time.Second

	if got := EffectiveMinInterval(base, 3, LevelNormal); got != base {
		t.Errorf("normal: %s, want %s", got, base)
	}
	if got := EffectiveMinInterval(base, 3, LevelSuggestAdaptive); got != base {
		t.Errorf("suggest: %s, want %s", got, base)
	}
	if got := EffectiveMinInterval(base, 3, LevelThrottleActive); got != 90*time.Second {
		t.Errorf("active: %s, want 90s", got)
	}
	// Factor below 1 falls back to the default multiplier.
	if got := EffectiveMinInterval(base, 0, LevelThrottleActive); got != base*DefaultIntervalFactor {
		t.Errorf("zero factor: %s, want %s", got, base*DefaultIntervalFactor)
	}
}
