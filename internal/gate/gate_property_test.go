package gate

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"tradepulse/internal/models"
)

// Property: delivering the same alert id twice never results in two
// Deliver outcomes, for any interleaving of other alerts in between.
func TestProperty_DedupeIdempotence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	idCountGen := gen.IntRange(1, 10)
	repeatGen := gen.IntRange(2, 5)

	properties.Property("repeated ids deliver at most once", prop.ForAll(
		func(idCount, repeats int) bool {
			clock := newFakeClock()
			state := NewStateWithClock(clock.Now)

			delivered := make(map[string]int)
			for r := 0; r < repeats; r++ {
				for i := 0; i < idCount; i++ {
					id := fmt.Sprintf("alert-%d", i)
					alert := testAlert(id, "", 0, clock.Now().Add(time.Hour))

					d := Evaluate(&alert, state, true, nil)
					if d.Deliver {
						state.MarkAsSeen(alert.ID)
						delivered[id]++
					}
				}
			}

			for id, n := range delivered {
				if n != 1 {
					t.Logf("id %s delivered %d times", id, n)
					return false
				}
				if !state.IsDuplicate(id) {
					t.Logf("id %s not marked duplicate after delivery", id)
					return false
				}
			}
			return true
		},
		idCountGen,
		repeatGen,
	))

	properties.TestingRun(t)
}

// Property: after AddCooldown(k, n) at time T, IsCoolingDown(k) is true
// for every probe strictly before T+n seconds and false at or after it.
func TestProperty_CooldownMonotonicity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	cooldownGen := gen.IntRange(1, 3600)
	probeGen := gen.IntRange(0, 7200)

	properties.Property("cooldown holds exactly until expiry", prop.ForAll(
		func(cooldownSec, probeSec int) bool {
			clock := newFakeClock()
			state := NewStateWithClock(clock.Now)

			state.AddCooldown("k", cooldownSec)
			clock.Advance(time.Duration(probeSec) * time.Second)

			got := state.IsCoolingDown("k")
			want := probeSec < cooldownSec
			return got == want
		},
		cooldownGen,
		probeGen,
	))

	properties.TestingRun(t)
}

// Property: an expired alert is suppressed with reason expired regardless
// of seen/cooldown state, as long as the gate is armed and outside quiet
// hours.
func TestProperty_ExpirationPrecedence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	seenGen := gen.Bool()
	coolingGen := gen.Bool()
	ageGen := gen.IntRange(1, 86400) // seconds past expiry

	properties.Property("expired always suppresses as expired", prop.ForAll(
		func(seen, cooling bool, ageSec int) bool {
			clock := newFakeClock()
			state := NewStateWithClock(clock.Now)

			alert := testAlert("a1", "k1", 900, clock.Now().Add(-time.Duration(ageSec)*time.Second))
			if seen {
				state.MarkAsSeen(alert.ID)
			}
			if cooling {
				state.AddCooldown(alert.Throttle.DedupeKey, 900)
			}

			d := Evaluate(&alert, state, true, nil)
			return !d.Deliver && d.Reason == ReasonExpired
		},
		seenGen,
		coolingGen,
		ageGen,
	))

	properties.TestingRun(t)
}

// Property: the feedback counter always equals a full scan of the
// feedback map, across any sequence of ratings and overwrites.
func TestProperty_FeedbackCounterMatchesScan(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	opsGen := gen.SliceOf(gen.IntRange(0, 9))
	ratingsGen := gen.SliceOf(gen.Bool())

	properties.Property("incremental counter matches map scan", prop.ForAll(
		func(ids []int, notHelpful []bool) bool {
			state := NewState()

			expected := make(map[string]models.FeedbackRating)
			n := len(ids)
			if len(notHelpful) < n {
				n = len(notHelpful)
			}

			for i := 0; i < n; i++ {
				id := fmt.Sprintf("alert-%d", ids[i])
				rating := models.FeedbackHelpful
				if notHelpful[i] {
					rating = models.FeedbackNotHelpful
				}
				state.SetFeedback(id, rating)
				expected[id] = rating
			}

			scan := 0
			for _, rating := range expected {
				if rating == models.FeedbackNotHelpful {
					scan++
				}
			}
			return state.NotHelpfulCount() == scan
		},
		opsGen,
		ratingsGen,
	))

	properties.TestingRun(t)
}
