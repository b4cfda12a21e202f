package gate

import "time"

// ThrottleLevel is the adaptive throttle controller's output.
type ThrottleLevel string

const (
	// LevelNormal applies the base notification interval.
	LevelNormal ThrottleLevel = "normal"
	// LevelSuggestAdaptive means enough negative feedback has accumulated
	// to suggest enabling adaptive mode.
	LevelSuggestAdaptive ThrottleLevel = "suggest_adaptive"
	// LevelThrottleActive means adaptive mode is on and the widened
	// interval is in effect.
	LevelThrottleActive ThrottleLevel = "throttle_active"
)

const (
	// SuggestThreshold is the not-helpful count at which adaptive mode is
	// suggested while still off.
	SuggestThreshold = 3
	// ActiveThreshold is the not-helpful count at which adaptive mode,
	// when enabled, starts widening the notification interval.
	ActiveThreshold = 5
	// DefaultIntervalFactor is the default multiplier applied to the base
	// notification interval when the throttle is active.
	DefaultIntervalFactor = 3
)

// Level computes the throttle level from the current not-helpful count and
// whether adaptive mode is enabled.
//
// The controller is stateless: the level is recomputed from scratch on
// every feedback update, so no transition can be missed and none has
// irreversible side effects.
func Level(notHelpfulCount int, adaptiveEnabled bool) ThrottleLevel {
	if adaptiveEnabled && notHelpfulCount >= ActiveThreshold {
		return LevelThrottleActive
	}
	if !adaptiveEnabled && notHelpfulCount >= SuggestThreshold {
		return LevelSuggestAdaptive
	}
	return LevelNormal
}

// EffectiveMinInterval returns the minimum inter-notification interval for
// the given level. Only LevelThrottleActive widens the base interval; a
// factor below 1 falls back to the default.
func EffectiveMinInterval(base time.Duration, factor int, level ThrottleLevel) time.Duration {
	if level != LevelThrottleActive {
		return base
	}
	if factor < 1 {
		factor = DefaultIntervalFactor
	}
	return base * time.Duration(factor)
}
