package animation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
)

// Curve maps a transition's normalized time in [0, 1] to a weight or a time scale.
type Curve func(t float32) float32

// Linear returns t unchanged.
func Linear(t float32) float32 { return t }

// SmoothStep eases in and out with 3t² - 2t³.
func SmoothStep(t float32) float32 { return t * t * (3 - 2*t) }

// EaseIn accelerates from zero with t².
func EaseIn(t float32) float32 { return t * t }

// EaseOut decelerates to one with 1 - (1-t)².
func EaseOut(t float32) float32 { return 1 - (1-t)*(1-t) }

// Constant returns a curve that always evaluates to v.
func Constant(v float32) Curve {
	return func(float32) float32 { return v }
}

// CurveByName resolves a curve from its authoring name: "linear", "smoothstep", "ease_in",
// "ease_out", or "constant:<v>". The empty name resolves to fallback.
//
// Parameters:
//   - name: the curve name
//   - fallback: the curve used for an empty name
//
// Returns:
//   - Curve: the resolved curve
//   - error: ErrInvalidData for unknown names
func CurveByName(name string, fallback Curve) (Curve, error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "":
		return fallback, nil
	case "linear":
		return Linear, nil
	case "smoothstep", "smooth_step":
		return SmoothStep, nil
	case "ease_in":
		return EaseIn, nil
	case "ease_out":
		return EaseOut, nil
	default:
		if v, ok := strings.CutPrefix(n, "constant:"); ok {
			f, err := strconv.ParseFloat(v, 32)
			if err != nil {
				return nil, fmt.Errorf("curve %q: %w", name, skeleton.ErrInvalidData)
			}
			return Constant(float32(f)), nil
		}
		return nil, fmt.Errorf("unknown curve %q: %w", name, skeleton.ErrInvalidData)
	}
}
