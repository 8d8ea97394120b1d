package device

import "math"

// quantizeThreshold is the post-deadzone travel above which a quantized axis
// snaps to full deflection.
const quantizeThreshold = 0.5

// Normalize applies deadzones and optional quantization to raw.
//
// Axes below StickAxes use stickDeadzone, the rest use triggerDeadzone. A
// value whose magnitude is strictly below the deadzone becomes 0; a value
// exactly on the boundary is outside the deadzone and scales to 0 travel.
// Buttons and hats are copied unchanged.
func Normalize(raw State, stickDeadzone, triggerDeadzone float64, quantize bool) State {
	out := raw.Clone()
	for i, v := range raw.Axes {
		dz := triggerDeadzone
		if i < StickAxes {
			dz = stickDeadzone
		}
		out.Axes[i] = NormalizeAxis(v, dz, quantize)
	}
	return out
}

// NormalizeAxis normalizes a single axis value against deadzone dz.
func NormalizeAxis(v, dz float64, quantize bool) float64 {
	mag := math.Abs(v)
	if mag < dz {
		return 0
	}

	sign := 1.0
	if v < 0 {
		sign = -1.0
	}

	scaled := (mag - dz) / (1 - dz)
	if !quantize {
		return sign * scaled
	}
	if scaled > quantizeThreshold {
		return sign
	}
	return 0
}
