// Package device defines the gamepad snapshot shared by every replaypad
// component.
//
// A State is a value: buttons, axes and hats sampled in a single poll. It is
// immutable by convention. Producers (input sources) hand out fresh slices and
// consumers never modify a State they did not create.
//
// # Normalization
//
// Raw samples are noisy. Normalize applies a per-axis deadzone, rescales the
// remaining travel back to [0, 1] and optionally quantizes the result to
// {-1, 0, 1}. Every sample passes through Normalize before it is compared,
// stored or replayed, so a recording reproduces the same effective input no
// matter which controller captured it.
//
// # Comparison
//
// Equal is tolerant: buttons and hats must match exactly, axes may differ by
// up to a tolerance. The recorder uses RecordTolerance to decide whether a
// sample is a new event. HasSignificantChange uses the finer
// SignificantChangeThreshold and is kept as a separate knob.
package device
