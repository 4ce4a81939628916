package noise

import (
	"math"
)

// NewComplex builds a ReferenceNoise from the real and imaginary
// components of a complex-valued influence. The influence is the modulus
// capped at 1; both components are recorded in the parameter map.
func NewComplex(realComponent, imagComponent float64, algorithmType string, parameters map[string]float64) (*ReferenceNoise, error) {
	modulus := math.Hypot(realComponent, imagComponent)
	influence := math.Min(1.0, modulus)

	params := make(map[string]float64, len(parameters)+2)
	for k, v := range parameters {
		params[k] = v
	}
	params["real_component"] = realComponent
	params["imaginary_component"] = imagComponent

	return New(influence, algorithmType, params)
}

// Phase returns the phase, in radians, of a noise built from complex
// components, or 0 when the components are absent.
func (n *ReferenceNoise) Phase() float64 {
	re, okRe := n.parameters["real_component"]
	im, okIm := n.parameters["imaginary_component"]
	if !okRe || !okIm {
		return 0
	}
	return math.Atan2(im, re)
}
