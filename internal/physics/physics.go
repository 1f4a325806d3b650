// Package physics provides the pure kinematic primitives shared by the
// what-if simulation engine and conflict analysis. All functions are
// stateless; speeds are in km/h unless noted, distances in metres.
package physics

import "math"

const (
	// gravity is used for gradient compensation, m/s².
	gravity = 9.81

	// baseDeceleration is the conservative service braking rate on level
	// track, m/s².
	baseDeceleration = 0.8

	// maxSafeAcceleration caps traction output regardless of the
	// power-to-weight ratio, m/s².
	maxSafeAcceleration = 1.0
)

// MaxAcceleration returns the maximum achievable acceleration (m/s²) for a
// train of the given mass and rated power, using a simplified traction model
// and capped at 1 m/s².
func MaxAcceleration(massTons, powerKW float64) float64 {
	massKg := massTons * 1000
	forceN := (powerKW * 1000) / 10
	return math.Min(forceN/massKg, maxSafeAcceleration)
}

// BrakingDistance returns the distance in metres needed to slow from v1 to v2
// (both km/h) on track with the given gradient in percent. A downgrade steep
// enough to cancel the braking effort yields +Inf: the train cannot stop.
func BrakingDistance(v1KmH, v2KmH, gradientPct float64) float64 {
	v1 := v1KmH / 3.6
	v2 := v2KmH / 3.6

	effectiveDecel := baseDeceleration + gravity*(gradientPct/100)
	if effectiveDecel <= 0 {
		return math.Inf(1)
	}
	return math.Max(0, (v1*v1-v2*v2)/(2*effectiveDecel))
}
