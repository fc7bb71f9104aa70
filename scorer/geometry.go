package scorer

import (
	"math"

	"github.com/dinglinghu/must-ps/types"
)

const (
	// earthRadiusKm is the spherical Earth radius used for geodetic to
	// Cartesian conversion.
	earthRadiusKm = 6371.0

	// angleAccuracyRad is the assumed bearing measurement accuracy in
	// radians.
	angleAccuracyRad = 0.001

	// singleUnitDilution is the penalty dilution value assigned to a
	// single-unit group, which cannot triangulate.
	singleUnitDilution = 25.0

	// degenerateSeparation is the minimum bearing-angle separation below
	// which a pair's geometry is treated as degenerate (collinear lines of
	// sight).
	degenerateSeparation = 1e-6
)

// vec3 is a Cartesian position in kilometers.
type vec3 struct{ x, y, z float64 }

func (v vec3) sub(o vec3) vec3 { return vec3{v.x - o.x, v.y - o.y, v.z - o.z} }

func (v vec3) norm() float64 { return math.Sqrt(v.x*v.x + v.y*v.y + v.z*v.z) }

func (v vec3) dot(o vec3) float64 { return v.x*o.x + v.y*o.y + v.z*o.z }

// toCartesian converts a geodetic position to Earth-centered Cartesian
// coordinates on a spherical Earth.
func toCartesian(p types.Position) vec3 {
	lat := p.Lat * math.Pi / 180
	lon := p.Lon * math.Pi / 180
	r := earthRadiusKm + p.Alt

	return vec3{
		x: r * math.Cos(lat) * math.Cos(lon),
		y: r * math.Cos(lat) * math.Sin(lon),
		z: r * math.Sin(lat),
	}
}

// bearingAngle returns the angle in radians between the line of sight from
// the target to the unit and the local vertical at the target.
func bearingAngle(target, unit vec3) float64 {
	los := unit.sub(target)
	losNorm := los.norm()
	upNorm := target.norm()
	if losNorm == 0 || upNorm == 0 {
		return 0
	}

	cos := los.dot(target) / (losNorm * upNorm)
	cos = math.Max(-1, math.Min(1, cos))

	return math.Acos(cos)
}

// pairDilution computes the geometric dilution of precision for a pair of
// units observing the target:
//
//	gdop = L * σθ * sqrt((sin²θ1 + sin²θ2) / sin⁴(θ2 - θ1))
//
// where L is the baseline length between the units in kilometers, σθ the
// bearing measurement accuracy, and θ1, θ2 the bearing angles of the two
// lines of sight measured against the local vertical at the target.
// Collinear lines of sight yield +Inf.
func pairDilution(target types.Position, a, b types.Position) float64 {
	tc := toCartesian(target)
	ac := toCartesian(a)
	bc := toCartesian(b)

	baseline := ac.sub(bc).norm()
	theta1 := bearingAngle(tc, ac)
	theta2 := bearingAngle(tc, bc)

	sep := math.Sin(theta2 - theta1)
	if math.Abs(sep) < degenerateSeparation {
		return math.Inf(1)
	}

	num := math.Sin(theta1)*math.Sin(theta1) + math.Sin(theta2)*math.Sin(theta2)

	return baseline * angleAccuracyRad * math.Sqrt(num/(sep*sep*sep*sep))
}

// groupDilution returns the best (lowest) pairwise dilution achievable by
// the group. Single-unit groups receive the fixed penalty dilution.
func groupDilution(target types.Position, group []Candidate) float64 {
	if len(group) < 2 {
		return singleUnitDilution
	}

	best := math.Inf(1)
	for i := 0; i < len(group); i++ {
		for j := i + 1; j < len(group); j++ {
			if d := pairDilution(target, group[i].Position, group[j].Position); d < best {
				best = d
			}
		}
	}

	return best
}
