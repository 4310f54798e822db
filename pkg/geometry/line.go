package geometry

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

var ErrJoinGap = errors.New("lines do not share a boundary coordinate")

// Location describes where a point projects onto a line string.
type Location struct {
	Fraction float64   // position along the line in [0,1], by length
	Point    orb.Point // the projected point on the line
	Distance float64   // planar distance from the query point to Point
	Segment  int       // index of the segment (ls[Segment], ls[Segment+1]) holding Point
}

// ProjectOntoSegment returns the closest point to p on the segment a-b and its
// parameter t in [0,1] measured from a.
func ProjectOntoSegment(a, b, p orb.Point) (orb.Point, float64) {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	lengthSquared := dx*dx + dy*dy
	if lengthSquared == 0 {
		return a, 0
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / lengthSquared
	t = clamp(t, 0, 1)
	return orb.Point{a[0] + t*dx, a[1] + t*dy}, t
}

// Locate finds the point of ls nearest to p. On equal distances the earlier
// segment wins.
func Locate(ls orb.LineString, p orb.Point) Location {
	best := Location{Segment: -1}
	for i := 0; i+1 < len(ls); i++ {
		q, t := ProjectOntoSegment(ls[i], ls[i+1], p)
		d := planar.Distance(p, q)
		if best.Segment < 0 || d < best.Distance {
			best = Location{Point: q, Distance: d, Segment: i, Fraction: t}
		}
	}
	if best.Segment < 0 {
		if len(ls) == 1 {
			return Location{Point: ls[0], Distance: planar.Distance(p, ls[0])}
		}
		return best
	}
	best.Fraction = FractionAt(ls, best.Segment, best.Fraction)
	return best
}

// FractionAt converts a position given as (segment, parameter on segment) into
// a fraction of the whole line length.
func FractionAt(ls orb.LineString, segment int, t float64) float64 {
	total := planar.Length(ls)
	if total == 0 {
		return 0
	}
	along := 0.0
	for i := 0; i < segment; i++ {
		along += planar.Distance(ls[i], ls[i+1])
	}
	along += t * planar.Distance(ls[segment], ls[segment+1])
	return clamp(along/total, 0, 1)
}

// Interpolate returns the point at the given fraction of the line length.
func Interpolate(ls orb.LineString, fraction float64) orb.Point {
	if len(ls) == 0 {
		return orb.Point{}
	}
	total := planar.Length(ls)
	target := clamp(fraction, 0, 1) * total
	along := 0.0
	for i := 0; i+1 < len(ls); i++ {
		segment := planar.Distance(ls[i], ls[i+1])
		if along+segment >= target {
			if segment == 0 {
				return ls[i]
			}
			return lerp(ls[i], ls[i+1], (target-along)/segment)
		}
		along += segment
	}
	return ls[len(ls)-1]
}

// Substring returns the part of ls between the two fractions, in line order.
// The fractions are swapped if from > to. The result always has at least two
// points; equal fractions yield two identical points.
func Substring(ls orb.LineString, from, to float64) orb.LineString {
	if len(ls) == 0 {
		return nil
	}
	from, to = clamp(from, 0, 1), clamp(to, 0, 1)
	if from > to {
		from, to = to, from
	}

	total := planar.Length(ls)
	start, end := from*total, to*total
	startPoint := Interpolate(ls, from)
	if from == to {
		return orb.LineString{startPoint, startPoint}
	}

	out := orb.LineString{startPoint}
	along := 0.0
	for i := 1; i < len(ls); i++ {
		along += planar.Distance(ls[i-1], ls[i])
		if along <= start {
			continue
		}
		if along >= end {
			break
		}
		out = appendDistinct(out, ls[i])
	}
	out = append(out, Interpolate(ls, to))
	return out
}

// Reversed returns a reversed copy of ls.
func Reversed(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[len(ls)-1-i] = p
	}
	return out
}

// Join concatenates the pieces into one line. Consecutive pieces must meet at
// a shared coordinate (within JoinTolerance); the duplicated boundary vertex is
// dropped. Empty pieces are skipped.
func Join(pieces ...orb.LineString) (orb.LineString, error) {
	var out orb.LineString
	for i, piece := range pieces {
		if len(piece) == 0 {
			continue
		}
		if len(out) > 0 && !SamePoint(out[len(out)-1], piece[0]) {
			return nil, fmt.Errorf("%w: piece %d starts at %v, previous ends at %v", ErrJoinGap, i, piece[0], out[len(out)-1])
		}
		for _, p := range piece {
			out = appendDistinct(out, p)
		}
	}
	return out, nil
}

// DistinctCount counts the coordinates of ls that differ from their predecessor.
func DistinctCount(ls orb.LineString) int {
	count := 0
	for i, p := range ls {
		if i == 0 || !SamePoint(ls[i-1], p) {
			count++
		}
	}
	return count
}

func appendDistinct(ls orb.LineString, p orb.Point) orb.LineString {
	if len(ls) > 0 && SamePoint(ls[len(ls)-1], p) {
		return ls
	}
	return append(ls, p)
}

func lerp(a, b orb.Point, t float64) orb.Point {
	return orb.Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
