// internal/behavior/behavior.go
package behavior

import (
	"math/rand"
	"time"
)

// Point is a viewport coordinate.
type Point struct {
	X float64
	Y float64
}

// HumanDelay returns a randomized delay around baseMS milliseconds, drawn
// uniformly from [base*(1-variance), base*(1+variance)]. All simulated waits
// use this instead of fixed sleeps so request timing never repeats exactly.
func HumanDelay(baseMS int, variance float64) time.Duration {
	minMS := float64(baseMS) * (1 - variance)
	maxMS := float64(baseMS) * (1 + variance)
	delayMS := minMS + rand.Float64()*(maxMS-minMS)
	return time.Duration(delayMS * float64(time.Millisecond))
}

// BezierPoints samples numPoints positions along a quadratic Bézier curve
// from start to end. The control point is the midpoint displaced by up to
// noise*3 per axis, and interior points are perturbed by up to noise/2, so
// no two generated paths are alike. The first point is exactly start; the
// last stays within noise of end.
func BezierPoints(start, end Point, numPoints int, noise float64) []Point {
	if numPoints < 2 {
		return []Point{start}
	}

	control := Point{
		X: (start.X+end.X)/2 + uniform(-noise*3, noise*3),
		Y: (start.Y+end.Y)/2 + uniform(-noise*3, noise*3),
	}

	points := make([]Point, numPoints)
	for i := 0; i < numPoints; i++ {
		t := float64(i) / float64(numPoints-1)
		inv := 1 - t

		p := Point{
			X: inv*inv*start.X + 2*inv*t*control.X + t*t*end.X,
			Y: inv*inv*start.Y + 2*inv*t*control.Y + t*t*end.Y,
		}

		if i > 0 && i < numPoints-1 {
			p.X += uniform(-noise/2, noise/2)
			p.Y += uniform(-noise/2, noise/2)
		}
		points[i] = p
	}

	points[0] = start
	return points
}

func uniform(min, max float64) float64 {
	return min + rand.Float64()*(max-min)
}

func randInt(min, max int) int {
	return min + rand.Intn(max-min+1)
}
