package layout

import (
	"math"

	"github.com/matzehuels/forcegraph/pkg/geom"
)

// direction returns the angle of the ray from p towards o and their
// distance. Coincident nodes get a fixed axis: the lower index sees o to its
// right (angle 0), the higher index to its left (angle π), so repulsion
// separates them along x.
func direction(p, o geom.Vec, i, j int) (theta, d float64) {
	dx, dy := o.X-p.X, o.Y-p.Y
	d = math.Sqrt(dx*dx + dy*dy)
	if d == 0 {
		if i < j {
			return 0, 0
		}
		return math.Pi, 0
	}
	return math.Atan2(dy, dx), d
}

// repulsion is the signed magnitude along p→o of the force o exerts on p.
// It is negative: p is pushed away.
func (c Config) repulsion(rp, ro, d float64) float64 {
	return -c.Repulsion * rp * ro / math.Sqrt(math.Max(d, c.MinDistance))
}

// attraction is the signed magnitude along p→o of the spring between
// linked nodes: positive when stretched beyond RestLength, negative when
// compressed, zero within one unit of it.
func (c Config) attraction(d float64) float64 {
	delta := d - c.RestLength
	m := math.Abs(delta)
	if m <= 1 {
		return 0
	}
	f := c.Stiffness * math.Log(m)
	if delta < 0 {
		return -f
	}
	return f
}

// nodeUpdate integrates node i against the pre-step state and returns its
// new position, new velocity and energy contribution.
func (c Config) nodeUpdate(st *state, i int) (pos, vel geom.Vec, energy float64) {
	p := st.pos[i]
	net := geom.Zero
	for j, o := range st.pos {
		if j == i {
			continue
		}
		theta, d := direction(p, o, i, j)
		net = net.Add(geom.Polar(c.repulsion(st.radius[i], st.radius[j], d), theta))
	}
	for _, j := range st.adj[i] {
		theta, d := direction(p, st.pos[j], i, j)
		net = net.Add(geom.Polar(c.attraction(d), theta))
	}

	vel = st.vel[i].Add(net.Scale(c.TimeStep)).Scale(c.Damping)
	energy = st.radius[i] * vel.SquaredMagnitude()
	pos = p.Add(vel.Scale(c.TimeStep))
	return pos, vel, energy
}
