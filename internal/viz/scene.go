package viz

import (
	"math"

	"github.com/san-kum/dynstream/internal/buffer"
	"github.com/san-kum/dynstream/internal/models"
)

const trailLength = 240

type point struct{ x, y float64 }

// Scene draws one model's frame values onto a canvas.
type Scene interface {
	Draw(c *Canvas, vals []float64)
	// Primary is the value plotted in the history graph.
	Primary(vals []float64) (label string, value float64)
	Reset()
}

// NewScene picks the drawing for cfg.Model, sized from its initial state.
func NewScene(cfg buffer.Config) Scene {
	switch cfg.Model {
	case "projectile":
		return newProjectileScene(cfg)
	case "parachute":
		return newParachuteScene(cfg)
	case "bounce":
		return newBounceScene(cfg)
	case "solar":
		return newSolarScene(cfg)
	default:
		return &genericScene{}
	}
}

func param(cfg buffer.Config, name string, def float64) float64 {
	if v, ok := cfg.Params[name]; ok {
		return v
	}
	return def
}

func stateAt(cfg buffer.Config, i int) float64 {
	if i < len(cfg.State) {
		return cfg.State[i]
	}
	return 0
}

type trail []point

func (t *trail) push(p point) {
	*t = append(*t, p)
	if len(*t) > trailLength {
		*t = (*t)[1:]
	}
}

func (t trail) draw(c *Canvas, v Viewport) {
	for _, p := range t {
		c.Plot(v, p.x, p.y)
	}
}

type projectileScene struct {
	view  Viewport
	trail trail
}

func newProjectileScene(cfg buffer.Config) *projectileScene {
	g := param(cfg, "gravity", models.DefaultGravity)
	y0, vx, vy := stateAt(cfg, 1), stateAt(cfg, 2), stateAt(cfg, 3)
	flight := (vy + math.Sqrt(math.Max(vy*vy+2*g*y0, 0))) / g
	apex := y0 + math.Max(vy, 0)*math.Max(vy, 0)/(2*g)
	return &projectileScene{view: Viewport{
		MinX: -1,
		MaxX: math.Max(vx*flight, 1) * 1.05,
		MinY: -1,
		MaxY: math.Max(apex, 1) * 1.1,
	}}
}

func (s *projectileScene) Draw(c *Canvas, vals []float64) {
	v := s.view.Square(c)
	c.Line(v, v.MinX, 0, v.MaxX, 0)
	if len(vals) < 2 {
		return
	}
	s.trail.push(point{vals[0], vals[1]})
	s.trail.draw(c, v)
	px, py := v.Dot(c, vals[0], vals[1])
	c.DrawCircle(px, py, 1)
}

func (s *projectileScene) Primary(vals []float64) (string, float64) {
	if len(vals) < 2 {
		return "height (m)", 0
	}
	return "height (m)", vals[1]
}

func (s *projectileScene) Reset() { s.trail = s.trail[:0] }

type parachuteScene struct {
	top    float64
	deploy float64
}

func newParachuteScene(cfg buffer.Config) *parachuteScene {
	p := models.NewParachute()
	for k, v := range cfg.Params {
		_ = p.SetParam(k, v)
	}
	return &parachuteScene{top: math.Max(stateAt(cfg, 0), 1) * 1.05, deploy: p.DeployAltitude}
}

func (s *parachuteScene) Draw(c *Canvas, vals []float64) {
	v := Viewport{MinX: -1, MaxX: 1, MinY: 0, MaxY: s.top}
	c.Line(v, -1, 0, 1, 0)
	for x := -1.0; x <= 1; x += 0.1 {
		c.Plot(v, x, s.deploy)
	}
	if len(vals) < 1 {
		return
	}

	px, py := v.Dot(c, 0, vals[0])
	c.DrawCircle(px, py, 1)
	if vals[0] < s.deploy {
		// canopy
		w := c.DotsX() / 12
		c.DrawLine(px-w, py-6, px+w, py-6)
		c.DrawLine(px-w, py-6, px, py-1)
		c.DrawLine(px+w, py-6, px, py-1)
	}
}

func (s *parachuteScene) Primary(vals []float64) (string, float64) {
	if len(vals) < 1 {
		return "altitude (m)", 0
	}
	return "altitude (m)", vals[0]
}

func (s *parachuteScene) Reset() {}

type bounceScene struct {
	top   float64
	trail trail
}

func newBounceScene(cfg buffer.Config) *bounceScene {
	return &bounceScene{top: math.Max(stateAt(cfg, 0), 0.5) * 1.15}
}

// Draw plots height against a scrolling time axis so successive bounces
// line up left to right.
func (s *bounceScene) Draw(c *Canvas, vals []float64) {
	v := Viewport{MinX: 0, MaxX: trailLength, MinY: -0.05 * s.top, MaxY: s.top}
	c.Line(v, 0, 0, trailLength, 0)
	if len(vals) < 1 {
		return
	}
	s.trail.push(point{0, vals[0]})
	for i, p := range s.trail {
		c.Plot(v, float64(i), p.y)
	}
	px, py := v.Dot(c, float64(len(s.trail)-1), vals[0])
	c.DrawCircle(px, py, 2)
}

func (s *bounceScene) Primary(vals []float64) (string, float64) {
	if len(vals) < 1 {
		return "height (m)", 0
	}
	return "height (m)", vals[0]
}

func (s *bounceScene) Reset() { s.trail = s.trail[:0] }

type solarScene struct {
	view   Viewport
	trails []trail
}

func newSolarScene(cfg buffer.Config) *solarScene {
	r := 0.0
	for i := 0; i+1 < len(cfg.State); i += 4 {
		r = math.Max(r, math.Hypot(cfg.State[i], cfg.State[i+1]))
	}
	r = math.Max(r, 0.1) * 1.15
	return &solarScene{
		view:   Viewport{MinX: -r, MaxX: r, MinY: -r, MaxY: r},
		trails: make([]trail, len(cfg.State)/4),
	}
}

func (s *solarScene) Draw(c *Canvas, vals []float64) {
	v := s.view.Square(c)
	sx, sy := v.Dot(c, 0, 0)
	c.DrawCircle(sx, sy, 2)
	for i := range s.trails {
		if 2*i+1 >= len(vals) {
			break
		}
		x, y := vals[2*i], vals[2*i+1]
		s.trails[i].push(point{x, y})
		s.trails[i].draw(c, v)
		px, py := v.Dot(c, x, y)
		c.DrawCircle(px, py, 1)
	}
}

func (s *solarScene) Primary(vals []float64) (string, float64) {
	if len(vals) < 2 {
		return "r1 (AU)", 0
	}
	return "r1 (AU)", math.Hypot(vals[0], vals[1])
}

func (s *solarScene) Reset() {
	for i := range s.trails {
		s.trails[i] = s.trails[i][:0]
	}
}

// genericScene draws each value as a bar around a center line.
type genericScene struct{}

func (genericScene) Draw(c *Canvas, vals []float64) {
	cy := c.DotsY() / 2
	c.DrawLine(0, cy, c.DotsX()-1, cy)
	if len(vals) == 0 {
		return
	}
	maxVal := 1.0
	for _, v := range vals {
		maxVal = math.Max(maxVal, math.Abs(v))
	}
	bw := c.DotsX() / (len(vals) + 1)
	for i, v := range vals {
		bx := bw * (i + 1)
		c.DrawLine(bx, cy, bx, cy-int(v/maxVal*float64(cy-1)))
	}
}

func (genericScene) Primary(vals []float64) (string, float64) {
	if len(vals) == 0 {
		return "v0", 0
	}
	return "v0", vals[0]
}

func (genericScene) Reset() {}
