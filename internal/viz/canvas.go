package viz

import (
	"math"
	"strings"
)

// Braille cells hold 2x4 dots:
// 1 4
// 2 5
// 3 6
// 7 8
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a braille pixel grid. Its resolution in dots is
// (Width*2) x (Height*4).
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

func (c *Canvas) DotsX() int { return c.Width * 2 }
func (c *Canvas) DotsY() int { return c.Height * 4 }

// Set lights the dot at (x, y). Out of range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.Grid[y/4][x/2]&rune(pixelMap[y%4][x%2]) != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) DrawCircle(cx, cy, r int) {
	if r <= 0 {
		c.Set(cx, cy)
		return
	}
	steps := 8 * r
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		c.Set(cx+int(math.Round(float64(r)*math.Cos(a))), cy+int(math.Round(float64(r)*math.Sin(a))))
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Viewport maps world coordinates onto canvas dots, y pointing up.
type Viewport struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// Square widens one axis so a world unit spans the same number of dots
// horizontally and vertically. Braille dots are close to square on a
// terminal with 1:2 cells.
func (v Viewport) Square(c *Canvas) Viewport {
	w, h := v.MaxX-v.MinX, v.MaxY-v.MinY
	if w <= 0 || h <= 0 {
		return v
	}
	aspect := float64(c.DotsX()) / float64(c.DotsY())
	if w/h < aspect {
		pad := (h*aspect - w) / 2
		v.MinX -= pad
		v.MaxX += pad
	} else {
		pad := (w/aspect - h) / 2
		v.MinY -= pad
		v.MaxY += pad
	}
	return v
}

func (v Viewport) Dot(c *Canvas, x, y float64) (int, int) {
	w, h := v.MaxX-v.MinX, v.MaxY-v.MinY
	if w <= 0 || h <= 0 {
		return -1, -1
	}
	px := (x - v.MinX) / w * float64(c.DotsX()-1)
	py := (v.MaxY - y) / h * float64(c.DotsY()-1)
	return int(math.Round(px)), int(math.Round(py))
}

func (c *Canvas) Plot(v Viewport, x, y float64) {
	px, py := v.Dot(c, x, y)
	c.Set(px, py)
}

func (c *Canvas) Line(v Viewport, x0, y0, x1, y1 float64) {
	ax, ay := v.Dot(c, x0, y0)
	bx, by := v.Dot(c, x1, y1)
	c.DrawLine(ax, ay, bx, by)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
