package pathfind

import "testing"

func TestRasterizeEllipseBlocksInscribedTiles(t *testing.T) {
	grid := NewGrid(4, 4, 32, 32)
	obj := Object{Ellipse: true, X: 0, Y: 0, Width: 128, Height: 128}
	rasterizeEllipse(grid, obj)

	if !grid.IsWalkable(0, 0) {
		t.Error("corner tile center should fall outside the inscribed ellipse")
	}
	if !isBlocked(grid, 2, 2) {
		t.Error("tile near the ellipse center should be blocked")
	}
}

func TestRasterizePolygonBlocksTriangleInterior(t *testing.T) {
	grid := NewGrid(6, 6, 32, 32)
	obj := Object{
		X: 0, Y: 0,
		Polygon: []Vertex{
			{X: 0, Y: 0},
			{X: 192, Y: 0},
			{X: 0, Y: 192},
		},
	}
	rasterizePolygon(grid, obj)

	if !isBlocked(grid, 1, 1) {
		t.Error("tile inside the triangle should be blocked")
	}
	if isBlocked(grid, 5, 5) {
		t.Error("tile far outside the triangle should stay walkable")
	}
}

func isBlocked(g *Grid, x, y int) bool {
	return g.inBounds(x, y) && g.Blocked[g.index(x, y)]
}
