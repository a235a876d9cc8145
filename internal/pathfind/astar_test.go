package pathfind

import "testing"

func smallOpenGrid() *Grid {
	return NewGrid(5, 5, 32, 32)
}

func TestFindPathSameTileReturnsSingleWaypoint(t *testing.T) {
	g := smallOpenGrid()
	start := Point{X: 16, Y: 16}
	target := Point{X: 20, Y: 20}
	path := g.FindPath(start, target)
	if len(path) != 1 {
		t.Fatalf("len(path) = %d, want 1", len(path))
	}
	if path[0] != g.centerOf(tile{0, 0}) {
		t.Errorf("path[0] = %+v, want center of start/target tile", path[0])
	}
}

func TestFindPathStraightLine(t *testing.T) {
	g := smallOpenGrid()
	start := Point{X: 16, Y: 16}
	target := Point{X: 16, Y: 16 + 32*4}
	path := g.FindPath(start, target)
	if path == nil {
		t.Fatal("expected a path")
	}
	for i := 1; i < len(path); i++ {
		dx := path[i].X - path[i-1].X
		dy := path[i].Y - path[i-1].Y
		if (dx != 0 && dy != 0) || (dx == 0 && dy == 0) {
			t.Fatalf("waypoints %d and %d are not 4-neighbours: %+v -> %+v", i-1, i, path[i-1], path[i])
		}
	}
	last := path[len(path)-1]
	wantLast := g.centerOf(tile{0, 4})
	if last != wantLast {
		t.Errorf("last waypoint = %+v, want %+v", last, wantLast)
	}
}

func TestFindPathBlockedReturnsNil(t *testing.T) {
	g := smallOpenGrid()
	for y := 0; y < 5; y++ {
		g.block(2, y)
	}
	start := Point{X: 16, Y: 16}
	target := Point{X: 16 + 32*4, Y: 16}
	path := g.FindPath(start, target)
	if path != nil {
		t.Fatalf("expected nil path through a blocking wall, got %v", path)
	}
}

func TestFindPathWaypointsAreWalkable(t *testing.T) {
	g := smallOpenGrid()
	g.block(1, 1)
	g.block(1, 2)
	start := Point{X: 16, Y: 16}
	target := Point{X: 16 + 32*3, Y: 16 + 32*3}
	path := g.FindPath(start, target)
	if path == nil {
		t.Fatal("expected a path around the obstacle")
	}
	for _, p := range path {
		tl, ok := g.locate(p)
		if !ok || !g.IsWalkable(tl.x, tl.y) {
			t.Errorf("waypoint %+v lands on a non-walkable tile", p)
		}
	}
}

func TestMapHashAndGridHashChangeWithContent(t *testing.T) {
	g := smallOpenGrid()
	h1 := GridHash(g)
	g.block(0, 0)
	h2 := GridHash(g)
	if h1 == h2 {
		t.Error("expected gridHash to change after blocking a tile")
	}

	m1 := MapHash([]byte("map-bytes"))
	m2 := MapHash([]byte("map-bytesX"))
	if m1 == m2 {
		t.Error("expected mapHash to change with a single byte mutation")
	}
}
