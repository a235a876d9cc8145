package pathfind

import (
	"fmt"
	"math"
)

// Point is a pixel-space coordinate.
type Point struct {
	X float64
	Y float64
}

type tile struct {
	x, y int
}

func (t tile) key() string {
	return fmt.Sprintf("%d,%d", t.x, t.y)
}

var fourNeighbors = [4]tile{
	{0, -1},
	{0, 1},
	{1, 0},
	{-1, 0},
}

// openEntry is one node tracked in the open set.
type openEntry struct {
	t         tile
	g, f      float64
	discovery int
}

// FindPath runs a grid-based A* search: 4-connected neighbours, uniform
// step cost, Manhattan heuristic, a map-keyed open set with linear
// minimum-f selection and first-discovered tie-breaking.
// It returns the center-pixel waypoints of the path, or nil if start and
// target land in the same tile or no path exists.
func (g *Grid) FindPath(start, target Point) []Point {
	startTile, ok := g.locate(start)
	if !ok {
		return nil
	}
	targetTile, ok := g.locate(target)
	if !ok {
		return nil
	}

	if startTile == targetTile {
		return []Point{g.centerOf(targetTile)}
	}

	if !g.IsWalkable(targetTile.x, targetTile.y) {
		return nil
	}

	open := map[string]*openEntry{startTile.key(): {t: startTile, g: 0, f: manhattan(startTile, targetTile)}}
	cameFrom := map[string]tile{}
	closed := map[string]bool{}
	discovery := 0

	for len(open) > 0 {
		var current *openEntry
		for _, entry := range open {
			if current == nil || entry.f < current.f || (entry.f == current.f && entry.discovery < current.discovery) {
				current = entry
			}
		}
		delete(open, current.t.key())
		closed[current.t.key()] = true

		if current.t == targetTile {
			return reconstructPath(cameFrom, startTile, targetTile, g)
		}

		for _, d := range fourNeighbors {
			next := tile{x: current.t.x + d.x, y: current.t.y + d.y}
			if closed[next.key()] {
				continue
			}
			if !g.IsWalkable(next.x, next.y) {
				continue
			}
			tentativeG := current.g + 1
			if existing, ok := open[next.key()]; ok && tentativeG >= existing.g {
				continue
			}
			cameFrom[next.key()] = current.t
			discovery++
			open[next.key()] = &openEntry{
				t:         next,
				g:         tentativeG,
				f:         tentativeG + manhattan(next, targetTile),
				discovery: discovery,
			}
		}
	}

	return nil
}

func reconstructPath(cameFrom map[string]tile, start, goal tile, g *Grid) []Point {
	path := []tile{goal}
	current := goal
	for current != start {
		prev, ok := cameFrom[current.key()]
		if !ok {
			return nil
		}
		path = append(path, prev)
		current = prev
	}
	// path is goal..start; reverse to start..goal.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	out := make([]Point, len(path))
	for i, t := range path {
		out[i] = g.centerOf(t)
	}
	return out
}

func manhattan(a, b tile) float64 {
	return math.Abs(float64(a.x-b.x)) + math.Abs(float64(a.y-b.y))
}

// locate converts a pixel point into its tile, clamped to grid bounds.
func (g *Grid) locate(p Point) (tile, bool) {
	if g.TileWidth <= 0 || g.TileHeight <= 0 || g.Width <= 0 || g.Height <= 0 {
		return tile{}, false
	}
	x := int(math.Floor(p.X / float64(g.TileWidth)))
	y := int(math.Floor(p.Y / float64(g.TileHeight)))
	if x < 0 {
		x = 0
	}
	if x >= g.Width {
		x = g.Width - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= g.Height {
		y = g.Height - 1
	}
	return tile{x: x, y: y}, true
}

func (g *Grid) centerOf(t tile) Point {
	return Point{
		X: (float64(t.x) + 0.5) * float64(g.TileWidth),
		Y: (float64(t.y) + 0.5) * float64(g.TileHeight),
	}
}
