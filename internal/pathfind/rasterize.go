package pathfind

import "math"

// edgeEpsilon excludes tiles that a rectangle or polygon edge only grazes
// on its trailing (right/bottom) side.
const edgeEpsilon = 1e-4

// rasterizeObject dispatches one object-layer entry to the rasteriser
// matching its shape: polygon (>=3 vertices), ellipse, or rectangle
// (rotated or axis-aligned).
func rasterizeObject(grid *Grid, obj Object) {
	switch {
	case len(obj.Polygon) >= 3:
		rasterizePolygon(grid, obj)
	case obj.Ellipse:
		rasterizeEllipse(grid, obj)
	case obj.Rotation != 0:
		rasterizeRotatedRect(grid, obj)
	default:
		left, top := rectOrigin(obj)
		blockRect(grid, left, top, obj.Width, obj.Height)
	}
}

// rectOrigin applies the tile-object top adjustment: a tile-based object
// (gid != 0) anchors its Y at the tile's bottom edge in Tiled, so its
// true top is Y - height.
func rectOrigin(obj Object) (left, top float64) {
	left = obj.X
	top = obj.Y
	if obj.GID != 0 {
		top = obj.Y - obj.Height
	}
	return left, top
}

// blockRect marks every tile intersected by [left, left+w) x [top, top+h),
// excluding tiles touched only on the trailing edge.
func blockRect(grid *Grid, left, top, width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	startCol := int(math.Floor(left / float64(grid.TileWidth)))
	endCol := int(math.Floor((left + width - edgeEpsilon) / float64(grid.TileWidth)))
	startRow := int(math.Floor(top / float64(grid.TileHeight)))
	endRow := int(math.Floor((top + height - edgeEpsilon) / float64(grid.TileHeight)))
	for y := startRow; y <= endRow; y++ {
		for x := startCol; x <= endCol; x++ {
			grid.block(x, y)
		}
	}
}

// rasterizeRotatedRect converts a rotated rectangle into its 4-vertex
// polygon, rotating about (left, top), then rasterises it as a polygon.
func rasterizeRotatedRect(grid *Grid, obj Object) {
	left, top := rectOrigin(obj)
	corners := []point{
		{left, top},
		{left + obj.Width, top},
		{left + obj.Width, top + obj.Height},
		{left, top + obj.Height},
	}
	pivot := point{left, top}
	rotated := make([]point, len(corners))
	for i, c := range corners {
		rotated[i] = rotate(c, pivot, obj.Rotation)
	}
	rasterizePolygonPoints(grid, rotated)
}

// rasterizePolygon rotates an object's polygon vertices about the
// object's raw anchor (X, Y), then rasterises the result.
func rasterizePolygon(grid *Grid, obj Object) {
	pivot := point{obj.X, obj.Y}
	verts := make([]point, len(obj.Polygon))
	for i, v := range obj.Polygon {
		abs := point{obj.X + v.X, obj.Y + v.Y}
		verts[i] = rotate(abs, pivot, obj.Rotation)
	}
	rasterizePolygonPoints(grid, verts)
}

type point struct {
	X, Y float64
}

// rotate rotates p about pivot by angleDeg degrees, matching Tiled's
// clockwise-positive rotation in a y-down coordinate system.
func rotate(p, pivot point, angleDeg float64) point {
	if angleDeg == 0 {
		return p
	}
	theta := angleDeg * math.Pi / 180
	dx := p.X - pivot.X
	dy := p.Y - pivot.Y
	cos, sin := math.Cos(theta), math.Sin(theta)
	return point{
		X: pivot.X + dx*cos - dy*sin,
		Y: pivot.Y + dx*sin + dy*cos,
	}
}

// rasterizePolygonPoints rasterises an arbitrary polygon: a scanline pass
// per grid row, plus a point-in-polygon sweep and a per-vertex mark to
// cover slivers the scanline pass can miss on very small polygons.
func rasterizePolygonPoints(grid *Grid, verts []point) {
	if len(verts) < 3 {
		return
	}

	minX, minY, maxX, maxY := verts[0].X, verts[0].Y, verts[0].X, verts[0].Y
	for _, v := range verts[1:] {
		minX = math.Min(minX, v.X)
		maxX = math.Max(maxX, v.X)
		minY = math.Min(minY, v.Y)
		maxY = math.Max(maxY, v.Y)
	}

	startRow := int(math.Floor(minY / float64(grid.TileHeight)))
	endRow := int(math.Floor(maxY / float64(grid.TileHeight)))
	startCol := int(math.Floor(minX / float64(grid.TileWidth)))
	endCol := int(math.Floor(maxX / float64(grid.TileWidth)))

	for row := startRow; row <= endRow; row++ {
		yMid := (float64(row) + 0.5) * float64(grid.TileHeight)
		xs := scanlineIntersections(verts, yMid)
		for i := 0; i+1 < len(xs); i += 2 {
			x0, x1 := xs[i], xs[i+1]
			colStart := int(math.Floor(x0 / float64(grid.TileWidth)))
			colEnd := int(math.Floor((x1 - edgeEpsilon) / float64(grid.TileWidth)))
			for col := colStart; col <= colEnd; col++ {
				grid.block(col, row)
			}
		}
	}

	for row := startRow; row <= endRow; row++ {
		for col := startCol; col <= endCol; col++ {
			cx := (float64(col) + 0.5) * float64(grid.TileWidth)
			cy := (float64(row) + 0.5) * float64(grid.TileHeight)
			if pointInPolygon(verts, cx, cy) {
				grid.block(col, row)
			}
		}
	}

	for _, v := range verts {
		grid.block(int(math.Floor(v.X/float64(grid.TileWidth))), int(math.Floor(v.Y/float64(grid.TileHeight))))
	}
}

// scanlineIntersections returns the sorted X coordinates where the
// polygon's edges cross the horizontal line y = yMid.
func scanlineIntersections(verts []point, yMid float64) []float64 {
	var xs []float64
	n := len(verts)
	for i := 0; i < n; i++ {
		a := verts[i]
		b := verts[(i+1)%n]
		if a.Y == b.Y {
			continue
		}
		lo, hi := a.Y, b.Y
		if lo > hi {
			lo, hi = hi, lo
		}
		if yMid < lo || yMid >= hi {
			continue
		}
		t := (yMid - a.Y) / (b.Y - a.Y)
		xs = append(xs, a.X+t*(b.X-a.X))
	}
	sortFloats(xs)
	return xs
}

func sortFloats(xs []float64) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

// pointInPolygon is a standard even-odd ray-cast test.
func pointInPolygon(verts []point, x, y float64) bool {
	inside := false
	n := len(verts)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := verts[i], verts[j]
		if (a.Y > y) != (b.Y > y) {
			xIntersect := a.X + (y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
			if x < xIntersect {
				inside = !inside
			}
		}
	}
	return inside
}

// rasterizeEllipse marks every tile whose center falls inside the
// ellipse inscribed in the object's bounding box.
func rasterizeEllipse(grid *Grid, obj Object) {
	if obj.Width <= 0 || obj.Height <= 0 {
		return
	}
	cx := obj.X + obj.Width/2
	cy := obj.Y + obj.Height/2
	rx := obj.Width / 2
	ry := obj.Height / 2

	startCol := int(math.Floor(obj.X / float64(grid.TileWidth)))
	endCol := int(math.Floor((obj.X + obj.Width) / float64(grid.TileWidth)))
	startRow := int(math.Floor(obj.Y / float64(grid.TileHeight)))
	endRow := int(math.Floor((obj.Y + obj.Height) / float64(grid.TileHeight)))

	for row := startRow; row <= endRow; row++ {
		for col := startCol; col <= endCol; col++ {
			tx := (float64(col) + 0.5) * float64(grid.TileWidth)
			ty := (float64(row) + 0.5) * float64(grid.TileHeight)
			nx := (tx - cx) / rx
			ny := (ty - cy) / ry
			if nx*nx+ny*ny <= 1 {
				grid.block(col, row)
			}
		}
	}
}
