package pathfind

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Grid is a rasterised walkable/blocked tile grid plus the tile geometry
// needed to convert between pixels and tile coordinates.
type Grid struct {
	Width      int
	Height     int
	TileWidth  int
	TileHeight int
	// Blocked[y*Width+x] is true when the tile is blocked.
	Blocked []bool
}

// NewGrid allocates an all-walkable grid of the given dimensions.
func NewGrid(width, height, tileWidth, tileHeight int) *Grid {
	return &Grid{
		Width:      width,
		Height:     height,
		TileWidth:  tileWidth,
		TileHeight: tileHeight,
		Blocked:    make([]bool, width*height),
	}
}

func (g *Grid) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

func (g *Grid) index(x, y int) int {
	return y*g.Width + x
}

// IsWalkable reports whether tile (x, y) is in bounds and not blocked.
func (g *Grid) IsWalkable(x, y int) bool {
	if !g.inBounds(x, y) {
		return false
	}
	return !g.Blocked[g.index(x, y)]
}

func (g *Grid) block(x, y int) {
	if g.inBounds(x, y) {
		g.Blocked[g.index(x, y)] = true
	}
}

// BuildFromTileMap rasterises a tile-map document into a Grid: blocking
// GIDs are derived from each tileset's per-tile "collides" property,
// tile layers are scanned cell by cell, and object layers in the fixed
// blocking-layer set are rasterised per their shape.
func BuildFromTileMap(tm *TileMap) (*Grid, error) {
	if tm.Width <= 0 || tm.Height <= 0 {
		return nil, fmt.Errorf("pathfind: tile-map has non-positive dimensions %dx%d", tm.Width, tm.Height)
	}

	blockingGIDs := collectBlockingGIDs(tm)
	grid := NewGrid(tm.Width, tm.Height, tm.TileWidth, tm.TileHeight)

	for _, layer := range tm.Layers {
		switch layer.Type {
		case "tilelayer":
			applyTileLayer(grid, layer, blockingGIDs)
		case "objectgroup":
			if !blockingLayerNames[layer.Name] {
				continue
			}
			for _, obj := range layer.Objects {
				rasterizeObject(grid, obj)
			}
		}
	}

	return grid, nil
}

// collectBlockingGIDs computes the absolute GID for every tile whose
// per-tile properties declare {name: "collides", value: true}.
func collectBlockingGIDs(tm *TileMap) map[uint32]bool {
	blocking := make(map[uint32]bool)
	for _, ts := range tm.Tilesets {
		for _, tile := range ts.Tiles {
			if !tileCollides(tile) {
				continue
			}
			gid := uint32(ts.FirstGID + tile.ID)
			blocking[gid] = true
		}
	}
	return blocking
}

func tileCollides(tile TileMeta) bool {
	for _, prop := range tile.Properties {
		if prop.Name != "collides" {
			continue
		}
		if v, ok := prop.Value.(bool); ok {
			return v
		}
	}
	return false
}

// applyTileLayer blocks every tile whose (flip-bit-stripped) GID is in
// the blocking set. Index i maps to (x = i mod W, y = i / W).
func applyTileLayer(grid *Grid, layer Layer, blockingGIDs map[uint32]bool) {
	width := grid.Width
	for i, raw := range layer.Data {
		gid := raw & gidFlipMask
		if gid == 0 || !blockingGIDs[gid] {
			continue
		}
		x := i % width
		y := i / width
		grid.block(x, y)
	}
}

// MapHash returns the SHA-256 hash of a tile-map's raw bytes, the value a
// precomputed-grid sidecar's mapHash field is checked against.
func MapHash(raw []byte) string {
	return hashHex(raw)
}

// GridHash returns the SHA-256 hash of the grid's stringified form, the
// value a sidecar's gridHash field is checked against.
func GridHash(g *Grid) string {
	return hashHex([]byte(stringifyGrid(g)))
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// stringifyGrid renders the grid as a compact "0101..." string, one
// character per cell, consistent with how the grid is hashed.
func stringifyGrid(g *Grid) string {
	buf := make([]byte, len(g.Blocked))
	for i, blocked := range g.Blocked {
		if blocked {
			buf[i] = '1'
		} else {
			buf[i] = '0'
		}
	}
	return string(buf)
}
