package pathfind

import (
	"encoding/json"
	"fmt"
	"time"
)

// Sidecar is the precomputed-grid document a room loads alongside its
// tile map: a cached rasterisation, validated against the map's bytes
// and the grid's own stringified form before it's trusted.
type Sidecar struct {
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	TileWidth   int       `json:"tileWidth"`
	TileHeight  int       `json:"tileHeight"`
	MapHash     string    `json:"mapHash"`
	GridHash    string    `json:"gridHash"`
	Version     int       `json:"version"`
	GeneratedAt time.Time `json:"generatedAt"`
	Blocked     []bool    `json:"blocked"`
}

// BuildSidecar packages a freshly built grid into its sidecar form,
// stamping the hashes a future load will validate against.
func BuildSidecar(g *Grid, mapBytes []byte, version int, generatedAt time.Time) Sidecar {
	return Sidecar{
		Width:       g.Width,
		Height:      g.Height,
		TileWidth:   g.TileWidth,
		TileHeight:  g.TileHeight,
		MapHash:     MapHash(mapBytes),
		GridHash:    GridHash(g),
		Version:     version,
		GeneratedAt: generatedAt,
		Blocked:     append([]bool(nil), g.Blocked...),
	}
}

// LoadSidecar validates a precomputed-grid sidecar against the tile-map
// it was generated from and returns the Grid it encodes. It rejects the
// sidecar with a clear error on any dimension, tile-size, or hash
// mismatch so the caller can fall back to BuildFromTileMap.
func LoadSidecar(data []byte, mapBytes []byte, tm *TileMap) (*Grid, error) {
	var side Sidecar
	if err := json.Unmarshal(data, &side); err != nil {
		return nil, fmt.Errorf("pathfind: decode grid sidecar: %w", err)
	}

	if side.Width != tm.Width || side.Height != tm.Height {
		return nil, fmt.Errorf("pathfind: grid sidecar dimensions %dx%d do not match tile-map %dx%d",
			side.Width, side.Height, tm.Width, tm.Height)
	}
	if side.TileWidth != tm.TileWidth || side.TileHeight != tm.TileHeight {
		return nil, fmt.Errorf("pathfind: grid sidecar tile size %dx%d does not match tile-map %dx%d",
			side.TileWidth, side.TileHeight, tm.TileWidth, tm.TileHeight)
	}
	if wantMapHash := MapHash(mapBytes); side.MapHash != wantMapHash {
		return nil, fmt.Errorf("pathfind: grid sidecar mapHash %q does not match tile-map hash %q",
			side.MapHash, wantMapHash)
	}

	grid := &Grid{
		Width:      side.Width,
		Height:     side.Height,
		TileWidth:  side.TileWidth,
		TileHeight: side.TileHeight,
		Blocked:    side.Blocked,
	}
	if wantGridHash := GridHash(grid); side.GridHash != wantGridHash {
		return nil, fmt.Errorf("pathfind: grid sidecar gridHash %q does not match recomputed grid hash %q",
			side.GridHash, wantGridHash)
	}

	return grid, nil
}
