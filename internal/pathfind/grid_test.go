package pathfind

import "testing"

func TestBuildFromTileMapBlocksCollidingTiles(t *testing.T) {
	tm := &TileMap{
		Width: 3, Height: 1, TileWidth: 32, TileHeight: 32,
		Tilesets: []Tileset{
			{FirstGID: 1, Tiles: []TileMeta{
				{ID: 0, Properties: []Property{{Name: "collides", Value: true}}},
			}},
		},
		Layers: []Layer{
			{Name: "ground", Type: "tilelayer", Data: []uint32{1, 0, 1}},
		},
	}

	grid, err := BuildFromTileMap(tm)
	if err != nil {
		t.Fatalf("BuildFromTileMap: %v", err)
	}
	if grid.IsWalkable(0, 0) {
		t.Error("tile (0,0) should be blocked")
	}
	if !grid.IsWalkable(1, 0) {
		t.Error("tile (1,0) should be walkable")
	}
	if grid.IsWalkable(2, 0) {
		t.Error("tile (2,0) should be blocked")
	}
}

func TestBuildFromTileMapRasterisesRectangleObject(t *testing.T) {
	tm := &TileMap{
		Width: 4, Height: 4, TileWidth: 32, TileHeight: 32,
		Layers: []Layer{
			{
				Name: "Wall",
				Type: "objectgroup",
				Objects: []Object{
					{X: 32, Y: 32, Width: 64, Height: 32},
				},
			},
		},
	}
	grid, err := BuildFromTileMap(tm)
	if err != nil {
		t.Fatalf("BuildFromTileMap: %v", err)
	}
	for _, tl := range []struct{ x, y int }{{1, 1}, {2, 1}} {
		if grid.IsWalkable(tl.x, tl.y) {
			t.Errorf("tile (%d,%d) should be blocked by the wall rectangle", tl.x, tl.y)
		}
	}
	if !grid.IsWalkable(0, 0) {
		t.Error("tile (0,0) should remain walkable")
	}
	if !grid.IsWalkable(3, 3) {
		t.Error("tile (3,3) should remain walkable")
	}
}

func TestBuildFromTileMapIgnoresUnlistedObjectLayers(t *testing.T) {
	tm := &TileMap{
		Width: 2, Height: 2, TileWidth: 32, TileHeight: 32,
		Layers: []Layer{
			{
				Name: "Decoration",
				Type: "objectgroup",
				Objects: []Object{
					{X: 0, Y: 0, Width: 32, Height: 32},
				},
			},
		},
	}
	grid, err := BuildFromTileMap(tm)
	if err != nil {
		t.Fatalf("BuildFromTileMap: %v", err)
	}
	if !grid.IsWalkable(0, 0) {
		t.Error("tile (0,0) should stay walkable: Decoration is not a blocking layer name")
	}
}

func TestLoadSidecarRejectsMutatedGrid(t *testing.T) {
	tm := &TileMap{Width: 2, Height: 2, TileWidth: 32, TileHeight: 32}
	mapBytes := []byte("tilemap-bytes")

	grid, err := BuildFromTileMap(tm)
	if err != nil {
		t.Fatalf("BuildFromTileMap: %v", err)
	}
	side := BuildSidecar(grid, mapBytes, 1, fixedTime())
	data := marshalSidecar(t, side)

	if _, err := LoadSidecar(data, mapBytes, tm); err != nil {
		t.Fatalf("LoadSidecar on an untouched sidecar: %v", err)
	}

	side.Blocked[0] = true
	mutated := marshalSidecar(t, side)
	if _, err := LoadSidecar(mutated, mapBytes, tm); err == nil {
		t.Error("expected LoadSidecar to reject a sidecar whose grid was mutated after hashing")
	}

	if _, err := LoadSidecar(data, []byte("different-bytes"), tm); err == nil {
		t.Error("expected LoadSidecar to reject a mismatched map hash")
	}
}
