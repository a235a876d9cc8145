// Package pathfind implements the walkable-map builder and A* search:
// rasterising a Tiled-style tile-map (or a validated precomputed-grid
// sidecar) into a walkable grid, then searching it.
package pathfind

// TileMap is the subset of the Tiled JSON map format this module needs:
// tilesets (for collision metadata) and layers (tile layers and object
// layers).
type TileMap struct {
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	TileWidth   int         `json:"tilewidth"`
	TileHeight  int         `json:"tileheight"`
	Tilesets    []Tileset   `json:"tilesets"`
	Layers      []Layer     `json:"layers"`
}

// Tileset declares the first GID a tileset's tiles start at, plus
// per-tile metadata (used to find "collides" properties).
type Tileset struct {
	FirstGID int        `json:"firstgid"`
	Tiles    []TileMeta `json:"tiles,omitempty"`
}

// TileMeta carries a tile's per-tile id and its custom properties.
type TileMeta struct {
	ID         int        `json:"id"`
	Properties []Property `json:"properties,omitempty"`
}

// Property is one Tiled custom property.
type Property struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Layer is either a tile layer ("tilelayer", with a flat Data array of
// GIDs) or an object layer ("objectgroup", with Objects).
type Layer struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Data    []uint32 `json:"data,omitempty"`
	Objects []Object `json:"objects,omitempty"`
}

// Object is one entry in an object layer: a rectangle, ellipse, polygon,
// or point, optionally rotated, optionally tile-based (GID != 0).
type Object struct {
	ID       int        `json:"id"`
	GID      uint32     `json:"gid,omitempty"`
	X        float64    `json:"x"`
	Y        float64    `json:"y"`
	Width    float64    `json:"width"`
	Height   float64    `json:"height"`
	Rotation float64    `json:"rotation"`
	Ellipse  bool       `json:"ellipse,omitempty"`
	Polygon  []Vertex   `json:"polygon,omitempty"`
}

// Vertex is a polygon point relative to its object's (x, y) origin.
type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// blockingLayerNames is the fixed set of object-layer names this module
// rasterises into blocked tiles.
var blockingLayerNames = map[string]bool{
	"Wall":                   true,
	"Objects":                true,
	"ObjectsOnCollide":       true,
	"GenericObjects":         true,
	"GenericObjectsOnCollide": true,
	"Computer":               true,
	"Whiteboard":              true,
	"VendingMachine":         true,
	"Chair":                  true,
}

// gidFlipMask strips Tiled's three high flip bits, leaving the raw tile
// id.
const gidFlipMask = 0x1FFFFFFF
