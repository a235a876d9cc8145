package app

import (
	"encoding/json"
	"os"
	"time"

	"skyoffice-presence/server/internal/logging"
	"skyoffice-presence/server/internal/pathfind"
)

// loadGrid loads the walkable-tile grid POST /api/pathfind needs, from
// the tile-map (and optional precomputed sidecar) named by
// tileMapPath/sidecarPath. Both are optional: with no tile-map
// configured, it returns a nil grid and the pathfind endpoint stays
// disabled, matching the rest of this package's preference for graceful
// startup over a hard dependency on an asset this deployment might not
// ship.
func loadGrid(tileMapPath, sidecarPath string, log logging.Publisher) *pathfind.Grid {
	if tileMapPath == "" {
		return nil
	}

	mapBytes, err := os.ReadFile(tileMapPath)
	if err != nil {
		log.Publish(logging.Event{
			Time: time.Now(), Severity: logging.SeverityWarn, Category: logging.CategoryRoom,
			Message: "failed to read tile map, pathfinding disabled", Extra: map[string]any{"path": tileMapPath, "error": err.Error()},
		})
		return nil
	}

	var tm pathfind.TileMap
	if err := json.Unmarshal(mapBytes, &tm); err != nil {
		log.Publish(logging.Event{
			Time: time.Now(), Severity: logging.SeverityWarn, Category: logging.CategoryRoom,
			Message: "failed to parse tile map, pathfinding disabled", Extra: map[string]any{"path": tileMapPath, "error": err.Error()},
		})
		return nil
	}

	if sidecarPath != "" {
		if sideBytes, err := os.ReadFile(sidecarPath); err == nil {
			if grid, err := pathfind.LoadSidecar(sideBytes, mapBytes, &tm); err == nil {
				return grid
			} else {
				log.Publish(logging.Event{
					Time: time.Now(), Severity: logging.SeverityWarn, Category: logging.CategoryRoom,
					Message: "grid sidecar rejected, rebuilding from tile map", Extra: map[string]any{"path": sidecarPath, "error": err.Error()},
				})
			}
		}
	}

	grid, err := pathfind.BuildFromTileMap(&tm)
	if err != nil {
		log.Publish(logging.Event{
			Time: time.Now(), Severity: logging.SeverityWarn, Category: logging.CategoryRoom,
			Message: "failed to build walkable grid from tile map, pathfinding disabled", Extra: map[string]any{"path": tileMapPath, "error": err.Error()},
		})
		return nil
	}
	return grid
}
