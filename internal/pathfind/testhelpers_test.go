package pathfind

import (
	"encoding/json"
	"testing"
	"time"
)

func fixedTime() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func marshalSidecar(t *testing.T, side Sidecar) []byte {
	t.Helper()
	data, err := json.Marshal(side)
	if err != nil {
		t.Fatalf("marshal sidecar: %v", err)
	}
	return data
}
