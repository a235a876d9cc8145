package model

import "encoding/json"

// cloneViaJSON deep-copies a metadata map by marshalling and
// unmarshalling it, the same trick the reconciler's source system uses to
// avoid mutating a Registry-owned metadata blob in place.
func cloneViaJSON(m Metadata) (Metadata, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out Metadata
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
