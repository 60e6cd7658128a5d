package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/arachne/internal/system"
)

// marshalSemistate converts a semistate to canonical JSON TEXT for storage.
// Seq is not part of the body; it is stored in its own column.
func marshalSemistate(st system.Semistate) (string, error) {
	data, err := st.CanonicalBytes()
	if err != nil {
		return "", fmt.Errorf("marshal semistate: %w", err)
	}
	return string(data), nil
}

// unmarshalSemistate parses a stored body and restores its seq.
// The canonical keys match the json tags of system.Semistate.
func unmarshalSemistate(data string, seq int64) (system.Semistate, error) {
	var st system.Semistate
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return system.Semistate{}, fmt.Errorf("unmarshal semistate: %w", err)
	}
	st.Seq = seq
	if st.Runs == nil {
		st.Runs = []system.RunView{}
	}
	return st, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
