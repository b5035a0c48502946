package display

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeJSON marshals a Snapshot for HTTP/websocket UI consumers.
func EncodeJSON(snap Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

// EncodeMsgpack marshals a Snapshot for the embedded IPC boundary (see
// ipc.EncodeFrame, which length-prefixes this payload).
func EncodeMsgpack(snap Snapshot) ([]byte, error) {
	b, err := msgpack.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("display: encode snapshot: %w", err)
	}
	return b, nil
}

// DecodeMsgpack unmarshals a Snapshot payload produced by EncodeMsgpack.
func DecodeMsgpack(payload []byte) (Snapshot, error) {
	var snap Snapshot
	if err := msgpack.Unmarshal(payload, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("display: decode snapshot: %w", err)
	}
	return snap, nil
}
