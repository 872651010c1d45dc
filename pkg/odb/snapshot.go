package odb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// SnapshotVersion is the schema version written by Encode
const SnapshotVersion = 1

// ErrSnapshotVersion is returned when decoding a snapshot with an unknown schema
var ErrSnapshotVersion = errors.New("unsupported snapshot version")

// Snapshot is the serializable form of a Database
type Snapshot struct {
	Version int    `json:"version"`
	Tech    *Tech  `json:"tech,omitempty"`
	Libs    []*Lib `json:"libs,omitempty"`
	Block   *Block `json:"block,omitempty"`
}

// Clone deep-copies the snapshot
func (s *Snapshot) Clone() (*Snapshot, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	var out Snapshot
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &out, nil
}

// Encode writes the database content as a snapshot
func Encode(w io.Writer, db *Database) error {
	s := Snapshot{
		Version: SnapshotVersion,
		Tech:    db.tech,
		Libs:    db.libs,
		Block:   db.block,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	if err := enc.Encode(&s); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	return nil
}

// Decode reads a snapshot written by Encode
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotVersion, s.Version)
	}

	return &s, nil
}
