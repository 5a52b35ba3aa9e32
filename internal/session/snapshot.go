package session

// SnapshotVersion is the current checkpoint format version. Stores
// refuse to load snapshots written by a newer format.
const SnapshotVersion = 1

// Snapshot is the persisted envelope around a session state.
type Snapshot struct {
	Version int    `json:"version"`
	State   *State `json:"state"`
}

// NewSnapshot wraps a state at the current format version.
func NewSnapshot(s *State) Snapshot {
	return Snapshot{Version: SnapshotVersion, State: s}
}
