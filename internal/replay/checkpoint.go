package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Checkpoint is the replay cursor kept next to a steps output. It only moves
// after a block range's steps reached the sink, so a crash replays at most one
// range. LastTxHash is the last transaction grouped in that range, including
// ones that decoded to no step.
type Checkpoint struct {
	LastProcessedBlock uint64 `json:"last_processed_block"`
	LastTxHash         string `json:"last_tx_hash,omitempty"`
	StepsWritten       uint64 `json:"steps_written"`
	UpdatedAt          string `json:"updated_at"`
}

// ResumeFrom returns the first block still to replay when a run asks to start
// at from. A checkpoint behind from is ignored.
func (cp Checkpoint) ResumeFrom(from uint64) (uint64, bool) {
	if cp.LastProcessedBlock < from {
		return from, false
	}
	return cp.LastProcessedBlock + 1, true
}

// Advance records a stored range ending at block to.
func (cp Checkpoint) Advance(to uint64, lastTx string, steps int) Checkpoint {
	cp.LastProcessedBlock = to
	if lastTx != "" {
		cp.LastTxHash = lastTx
	}
	cp.StepsWritten += uint64(steps)
	return cp
}

// CheckpointStore keeps a Checkpoint as a JSON file. An empty path disables it.
type CheckpointStore struct {
	path    string
	enabled bool
}

func NewCheckpointStore(path string, enabled bool) *CheckpointStore {
	return &CheckpointStore{path: path, enabled: enabled && path != ""}
}

func (c *CheckpointStore) Load() (Checkpoint, bool, error) {
	if !c.enabled {
		return Checkpoint{}, false, nil
	}

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("read checkpoint %s: %w", c.path, err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint %s: %w", c.path, err)
	}
	return cp, true, nil
}

// Save replaces the checkpoint file through a temp file in the same directory,
// so readers see either the old cursor or the new one.
func (c *CheckpointStore) Save(cp Checkpoint) error {
	if !c.enabled {
		return nil
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	cp.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create checkpoint tmp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}
