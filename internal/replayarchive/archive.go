// Package replayarchive persists verified gameplay segments to disk for
// offline audit. Each segment becomes a self-describing bundle: a JSON
// manifest, a snappy-compressed JSONL event log, and a zstd-compressed
// binary checkpoint stream.
package replayarchive

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"towerkeep/server/internal/session"
	"towerkeep/server/internal/sim"
)

const manifestVersion = 1

var bundleNameCleaner = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Manifest describes the bundle layout so audit tooling can locate the
// artefacts without guessing filenames.
type Manifest struct {
	Version         int    `json:"version"`
	CreatedAt       string `json:"created_at"`
	SessionID       string `json:"session_id"`
	UserID          string `json:"user_id"`
	Seed            uint32 `json:"seed"`
	SimVersion      string `json:"sim_version"`
	StartWave       int    `json:"start_wave"`
	EndWave         int    `json:"end_wave"`
	FinalTick       uint64 `json:"final_tick"`
	FinalHash       uint32 `json:"final_hash"`
	EventsPath      string `json:"events_path"`
	CheckpointsPath string `json:"checkpoints_path"`
}

// Archive writes segment bundles under a root directory. It satisfies
// the session service's archiver contract.
type Archive struct {
	mu   sync.Mutex
	root string
	now  func() time.Time
}

// Open prepares the archive root.
func Open(root string, clock func() time.Time) (*Archive, error) {
	if root == "" {
		return nil, fmt.Errorf("archive root must be provided")
	}
	if clock == nil {
		clock = time.Now
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Archive{root: root, now: clock}, nil
}

// ArchiveSegment writes one verified segment as a bundle directory named
// after the session and wave window. Writing the manifest last means a
// bundle without one is an aborted write and audit tooling skips it.
func (a *Archive) ArchiveSegment(seg session.ArchivedSegment) error {
	if a == nil {
		return fmt.Errorf("archive not configured")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	cleaned := bundleNameCleaner.ReplaceAllString(seg.SessionID, "")
	if cleaned == "" {
		cleaned = "session"
	}
	dir := filepath.Join(a.root, fmt.Sprintf("%s-w%03d-w%03d", cleaned, seg.StartWave, seg.EndWave))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if err := a.writeEvents(filepath.Join(dir, "events.jsonl.sz"), seg.Events); err != nil {
		return err
	}
	if err := a.writeCheckpoints(filepath.Join(dir, "checkpoints.bin.zst"), seg.Checkpoints); err != nil {
		return err
	}

	manifest := Manifest{
		Version:         manifestVersion,
		CreatedAt:       a.now().UTC().Format(time.RFC3339Nano),
		SessionID:       seg.SessionID,
		UserID:          seg.UserID,
		Seed:            seg.Seed,
		SimVersion:      sim.SimVersion,
		StartWave:       seg.StartWave,
		EndWave:         seg.EndWave,
		FinalTick:       seg.FinalTick,
		FinalHash:       seg.FinalHash,
		EventsPath:      "events.jsonl.sz",
		CheckpointsPath: "checkpoints.bin.zst",
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "manifest.json"), append(data, '\n'), 0o644)
}

// writeEvents emits one JSON line per player input through a snappy
// stream. JSONL keeps the log greppable after decompression.
func (a *Archive) writeEvents(path string, events []sim.Event) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	stream := snappy.NewBufferedWriter(file)
	enc := json.NewEncoder(stream)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			stream.Close()
			file.Close()
			return err
		}
	}
	if err := stream.Close(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// checkpointRecordSize is the fixed on-disk size of one checkpoint:
// tick u64, state hash u32, chain hash u32, all little endian.
const checkpointRecordSize = 8 + 4 + 4

func (a *Archive) writeCheckpoints(path string, checkpoints []sim.Checkpoint) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	stream, err := zstd.NewWriter(file)
	if err != nil {
		file.Close()
		return err
	}
	record := make([]byte, checkpointRecordSize)
	for _, cp := range checkpoints {
		binary.LittleEndian.PutUint64(record[0:8], cp.Tick)
		binary.LittleEndian.PutUint32(record[8:12], cp.Hash32)
		binary.LittleEndian.PutUint32(record[12:16], cp.ChainHash32)
		if _, err := stream.Write(record); err != nil {
			stream.Close()
			file.Close()
			return err
		}
	}
	if err := stream.Close(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
