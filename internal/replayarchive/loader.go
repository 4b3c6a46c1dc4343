package replayarchive

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"towerkeep/server/internal/sim"
)

// Bundle is a fully decoded segment archive.
type Bundle struct {
	Manifest    Manifest
	Events      []sim.Event
	Checkpoints []sim.Checkpoint
}

// LoadBundle reads a bundle directory back into memory. Audit tooling
// uses this to re-run a verified segment against a given sim build.
func LoadBundle(dir string) (Bundle, error) {
	var bundle Bundle

	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return Bundle{}, err
	}
	if err := json.Unmarshal(data, &bundle.Manifest); err != nil {
		return Bundle{}, fmt.Errorf("decode manifest: %w", err)
	}
	if bundle.Manifest.Version != manifestVersion {
		return Bundle{}, fmt.Errorf("unsupported bundle version %d", bundle.Manifest.Version)
	}

	bundle.Events, err = readEvents(filepath.Join(dir, bundle.Manifest.EventsPath))
	if err != nil {
		return Bundle{}, err
	}
	bundle.Checkpoints, err = readCheckpoints(filepath.Join(dir, bundle.Manifest.CheckpointsPath))
	if err != nil {
		return Bundle{}, err
	}
	return bundle, nil
}

func readEvents(path string) ([]sim.Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var events []sim.Event
	scanner := bufio.NewScanner(snappy.NewReader(file))
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev sim.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func readCheckpoints(path string) ([]sim.Checkpoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stream, err := zstd.NewReader(file)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var (
		checkpoints []sim.Checkpoint
		record      [checkpointRecordSize]byte
	)
	for {
		_, err := io.ReadFull(stream, record[:])
		if err == io.EOF {
			return checkpoints, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode checkpoint stream: %w", err)
		}
		checkpoints = append(checkpoints, sim.Checkpoint{
			Tick:        binary.LittleEndian.Uint64(record[0:8]),
			Hash32:      binary.LittleEndian.Uint32(record[8:12]),
			ChainHash32: binary.LittleEndian.Uint32(record[12:16]),
		})
	}
}
