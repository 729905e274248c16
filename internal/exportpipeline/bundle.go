package exportpipeline

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/vifei-systems/vifei/internal/event"
	"github.com/vifei-systems/vifei/internal/hashing"
)

type bundleFile struct {
	path string
	data []byte
}

// unixEpoch is the normalized mtime every tar entry carries, so bundling
// identical inputs twice produces byte-identical archives regardless of
// wall-clock time.
var unixEpoch = time.Unix(0, 0).UTC()

// bundle produces the manifest and the final tar+zstd archive bytes. Tar
// entries are written in alphabetical path order with fully normalized
// metadata so two runs over identical inputs produce byte-identical
// archives.
func bundle(events []event.CommittedEvent, blobRefs []string, blobDir, logPath string) (*Manifest, []byte, error) {
	logBytes, err := os.ReadFile(logPath)
	if err != nil {
		return nil, nil, fmt.Errorf("exportpipeline: reading log %s for bundling: %w", logPath, err)
	}

	files := []bundleFile{{path: "eventlog.jsonl", data: logBytes}}

	for _, ref := range blobRefs {
		data, err := readBlob(blobDir, ref)
		if err != nil {
			return nil, nil, fmt.Errorf("exportpipeline: reading blob %s for bundling: %w", ref, err)
		}
		files = append(files, bundleFile{path: "blobs/" + ref, data: data})
	}

	entries := make([]ManifestEntry, 0, len(files)+1)
	for _, f := range files {
		entries = append(entries, ManifestEntry{Path: f.path, BLAKE3: string(hashing.Sum(f.data)), Size: uint64(len(f.data))})
	}

	manifest := Manifest{
		ManifestVersion:             ManifestVersion,
		Files:                       nil, // set below, after manifest.json itself is added
		CommitIndexRange:            commitIndexRange(events),
		ProjectionInvariantsVersion: ProjectionInvariantsVersion,
	}

	manifestJSON, err := json.MarshalIndent(struct {
		ManifestVersion             string          `json:"manifest_version"`
		Files                       []ManifestEntry `json:"files"`
		CommitIndexRange            *[2]uint64      `json:"commit_index_range,omitempty"`
		ProjectionInvariantsVersion string          `json:"projection_invariants_version"`
	}{manifest.ManifestVersion, sortedEntries(entries), manifest.CommitIndexRange, manifest.ProjectionInvariantsVersion}, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("exportpipeline: marshaling manifest: %w", err)
	}

	files = append(files, bundleFile{path: "manifest.json", data: manifestJSON})
	entries = append(entries, ManifestEntry{Path: "manifest.json", BLAKE3: string(hashing.Sum(manifestJSON)), Size: uint64(len(manifestJSON))})
	manifest.Files = sortedEntries(entries)

	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })

	archive, err := writeTarZst(files)
	if err != nil {
		return nil, nil, err
	}

	return &manifest, archive, nil
}

func sortedEntries(entries []ManifestEntry) []ManifestEntry {
	out := append([]ManifestEntry(nil), entries...)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// writeTarZst writes files (already path-sorted by the caller) into a tar
// stream with every piece of variable metadata normalized, then
// zstd-compresses the result.
func writeTarZst(files []bundleFile) ([]byte, error) {
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	for _, f := range files {
		hdr := &tar.Header{
			Name:     f.path,
			Mode:     0o644,
			Size:     int64(len(f.data)),
			ModTime:  unixEpoch,
			Uid:      0,
			Gid:      0,
			Uname:    "",
			Gname:    "",
			Typeflag: tar.TypeReg,
			Format:   tar.FormatPAX,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("exportpipeline: writing tar header for %s: %w", f.path, err)
		}
		if _, err := tw.Write(f.data); err != nil {
			return nil, fmt.Errorf("exportpipeline: writing tar body for %s: %w", f.path, err)
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("exportpipeline: closing tar writer: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("exportpipeline: creating zstd encoder: %w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(tarBuf.Bytes(), nil), nil
}
