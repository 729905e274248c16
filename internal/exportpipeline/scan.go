package exportpipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/vifei-systems/vifei/internal/event"
	"github.com/vifei-systems/vifei/internal/hashing"
	"github.com/vifei-systems/vifei/internal/secretscan"
)

// scan applies the secret scanner to every event's inline payload text and,
// if blobDir exists, to the bytes of every referenced blob.
func scan(events []event.CommittedEvent, blobRefs []string, blobDir string) ([]Finding, error) {
	var findings []Finding

	for _, ev := range events {
		payloadJSON, err := json.Marshal(ev.Payload)
		if err != nil {
			return nil, fmt.Errorf("exportpipeline: scanning event %s: %w", ev.EventID, err)
		}
		for _, m := range secretscan.ScanText(string(payloadJSON)) {
			findings = append(findings, Finding{
				EventID:        ev.EventID,
				FieldPath:      "payload",
				MatchedPattern: m.PatternName,
				RedactedMatch:  secretscan.RedactMatch(m.MatchedText),
			})
		}
	}

	if blobDirExists(blobDir) {
		for _, ref := range blobRefs {
			data, err := readBlob(blobDir, ref)
			if err != nil {
				continue
			}
			for _, m := range secretscan.ScanBytes(data) {
				ref := ref
				findings = append(findings, Finding{
					EventID:        "",
					FieldPath:      "blob",
					MatchedPattern: m.PatternName,
					BlobRef:        &ref,
					RedactedMatch:  secretscan.RedactMatch(m.MatchedText),
				})
			}
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.EventID != b.EventID {
			return a.EventID < b.EventID
		}
		if a.FieldPath != b.FieldPath {
			return a.FieldPath < b.FieldPath
		}
		if a.MatchedPattern != b.MatchedPattern {
			return a.MatchedPattern < b.MatchedPattern
		}
		ablob, bblob := "", ""
		if a.BlobRef != nil {
			ablob = *a.BlobRef
		}
		if b.BlobRef != nil {
			bblob = *b.BlobRef
		}
		if ablob != bblob {
			return ablob < bblob
		}
		return a.RedactedMatch < b.RedactedMatch
	})

	return findings, nil
}

func blobDirExists(dir string) bool {
	if dir == "" {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

func readBlob(blobDir, digest string) ([]byte, error) {
	d := hashing.Digest(digest)
	path := shardedPath(blobDir, string(d))
	return os.ReadFile(path)
}

func shardedPath(dir, digest string) string {
	if len(digest) < 4 {
		return filepath.Join(dir, digest)
	}
	return filepath.Join(dir, digest[:2], digest[2:4], digest)
}
