package secretscan

import "strings"

// toUTF8Lossy approximates Rust's String::from_utf8_lossy: invalid byte
// sequences are replaced with U+FFFD rather than causing the scan to fail,
// since a blob's content type is not guaranteed and the scanner must never
// refuse to scan.
func toUTF8Lossy(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
