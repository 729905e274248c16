package projection

import (
	"fmt"

	"github.com/vifei-systems/vifei/internal/hashing"
)

// ViewModelHash computes BLAKE3(canonical_viewmodel_bytes), hex lowercase.
func ViewModelHash(v *ViewModel) (hashing.Digest, error) {
	canonical, err := v.MarshalCanonical()
	if err != nil {
		return "", fmt.Errorf("projection: computing view-model hash: %w", err)
	}
	return hashing.Sum(canonical), nil
}
