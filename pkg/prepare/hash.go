package prepare

import (
	"crypto/sha256"

	"github.com/certen/state-computer/pkg/types"
)

func sha256Of(prefix string, raw []byte) types.Hash32 {
	return sha256.Sum256(append([]byte(prefix), raw...))
}
