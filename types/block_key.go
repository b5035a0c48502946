package types

import "github.com/google/uuid"

// BlockKey is the stable identifier minted for one runtime block instance.
// Every push gets a distinct key, even a re-compilation of the same
// statement; it is the owner key used throughout Memory and the EventBus.
type BlockKey string

// RuntimeOwner is the synthetic owner key for memory entries and handlers
// owned by the runtime itself rather than any block.
const RuntimeOwner BlockKey = "runtime"

// NewBlockKey mints a fresh, globally unique BlockKey.
func NewBlockKey() BlockKey {
	return BlockKey(uuid.NewString())
}
