// Package version centralizes the versioning of the redis key namespaces
// used by the history store and the stats recorder.
//
// Including a component version in every key means a change to how an item
// is encoded, or to what a counter means, automatically orphans the old
// entries instead of mixing incompatible data under the same keys. Bump
// the relevant version string here before deploying such a change.
package version

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComponentVersions holds the schema version of each redis-backed
// component. Increment a field when the layout of its hash fields or the
// meaning of its counters changes.
var ComponentVersions = struct {
	// History covers the field layout of saved-item hashes.
	History string
	// Stats covers the counter set written by the stats recorder.
	Stats string
}{
	History: "v1.0",
	Stats:   "v1.0",
}

// HistoryKey returns the hash key for one saved item.
func HistoryKey(slug, id string) string {
	return fmt.Sprintf("history:%s:%s:%s", ComponentVersions.History, slug, id)
}

// HistoryIndexKey returns the list key holding a tool's saved-item ids in
// insertion order.
func HistoryIndexKey(slug string) string {
	return fmt.Sprintf("history-index:%s:%s", ComponentVersions.History, slug)
}

// StatsKey returns the hash key holding a tool's operational counters.
func StatsKey(slug string) string {
	return fmt.Sprintf("stats:%s:%s", ComponentVersions.Stats, slug)
}

// ContentID derives a stable, fixed-length identifier from arbitrary
// content. Saved items use it so that saving the same output twice
// overwrites one entry instead of accumulating duplicates.
func ContentID(parts ...string) string {
	hasher := sha256.New()
	for _, p := range parts {
		hasher.Write([]byte(p))
		hasher.Write([]byte{0})
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}
