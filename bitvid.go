/*
Package bitvid converts directories of still image frames into compact
binary video containers for playback on small, memory-constrained
displays.
*/
package bitvid

import "log"

type BitVid struct {
	db     *AssetDB
	logger *log.Logger
}

// New returns an encoder front end. db may be nil when no asset catalog
// is in use.
func New(db *AssetDB, logger *log.Logger) *BitVid {
	return &BitVid{
		db:     db,
		logger: logger,
	}
}
