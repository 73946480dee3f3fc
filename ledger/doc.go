// Package ledger keeps a local history of scrambling sessions.
//
// Each session row stores the key that was used, where it came from, the
// input, timing, frame count and outcome. Every file a session produced is
// stored alongside with its size and a BLAKE2b-256 digest so a later run
// can tell whether an artifact on disk is still the one that was written.
//
//	store, err := ledger.Open("avscramble.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	recent, err := store.Sessions(ctx, 10)
//
// The store is backed by modernc.org/sqlite and needs no cgo.
package ledger
