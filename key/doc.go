// Package key resolves the scramble key used for one processing session.
//
// A Key is the (offset, step) pair that parameterizes both the row
// permutation applied to video frames and the session record written to
// disk. Keys are plain values: once resolved they are passed explicitly to
// every cipher call and never mutated.
//
// # Resolution
//
// A Resolver picks the key for a session using a fixed precedence:
//
//  1. two command-line integers, offset in [0,255] and step in [0,127]
//  2. two values typed at an interactive prompt, same ranges
//  3. a uniformly random key
//
// Input that fails to parse or is out of range is treated as absent and the
// next level is consulted. Resolution never fails:
//
//	resolver := key.NewResolver(os.Args[1:], key.NewTerminalPrompter())
//	k, source := resolver.Resolve()
//	if err := key.WriteRecord("key_used.txt", k); err != nil {
//	    log.Fatal(err)
//	}
//
// The key record is a single human-readable line, overwritten each session.
package key
