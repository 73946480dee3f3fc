// Package video implements the keyed row-permutation cipher applied to
// video frames.
//
// # Frames
//
// A Frame is an opaque row-major pixel buffer: Height rows of
// Width*Channels bytes each. The cipher never looks inside a row.
//
//	frame := video.NewFrame(640, 480, 3)
//	copy(frame.Data, bgrPixels)
//
// # Row Permutation
//
// The frame height is split into power-of-two blocks following its binary
// representation (481 = 256 + 128 + 64 + 32 + 1). Within a block of size P
// starting at row s, row i moves to
//
//	((offset + (2*step+1)*(i-s)) mod P) + s
//
// Because 2*step+1 is odd and P is a power of two this is a bijection. Its
// inverse uses the multiplicative inverse of 2*step+1 modulo P, so decoding
// costs the same as encoding. A Cipher caches the per-size permutations and
// per-height row plans:
//
//	scrambler := video.NewScrambler(k)
//	encoded := video.NewFrame(frame.Width, frame.Height, frame.Channels)
//	if err := scrambler.Scramble(frame, encoded, video.Encode); err != nil {
//	    return err
//	}
//
// Decoding an encoded frame with the same key restores it exactly.
//
// # Effects
//
// ScrambleEffect exposes one scramble direction through the Effect
// interface so it can be composed in an EffectChain.
package video
