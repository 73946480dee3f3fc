// Package audio implements the audio half of the scrambler: a Gaussian
// low-pass filter and a sinusoidal amplitude modulation applied to whole,
// in-memory sample buffers.
//
// # Pipeline
//
//	Encode: samples → LowPass → Modulate(12.8 kHz)
//	Decode: samples → LowPass → LowPass
//
// Decode does not invert the modulation; decoding an encoded buffer yields
// a filtered copy of the still-modulated signal. This matches the behaviour
// of the original scrambler and is kept on purpose.
//
// # Core Components
//
// GaussianKernel returns the fixed 44-tap kernel. LowPass and Modulate are
// the two primitive operations on one channel of samples. They are wrapped
// as AudioEffect values so a Transform can assemble them into an
// EffectChain:
//
//	buf, err := audio.ReadFile("input.wav")
//	if err != nil {
//	    return err
//	}
//	if err := audio.NewTransform().Encode(buf); err != nil {
//	    return err
//	}
//	return audio.WriteWAV("Audio_crypted.wav", buf)
//
// Stereo buffers are processed channel by channel.
//
// # Sample Files
//
// ReadFile loads WAV (github.com/go-audio/wav) and FLAC
// (github.com/mewkiz/flac) files into normalized float64 buffers; WriteWAV
// writes 16-bit PCM.
//
// # Playback
//
// Player plays a buffer through github.com/ebitengine/oto/v3. Building with
// the headless tag replaces it with a device-less implementation.
package audio
