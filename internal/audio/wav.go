package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// ReadWAVMono decodes a WAV file into normalized float32 samples at the
// requested rate, downmixing multi-channel input and resampling linearly
// when the file rate differs.
func ReadWAVMono(path string, wantRate int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("empty wav: %s", path)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	scale := float32(int(1) << (dec.BitDepth - 1))
	if scale <= 0 {
		scale = 32768
	}

	mono := make([]float32, 0, len(buf.Data)/channels)
	for i := 0; i+channels <= len(buf.Data); i += channels {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += float32(buf.Data[i+c]) / scale
		}
		mono = append(mono, sum/float32(channels))
	}

	return ResampleLinear(mono, buf.Format.SampleRate, wantRate), nil
}

// WAVDuration returns the play time of a WAV file.
func WAVDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return wav.NewDecoder(f).Duration()
}

// ResampleLinear converts in from srcSR to dstSR with linear interpolation.
// Good enough for speech fed to the recognizer; not for music.
func ResampleLinear(in []float32, srcSR, dstSR int) []float32 {
	if srcSR == dstSR || len(in) == 0 {
		out := make([]float32, len(in))
		copy(out, in)
		return out
	}
	ratio := float64(dstSR) / float64(srcSR)
	outLen := int(float64(len(in))*ratio + 0.9999)
	out := make([]float32, outLen)
	for i := 0; i < outLen; i++ {
		pos := float64(i) / ratio
		idx := int(pos)
		if idx >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = in[idx]*(1-frac) + in[idx+1]*frac
	}
	return out
}
