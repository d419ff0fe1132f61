package audio

import "testing"

func TestResampleLinearLength(t *testing.T) {
	in := []float32{0, 1, 2, 3}
	out := ResampleLinear(in, 16000, 8000)
	if len(out) != 2 {
		t.Fatalf("downsample length got %d", len(out))
	}
	out = ResampleLinear(in, 8000, 16000)
	if len(out) != 8 {
		t.Fatalf("upsample length got %d", len(out))
	}
}

func TestResampleLinearEnds(t *testing.T) {
	in := []float32{0, 10}
	out := ResampleLinear(in, 1000, 2000)
	if out[0] != 0 || out[len(out)-1] != 10 {
		t.Fatalf("endpoints not preserved: %v", out)
	}
}

func TestResampleLinearIdentity(t *testing.T) {
	in := []float32{0.5, -0.5, 0.25}
	out := ResampleLinear(in, 16000, 16000)
	if len(out) != len(in) {
		t.Fatalf("identity resample changed length: %d", len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("identity resample changed sample %d", i)
		}
	}
	out[0] = 9 // must be a copy
	if in[0] == 9 {
		t.Fatalf("identity resample aliases input")
	}
}
