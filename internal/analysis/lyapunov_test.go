package analysis

import (
	"math"
	"testing"

	"github.com/san-kum/ensda/internal/dynamo"
	"github.com/san-kum/ensda/internal/integrators"
	"github.com/san-kum/ensda/internal/lorenz"
)

// contracting is dX/dt = -X; all exponents are exactly -1.
type contracting struct{ dim int }

func (c contracting) StateDim() int { return c.dim }

func (c contracting) Derive(x dynamo.State, _ float64) dynamo.State {
	dx := make(dynamo.State, len(x))
	for i, v := range x {
		dx[i] = -v
	}
	return dx
}

func classicLorenz() *lorenz.System {
	return lorenz.NewSystem(lorenz.ParameterSet{
		X: -2.39, Y: -3.46, Z: 14.98,
		Rho: lorenz.DefaultRho, Beta: lorenz.DefaultBeta, Sigma: lorenz.DefaultSigma,
	})
}

func TestLyapunovExponent_LorenzIsChaotic(t *testing.T) {
	sys := classicLorenz()

	// The accepted value for the classic regime is about 0.906. The
	// separation method with renormalization every step lands near it; allow
	// a generous band.
	lambda := LyapunovExponent(sys, integrators.NewRK4(), sys.Params().InitialState(), 0.01, 50.0, 1e-8)
	if lambda < 0.5 || lambda > 1.4 {
		t.Errorf("largest exponent = %v, want roughly 0.9", lambda)
	}
}

func TestLyapunovExponent_ContractingIsNegative(t *testing.T) {
	sys := contracting{dim: 3}

	lambda := LyapunovExponent(sys, integrators.NewRK4(), dynamo.State{1, 1, 1}, 0.01, 20.0, 1e-8)
	if lambda >= 0 {
		t.Errorf("contracting system reported exponent %v, want < 0", lambda)
	}
	if math.Abs(lambda-(-1)) > 0.05 {
		t.Errorf("exponent = %v, want about -1", lambda)
	}
}

func TestLyapunovExponent_DegenerateInputs(t *testing.T) {
	sys := classicLorenz()
	x0 := sys.Params().InitialState()

	if v := LyapunovExponent(sys, integrators.NewRK4(), nil, 0.01, 1.0, 1e-8); v != 0 {
		t.Errorf("empty state: got %v, want 0", v)
	}
	if v := LyapunovExponent(sys, integrators.NewRK4(), x0, 0, 1.0, 1e-8); v != 0 {
		t.Errorf("zero dt: got %v, want 0", v)
	}
	if v := LyapunovExponent(sys, integrators.NewRK4(), x0, 0.01, 1.0, 0); v != 0 {
		t.Errorf("zero perturbation: got %v, want 0", v)
	}
}

func TestPowerSpectrum_SinePeaks(t *testing.T) {
	// 256 samples of sin(2*pi*8*t/256): the spectrum must peak at bin 8.
	data := make([]float64, 256)
	for i := range data {
		data[i] = math.Sin(2 * math.Pi * 8 * float64(i) / 256)
	}

	ps := PowerSpectrum(data)
	if len(ps) != 128 {
		t.Fatalf("spectrum has %d bins, want 128", len(ps))
	}

	peak := 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > ps[peak] {
			peak = i
		}
	}
	if peak != 8 {
		t.Errorf("peak at bin %d, want 8", peak)
	}
}

func TestPowerSpectrum_PadsToPowerOfTwo(t *testing.T) {
	// 300 samples pad to 512; half-spectrum is 256 bins.
	ps := PowerSpectrum(make([]float64, 300))
	if len(ps) != 256 {
		t.Errorf("spectrum has %d bins, want 256", len(ps))
	}

	if PowerSpectrum(nil) != nil {
		t.Error("empty input must return nil")
	}
}

func TestTracePortrait(t *testing.T) {
	sys := classicLorenz()
	x0 := sys.Params().InitialState()

	p := TracePortrait(sys, integrators.NewRK4(), x0, 0, 2, 0.01, 5.0)
	if p == nil {
		t.Fatal("nil portrait for valid axes")
	}
	if len(p.X) != len(p.Y) || len(p.X) == 0 {
		t.Fatalf("portrait has %d x and %d y points", len(p.X), len(p.Y))
	}
	if p.XIndex != 0 || p.YIndex != 2 {
		t.Errorf("axes recorded as (%d,%d), want (0,2)", p.XIndex, p.YIndex)
	}

	if TracePortrait(sys, integrators.NewRK4(), x0, 0, 7, 0.01, 1.0) != nil {
		t.Error("out-of-range axis accepted")
	}
}

func TestRenderASCII(t *testing.T) {
	sys := classicLorenz()
	p := TracePortrait(sys, integrators.NewRK4(), sys.Params().InitialState(), 0, 2, 0.01, 10.0)

	out := p.RenderASCII(60, 20)
	lines := 0
	for _, c := range out {
		if c == '\n' {
			lines++
		}
	}
	if lines != 20 {
		t.Errorf("rendered %d lines, want 20", lines)
	}

	var empty *PhasePortrait
	if empty.RenderASCII(10, 10) != "" {
		t.Error("nil portrait must render empty")
	}
}
