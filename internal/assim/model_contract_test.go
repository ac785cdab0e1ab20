package assim_test

import (
	"fmt"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/ensda/internal/assim"
	"github.com/san-kum/ensda/internal/lorenz"
)

// gridSource serves reference observations from memory, keyed by assimilation
// step, the way an in-file record would.
type gridSource struct {
	rows map[int][]float64
}

func (g *gridSource) At(step int) ([]float64, error) {
	v, ok := g.rows[step]
	if !ok {
		return nil, fmt.Errorf("step %d not recorded", step)
	}
	return v, nil
}

// These specs exercise the model exactly the way an assimilation driver
// would: generate, forecast window by window, request observations, and call
// the lifecycle hooks unconditionally.
var _ = Describe("Model", func() {
	const (
		nsamples   = 5
		daInterval = 1.0
	)

	var (
		params lorenz.ParameterSet
		cfg    assim.Config
		src    *gridSource
	)

	BeforeEach(func() {
		params = lorenz.ParameterSet{
			X: -2.39, Y: -3.46, Z: 14.98,
			Rho: lorenz.DefaultRho, Beta: lorenz.DefaultBeta, Sigma: lorenz.DefaultSigma,

			PerturbRho: true,
		}
		cfg = assim.Config{
			Nsamples:    nsamples,
			DtInterval:  0.01,
			DaInterval:  daInterval,
			XRelStd:     0.1,
			ObsRelStd:   0.1,
			ObsStdFloor: 0.1,
			Seed:        42,
		}
		src = &gridSource{rows: map[int][]float64{
			1: {-4.07, -5.84, 13.67},
			2: {-7.21, -8.62, 20.45},
		}}
	})

	newModel := func() *assim.Model {
		m, err := assim.NewModel(params, cfg, src, nil)
		Expect(err).NotTo(HaveOccurred())
		return m
	}

	It("augments the state with the estimated coefficient", func() {
		m := newModel()
		Expect(m.StateDim()).To(Equal(lorenz.PhysicalDim + 1))
		Expect(m.System().Layout().Names()).To(Equal([]string{"rho"}))
	})

	Describe("GenerateEnsemble", func() {
		It("draws the ensemble and its observation-space image", func() {
			states, hx := newModel().GenerateEnsemble()

			r, c := states.Dims()
			Expect(r).To(Equal(lorenz.PhysicalDim + 1))
			Expect(c).To(Equal(nsamples))

			hr, hc := hx.Dims()
			Expect(hr).To(Equal(assim.ObsDim))
			Expect(hc).To(Equal(nsamples))

			// H selects the physical rows unchanged.
			for i := 0; i < assim.ObsDim; i++ {
				for j := 0; j < nsamples; j++ {
					Expect(hx.At(i, j)).To(Equal(states.At(i, j)))
				}
			}
		})

		It("spreads members around the reference state", func() {
			states, _ := newModel().GenerateEnsemble()

			ref := params.InitialState()
			for i := range ref {
				var mean float64
				for j := 0; j < nsamples; j++ {
					mean += states.At(i, j) / nsamples
				}
				Expect(mean).To(BeNumerically("~", ref[i], math.Abs(ref[i])*0.5))
			}

			distinct := false
			for j := 1; j < nsamples; j++ {
				if states.At(lorenz.PhysicalDim, j) != states.At(lorenz.PhysicalDim, 0) {
					distinct = true
				}
			}
			Expect(distinct).To(BeTrue(), "coefficient row should vary across members")
		})

		It("is reproducible for a fixed seed", func() {
			a, _ := newModel().GenerateEnsemble()
			b, _ := newModel().GenerateEnsemble()
			Expect(mat.Equal(a, b)).To(BeTrue())
		})
	})

	Describe("ForecastToTime", func() {
		It("advances the physical rows and freezes the coefficient row", func() {
			m := newModel()
			states, _ := m.GenerateEnsemble()
			before := mat.DenseCopyOf(states)

			forecast, err := m.ForecastToTime(states, daInterval)
			Expect(err).NotTo(HaveOccurred())

			r, c := forecast.Dims()
			Expect(r).To(Equal(lorenz.PhysicalDim + 1))
			Expect(c).To(Equal(nsamples))

			for j := 0; j < nsamples; j++ {
				Expect(forecast.At(lorenz.PhysicalDim, j)).To(Equal(before.At(lorenz.PhysicalDim, j)))
				Expect(forecast.At(0, j)).NotTo(Equal(before.At(0, j)))
			}
			Expect(mat.Equal(states, before)).To(BeTrue(), "input ensemble must stay untouched")
		})

		It("chains one window into the next", func() {
			m := newModel()
			states, _ := m.GenerateEnsemble()

			first, err := m.ForecastToTime(states, daInterval)
			Expect(err).NotTo(HaveOccurred())
			second, err := m.ForecastToTime(first, 2*daInterval)
			Expect(err).NotTo(HaveOccurred())
			Expect(mat.Equal(first, second)).To(BeFalse())
		})
	})

	Describe("Forward", func() {
		It("maps states into observation space without advancing them", func() {
			m := newModel()
			states, _ := m.GenerateEnsemble()

			got, hx := m.Forward(states, daInterval)
			Expect(got).To(BeIdenticalTo(states))
			for i := 0; i < assim.ObsDim; i++ {
				for j := 0; j < nsamples; j++ {
					Expect(hx.At(i, j)).To(Equal(states.At(i, j)))
				}
			}
		})
	})

	Describe("Observations", func() {
		It("serves one tiled noisy draw with a signal-scaled covariance", func() {
			obs, perturb, cov, err := newModel().Observations(daInterval)
			Expect(err).NotTo(HaveOccurred())

			r, c := obs.Dims()
			Expect(r).To(Equal(assim.ObsDim))
			Expect(c).To(Equal(nsamples))

			ref := src.rows[1]
			for i := 0; i < assim.ObsDim; i++ {
				std := cfg.ObsRelStd*math.Abs(ref[i]) + cfg.ObsStdFloor
				Expect(cov.At(i, i)).To(BeNumerically("~", std*std, 1e-12))

				for j := 0; j < nsamples; j++ {
					Expect(obs.At(i, j)).To(Equal(obs.At(i, 0)))
					Expect(obs.At(i, j) - perturb.At(i, j)).To(BeNumerically("~", ref[i], 1e-12))
				}
				for k := 0; k < assim.ObsDim; k++ {
					if k != i {
						Expect(cov.At(i, k)).To(BeZero())
					}
				}
			}
		})

		It("fails for a window past the record", func() {
			_, _, _, err := newModel().Observations(3 * daInterval)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("lifecycle hooks", func() {
		It("tolerate unconditional driver calls", func() {
			m := newModel()
			Expect(func() {
				m.Report()
				m.Plot()
				m.Clean()
			}).NotTo(Panic())
		})
	})

	It("satisfies the driver contract", func() {
		var dm assim.DynModel = newModel()
		Expect(dm).NotTo(BeNil())
	})
})
