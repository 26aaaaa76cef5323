package plant

import (
	"math/rand"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/vdesim/internal/config"
	"github.com/san-kum/vdesim/internal/dynamo"
)

func TestPlantSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Plant Suite")
}

// openLoop steps with zero control until done or the budget runs out.
func openLoop(p *Plant, budget int) (dynamo.Status, bool) {
	for i := 0; i < budget; i++ {
		_, done, status := p.Step(0, 0)
		if done {
			return status, true
		}
	}
	return dynamo.StatusRunning, false
}

var _ = Describe("Plant", func() {
	const duration = 0.1

	Context("without passive stabilization", func() {
		var (
			cfg    config.PhysicalConfig
			p      *Plant
			budget int
		)

		BeforeEach(func() {
			var err error
			cfg, err = config.GetPreset("unstable")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.GammaZ).To(Equal(25.0))
			Expect(cfg.Dt).To(Equal(0.0005))
			Expect(cfg.VDEThresholdZ).To(Equal(1.0))

			p, err = New(cfg, rand.New(rand.NewSource(42)))
			Expect(err).NotTo(HaveOccurred())
			budget = cfg.Steps(duration)
		})

		It("diverges into a VDE before the step budget is exhausted", func() {
			status, done := openLoop(p, budget)
			Expect(done).To(BeTrue())
			Expect(status).To(Equal(dynamo.StatusVDE))
			Expect(p.Steps()).To(BeNumerically("<", budget))
			Expect(p.Time()).To(BeNumerically("<", duration))
		})

		It("reports the VDE on the step that crosses the threshold", func() {
			prev := p.State()
			for i := 0; i < budget; i++ {
				s, done, status := p.Step(0, 0)
				if done {
					Expect(prev.Z).To(BeNumerically("<=", cfg.VDEThresholdZ))
					Expect(s.Z).To(BeNumerically(">", cfg.VDEThresholdZ))
					Expect(status).To(Equal(dynamo.StatusVDE))
					return
				}
				prev = s
			}
			Fail("plant never reached the VDE threshold")
		})
	})

	Context("with default eddy currents", func() {
		It("holds the filament inside the vessel open loop", func() {
			cfg := config.DefaultPhysical()
			p, err := New(cfg, rand.New(rand.NewSource(42)))
			Expect(err).NotTo(HaveOccurred())

			_, done := openLoop(p, cfg.Steps(duration))
			Expect(done).To(BeFalse())
			Expect(p.State().IsFinite()).To(BeTrue())
		})
	})

	Context("after a numerical blow-up", func() {
		It("terminates with a numerical status", func() {
			p, err := New(config.DefaultPhysical(), nil)
			Expect(err).NotTo(HaveOccurred())
			p.SetState(dynamo.StateVector{Z: 0.01, VZ: 1e308, Ip: 1e6})

			_, done, status := p.Step(0, 0)
			Expect(done).To(BeTrue())
			Expect(status).To(Equal(dynamo.StatusNumerical))
		})
	})
})
