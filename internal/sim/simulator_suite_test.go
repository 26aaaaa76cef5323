package sim

import (
	"context"
	"errors"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/vdesim/internal/config"
	"github.com/san-kum/vdesim/internal/control"
	"github.com/san-kum/vdesim/internal/dynamo"
)

func TestSimSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Simulator Suite")
}

var _ = Describe("Simulator", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("closed loop on the default configuration", func() {
		var s *Simulator

		BeforeEach(func() {
			var err error
			s, err = New(config.DefaultPhysical())
			Expect(err).NotTo(HaveOccurred())
		})

		DescribeTable("keeps the filament inside the vessel",
			func(kind control.Kind, duration float64) {
				res, err := s.Run(ctx, kind, duration, 42)
				Expect(err).NotTo(HaveOccurred())

				m := res.Metrics
				Expect(m.Status).To(Equal(dynamo.StatusSuccess))
				Expect(m.Violations).To(BeZero())
				Expect(m.MaxZ).To(BeNumerically("<", s.Config().VDEThresholdZ))
				Expect(m.Controller).To(Equal(kind))
				Expect(res.History.U).To(HaveEach(And(BeNumerically(">=", -1), BeNumerically("<=", 1))))
			},
			Entry("LQR", control.KindLQR, 0.1),
			Entry("NMPC", control.KindNMPC, 0.05),
		)

		It("fails fast on PID", func() {
			res, err := s.Run(ctx, control.KindPID, 0.1, 42)
			Expect(res).To(BeNil())
			Expect(err).To(MatchError(control.ErrUnsupportedController))
		})
	})

	Describe("open loop without eddy stabilization", func() {
		var (
			s    *Simulator
			phys config.PhysicalConfig
		)

		BeforeEach(func() {
			var err error
			phys, err = config.GetPreset("unstable")
			Expect(err).NotTo(HaveOccurred())
			s, err = New(phys)
			Expect(err).NotTo(HaveOccurred())
		})

		It("ends in a VDE before the step budget runs out", func() {
			const duration = 0.1
			res, err := s.Run(ctx, control.KindNone, duration, 42)
			Expect(err).NotTo(HaveOccurred())

			m := res.Metrics
			Expect(m.Status).To(Equal(dynamo.StatusVDE))
			Expect(m.Steps).To(BeNumerically("<", phys.Steps(duration)))
			Expect(m.Violations).To(Equal(1))
			Expect(m.MaxZ).To(BeNumerically(">", phys.VDEThresholdZ))
			Expect(m.MeanU).To(BeZero())

			last := res.History.Z[res.History.Len()-1]
			Expect(last).To(BeNumerically(">", phys.VDEThresholdZ))
			Expect(m.FinalState.Z).To(Equal(last))
		})
	})

	Describe("sessions", func() {
		It("refuse to step past a terminal status", func() {
			phys, err := config.GetPreset("unstable")
			Expect(err).NotTo(HaveOccurred())

			sess, err := NewSession(phys, config.DefaultControllers(), control.KindNone, 1, nil)
			Expect(err).NotTo(HaveOccurred())

			for !sess.Done() {
				_, err := sess.Step()
				Expect(err).NotTo(HaveOccurred())
				Expect(sess.Steps()).To(BeNumerically("<", 1000))
			}
			Expect(sess.Status()).To(Equal(dynamo.StatusVDE))

			_, err = sess.Step()
			Expect(err).To(MatchError(ErrSessionDone))
			Expect(sess.Metrics().Status).To(Equal(dynamo.StatusVDE))
		})

		It("report a numerical failure as a step error", func() {
			phys := config.DefaultPhysical()
			sess, err := NewSession(phys, config.DefaultControllers(), control.KindNone, 1, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(sess.Err()).NotTo(HaveOccurred())

			start := dynamo.StateVector{Z: 0.01, VZ: 1e308, Ip: phys.IpNominal}
			sess.plant.SetState(start)
			sample, err := sess.Step()
			Expect(err).NotTo(HaveOccurred())
			Expect(sample.Status).To(Equal(dynamo.StatusNumerical))

			var stepErr *dynamo.StepError
			Expect(errors.As(sess.Err(), &stepErr)).To(BeTrue())
			Expect(stepErr).To(MatchError(dynamo.ErrInvalidState))
			Expect(stepErr.Step).To(Equal(1))
			Expect(sess.Metrics().FinalState.IsFinite()).To(BeTrue())
		})

		It("report success while still running", func() {
			sess, err := NewSession(config.DefaultPhysical(), config.DefaultControllers(), control.KindLQR, 1, nil)
			Expect(err).NotTo(HaveOccurred())

			sample, err := sess.Step()
			Expect(err).NotTo(HaveOccurred())
			Expect(sample.Step).To(Equal(1))
			Expect(sample.Done).To(BeFalse())
			Expect(sess.History().Len()).To(Equal(1))
			Expect(sess.Metrics().Status).To(Equal(dynamo.StatusSuccess))
		})
	})
})
