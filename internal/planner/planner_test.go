package planner_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pathtrack/internal/config"
	"github.com/san-kum/pathtrack/internal/control"
	"github.com/san-kum/pathtrack/internal/nav"
	"github.com/san-kum/pathtrack/internal/planner"
)

func straightPath() nav.Path {
	return nav.Path{
		{X: 0, Y: 0, Heading: 0},
		{X: 1, Y: 0, Heading: 0},
		{X: 2, Y: 0, Heading: 0},
	}
}

func testConfig() config.ControllerConfig {
	cfg := config.DefaultControllerConfig()
	cfg.LookaheadTime = 1.0
	cfg.MinLookaheadDist = 0.2
	cfg.MaxLookaheadDist = 1.0
	cfg.CycleTime = 0.1
	cfg.Q = [3]float64{1, 1, 1}
	cfg.R = [2]float64{1, 1}
	return cfg
}

var _ = Describe("Controller", func() {
	var ctrl *planner.Controller

	BeforeEach(func() {
		var err error
		ctrl, err = planner.New(testConfig())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("New", func() {
		It("rejects a non-positive cycle time", func() {
			cfg := testConfig()
			cfg.CycleTime = 0
			_, err := planner.New(cfg)
			Expect(err).To(HaveOccurred())
		})

		It("rejects a zero control weight", func() {
			cfg := testConfig()
			cfg.R = [2]float64{1, 0}
			_, err := planner.New(cfg)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ComputeVelocityCommand", func() {
		It("fails with NoPath before any path is set", func() {
			_, err := ctrl.ComputeVelocityCommand(nav.Pose{}, 0.5)
			Expect(errors.Is(err, nav.ErrNoPath)).To(BeTrue())

			var ce *nav.CycleError
			Expect(errors.As(err, &ce)).To(BeTrue())
			Expect(ce.Cycle).To(Equal(1))
		})

		It("drives forward toward a lookahead point straight ahead", func() {
			Expect(ctrl.SetPath(straightPath())).To(Succeed())

			u, err := ctrl.ComputeVelocityCommand(nav.Pose{}, 0.5)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.V).To(BeNumerically(">", 0))
			Expect(u.Omega).To(BeNumerically("~", 0, 1e-9))

			d := ctrl.Diagnostics()
			Expect(d.LastLookahead.X).To(BeNumerically("~", 0.5, 1e-9))
			Expect(d.LastLookahead.Y).To(BeNumerically("~", 0, 1e-9))
			Expect(d.LastError[0]).To(BeNumerically("~", 0.5, 1e-9))
			Expect(d.Cycles).To(Equal(1))
			Expect(d.SingularFailures).To(BeZero())
			Expect(ctrl.IsGoalReached()).To(BeFalse())
		})

		It("turns left when the path lies to the left", func() {
			path := nav.Path{{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 2, Y: 1}, {X: 3, Y: 1}}
			Expect(ctrl.SetPath(path)).To(Succeed())

			u, err := ctrl.ComputeVelocityCommand(nav.Pose{}, 0.5)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Omega).To(BeNumerically(">", 0))
		})

		It("counts non-converged solves at standstill without failing", func() {
			cfg := testConfig()
			cfg.MinRefSpeed = 0
			ctrl, err := planner.New(cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(ctrl.SetPath(straightPath())).To(Succeed())

			_, err = ctrl.ComputeVelocityCommand(nav.Pose{}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(ctrl.Diagnostics().NonConverged).To(Equal(1))
			Expect(ctrl.Diagnostics().LastIterations).To(Equal(cfg.MaxIter))
		})

		It("linearises at MinRefSpeed when stopped so the solve converges", func() {
			Expect(ctrl.SetPath(straightPath())).To(Succeed())

			var info planner.CycleInfo
			ctrl.SetObserver(planner.ObserverFunc(func(i planner.CycleInfo) { info = i }))
			_, err := ctrl.ComputeVelocityCommand(nav.Pose{Y: -0.3}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Converged).To(BeTrue())
			Expect(ctrl.Diagnostics().NonConverged).To(BeZero())
			// a lateral offset now reaches the steering gain
			Expect(info.Command.Omega).To(BeNumerically(">", 0))
		})

		DescribeTable("rejects non-finite input before touching the path",
			func(pose nav.Pose, speed float64) {
				Expect(ctrl.SetPath(straightPath())).To(Succeed())

				u, err := ctrl.ComputeVelocityCommand(pose, speed)
				Expect(errors.Is(err, nav.ErrInvalidInput)).To(BeTrue())
				Expect(errors.Is(err, nav.ErrSingularGain)).To(BeFalse())
				Expect(u).To(Equal(nav.ControlVector{}))

				var ce *nav.CycleError
				Expect(errors.As(err, &ce)).To(BeTrue())
				Expect(ce.Cycle).To(Equal(1))
				Expect(ctrl.Cursor()).To(BeZero())
				Expect(ctrl.Diagnostics().SingularFailures).To(BeZero())
			},
			Entry("NaN x", nav.Pose{X: math.NaN()}, 0.5),
			Entry("infinite heading", nav.Pose{Heading: math.Inf(-1)}, 0.5),
			Entry("NaN speed", nav.Pose{}, math.NaN()),
			Entry("infinite speed", nav.Pose{}, math.Inf(1)),
		)

		It("never moves the cursor backward", func() {
			Expect(ctrl.SetPath(straightPath())).To(Succeed())

			_, err := ctrl.ComputeVelocityCommand(nav.Pose{X: 1.2}, 0.5)
			Expect(err).NotTo(HaveOccurred())
			cursor := ctrl.Cursor()
			Expect(cursor).To(Equal(1))

			_, err = ctrl.ComputeVelocityCommand(nav.Pose{X: 0}, 0.5)
			Expect(err).NotTo(HaveOccurred())
			Expect(ctrl.Cursor()).To(BeNumerically(">=", cursor))
		})
	})

	Describe("SetPath", func() {
		It("rejects an empty path and keeps the previous one", func() {
			Expect(ctrl.SetPath(straightPath())).To(Succeed())

			err := ctrl.SetPath(nav.Path{})
			Expect(errors.Is(err, nav.ErrEmptyPath)).To(BeTrue())
			Expect(ctrl.Path()).To(HaveLen(3))

			_, err = ctrl.ComputeVelocityCommand(nav.Pose{}, 0.5)
			Expect(err).NotTo(HaveOccurred())
		})

		It("is not affected by later changes to the caller's slice", func() {
			path := straightPath()
			Expect(ctrl.SetPath(path)).To(Succeed())
			path[2].X = 100

			goal := ctrl.Path()[2]
			Expect(goal.X).To(Equal(2.0))
		})
	})

	Describe("goal handling", func() {
		BeforeEach(func() {
			Expect(ctrl.SetPath(straightPath())).To(Succeed())
		})

		It("rotates in place inside the distance tolerance", func() {
			u, err := ctrl.ComputeVelocityCommand(nav.Pose{X: 1.95, Heading: 1.0}, 0.2)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.V).To(Equal(0.0))
			Expect(u.Omega).To(BeNumerically("~", -10.0, 1e-9))
			Expect(ctrl.IsGoalReached()).To(BeFalse())
		})

		It("latches Reached and returns zero commands afterwards", func() {
			u, err := ctrl.ComputeVelocityCommand(nav.Pose{X: 1.95, Heading: 0.1}, 0.2)
			Expect(err).NotTo(HaveOccurred())
			Expect(u).To(Equal(nav.ControlVector{}))
			Expect(ctrl.IsGoalReached()).To(BeTrue())

			u, err = ctrl.ComputeVelocityCommand(nav.Pose{X: 5, Y: 5, Heading: 3}, 1.0)
			Expect(err).NotTo(HaveOccurred())
			Expect(u).To(Equal(nav.ControlVector{}))
			Expect(ctrl.IsGoalReached()).To(BeTrue())
		})

		It("aims at the goal once the lookahead point has reached it", func() {
			var info planner.CycleInfo
			ctrl.SetObserver(planner.ObserverFunc(func(i planner.CycleInfo) { info = i }))

			// beside the goal, just outside the tolerance, nearly stopped
			pose := nav.Pose{X: 1.9, Y: 0.25}
			u, err := ctrl.ComputeVelocityCommand(pose, 0.05)
			Expect(err).NotTo(HaveOccurred())

			Expect(info.Approaching).To(BeTrue())
			Expect(info.Aiming).To(BeTrue())
			Expect(info.Remaining).To(BeZero())
			Expect(info.Lookahead.X).To(Equal(2.0))
			Expect(info.Lookahead.Heading).To(BeNumerically("~", nav.Bearing(pose, nav.Pose{X: 2}), 1e-12))
			Expect(info.Converged).To(BeTrue())
			Expect(u.V).To(BeNumerically(">", 0))
			Expect(u.Omega).To(BeNumerically("<", 0))
		})

		It("tracks the lookahead point while path remains ahead of it", func() {
			var info planner.CycleInfo
			ctrl.SetObserver(planner.ObserverFunc(func(i planner.CycleInfo) { info = i }))

			_, err := ctrl.ComputeVelocityCommand(nav.Pose{X: 0.5}, 0.5)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Approaching).To(BeFalse())
			Expect(info.Aiming).To(BeFalse())
			Expect(info.Remaining).To(BeNumerically("~", 1.0, 1e-9))
			Expect(info.Lookahead.X).To(BeNumerically("~", 1.5, 1e-9))
			Expect(info.Lookahead.Heading).To(Equal(0.0))
		})

		It("aims at a lookahead point that sits beside the agent", func() {
			var info planner.CycleInfo
			ctrl.SetObserver(planner.ObserverFunc(func(i planner.CycleInfo) { info = i }))

			// stopped, facing across the path with the point off to the right
			pose := nav.Pose{X: 0.3, Y: 0.3, Heading: math.Pi / 2}
			u, err := ctrl.ComputeVelocityCommand(pose, 0)
			Expect(err).NotTo(HaveOccurred())

			Expect(info.Approaching).To(BeFalse())
			Expect(info.Aiming).To(BeTrue())
			Expect(info.Lookahead.X).To(BeNumerically("~", 0.5, 1e-9))
			Expect(info.Lookahead.Heading).To(BeNumerically("~", nav.Bearing(pose, nav.Pose{X: 0.5}), 1e-12))
			Expect(u.Omega).To(BeNumerically("<", 0))
		})

		It("clears Reached when a new path is set", func() {
			_, err := ctrl.ComputeVelocityCommand(nav.Pose{X: 2}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(ctrl.IsGoalReached()).To(BeTrue())

			Expect(ctrl.SetPath(straightPath())).To(Succeed())
			Expect(ctrl.IsGoalReached()).To(BeFalse())
		})
	})

	Describe("singular gains", func() {
		BeforeEach(func() {
			Expect(ctrl.SetPath(straightPath())).To(Succeed())
		})

		It("returns zero from Fallback before any gain exists", func() {
			Expect(ctrl.Fallback()).To(Equal(nav.ControlVector{}))
		})

		It("reports SingularGain for a diverging model and falls back to the last gain", func() {
			_, err := ctrl.ComputeVelocityCommand(nav.Pose{}, 0.5)
			Expect(err).NotTo(HaveOccurred())

			// finite, but AᵀPA overflows on the first iteration
			_, err = ctrl.ComputeVelocityCommand(nav.Pose{}, 1e200)
			Expect(errors.Is(err, nav.ErrSingularGain)).To(BeTrue())

			var ce *nav.CycleError
			Expect(errors.As(err, &ce)).To(BeTrue())
			Expect(ce.Cycle).To(Equal(2))
			Expect(ctrl.Diagnostics().SingularFailures).To(Equal(1))

			fb := ctrl.Fallback()
			Expect(fb.V).To(BeNumerically(">", 0))
			Expect(fb.Omega).To(BeNumerically("~", 0, 1e-9))
		})
	})

	Describe("Observer", func() {
		It("receives the lookahead point and command of each cycle", func() {
			var got []planner.CycleInfo
			ctrl.SetObserver(planner.ObserverFunc(func(info planner.CycleInfo) {
				got = append(got, info)
			}))
			Expect(ctrl.SetPath(straightPath())).To(Succeed())

			u, err := ctrl.ComputeVelocityCommand(nav.Pose{}, 0.5)
			Expect(err).NotTo(HaveOccurred())

			Expect(got).To(HaveLen(1))
			Expect(got[0].Command).To(Equal(u))
			Expect(got[0].Lookahead.X).To(BeNumerically("~", 0.5, 1e-9))
			Expect(got[0].Goal).To(Equal(control.Tracking))
			Expect(got[0].Gain).NotTo(BeNil())
			Expect(got[0].Converged).To(BeTrue())
		})
	})
})
