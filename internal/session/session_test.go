package session_test

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"

	"github.com/san-kum/dynstream/internal/buffer"
	"github.com/san-kum/dynstream/internal/frame"
	"github.com/san-kum/dynstream/internal/integrators"
	"github.com/san-kum/dynstream/internal/models"
	"github.com/san-kum/dynstream/internal/playback"
	"github.com/san-kum/dynstream/internal/session"
)

var _ = Describe("Session", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		s      *session.Session
		cfg    buffer.Config
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		s = session.New(models.NewRegistry(), integrators.NewEuler(), nil)
		cfg = buffer.Config{
			Model:       "projectile",
			State:       models.LaunchState(20, 45, 0),
			Layout:      frame.Layout{Quality: 0.01, BufferSize: 16, FrameSize: 16},
			BufferLimit: 2,
		}
	})

	AfterEach(func() {
		s.Close()
		cancel()
	})

	collect := func() []playback.Sample {
		var samples []playback.Sample
		err := s.Drive(ctx, 0.05, func(sm playback.Sample) error {
			samples = append(samples, sm)
			stats := s.Stats()
			Expect(stats.Occupied).To(BeNumerically("<=", cfg.BufferLimit))
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		return samples
	}

	It("plays a projectile flight to the end", func() {
		Expect(s.Start(ctx, cfg)).To(Succeed())
		samples := collect()

		Expect(samples).NotTo(BeEmpty())
		for i := 1; i < len(samples); i++ {
			Expect(samples[i].Time).To(BeNumerically(">=", samples[i-1].Time))
		}
		last := samples[len(samples)-1]
		Expect(last.Done).To(BeTrue())
		Expect(last.Values[1]).To(BeNumerically("<=", 0))
		Expect(last.Values[1]).To(BeNumerically(">", -0.5))

		res, ok := s.Result()
		Expect(ok).To(BeTrue())
		Expect(res.Values["flight_time"]).To(BeNumerically("~", 2.883, 0.05))
		Expect(last.Time).To(BeNumerically("~", res.Elapsed, 1e-9))
	})

	It("streams more buffers than the pool holds", func() {
		Expect(s.Start(ctx, cfg)).To(Succeed())
		collect()

		stats := s.Stats()
		Expect(stats.Received).To(BeNumerically(">", cfg.BufferLimit))
		Expect(stats.Granted).To(BeNumerically(">", 0))
		Expect(stats.Occupied).To(BeNumerically("<=", cfg.BufferLimit))
	})

	It("plays to the end with the smallest initial allowance", func() {
		cfg.BufferLimit = 4
		cfg.AllowedBuffers = buffer.MinBufferLimit
		Expect(s.Start(ctx, cfg)).To(Succeed())

		samples := collect()
		Expect(samples[len(samples)-1].Done).To(BeTrue())
		Expect(s.Stats().Received).To(BeNumerically(">", cfg.BufferLimit))
	})

	It("rejects an allowance too small for a boundary pair", func() {
		cfg.BufferLimit = 4
		cfg.AllowedBuffers = 1
		Expect(s.Start(ctx, cfg)).To(MatchError(buffer.ErrInvalidConfig))
		Expect(s.Running()).To(BeFalse())
	})

	It("stops at the tick limit", func() {
		cfg.Model = "solar"
		cfg.State = models.CircularOrbits(models.GMSun, []float64{1})
		cfg.Layout = frame.Layout{Quality: 0.001, BufferSize: 32, FrameSize: 16}
		cfg.MaxTicks = 200
		Expect(s.Start(ctx, cfg)).To(Succeed())

		samples := collect()
		last := samples[len(samples)-1]
		Expect(last.Done).To(BeTrue())
		Expect(last.Time).To(BeNumerically("~", 0.2, 1e-9))

		res, ok := s.Result()
		Expect(ok).To(BeTrue())
		Expect(res.Ticks).To(Equal(200))
	})

	It("surfaces a rejected config as a fault", func() {
		cfg.Model = "warp-drive"
		Expect(s.Start(ctx, cfg)).To(Succeed())

		err := s.Drive(ctx, 0.05, func(playback.Sample) error { return nil })
		var fault *buffer.FaultError
		Expect(errors.As(err, &fault)).To(BeTrue())
		Expect(fault.Session).To(Equal(s.ID()))
	})

	It("rejects an invalid config before spawning", func() {
		cfg.BufferLimit = 1
		Expect(s.Start(ctx, cfg)).To(MatchError(buffer.ErrInvalidConfig))
		Expect(s.Running()).To(BeFalse())
	})

	It("restarts under a new session id from time zero", func() {
		Expect(s.Start(ctx, cfg)).To(Succeed())
		first := s.ID()
		Expect(first).NotTo(Equal(uuid.Nil))

		Eventually(func() float64 {
			sm, _, err := s.Tick(0.05)
			Expect(err).NotTo(HaveOccurred())
			return sm.Time
		}).Should(BeNumerically(">", 0.5))

		Expect(s.Restart(ctx)).To(Succeed())
		Expect(s.ID()).NotTo(Equal(first))
		Expect(s.Restarts()).To(Equal(1))
		Expect(s.Player().Time()).To(BeZero())

		samples := collect()
		Expect(samples[0].Time).To(BeNumerically("<=", 0.05))
		res, ok := s.Result()
		Expect(ok).To(BeTrue())
		Expect(res.Session).To(Equal(s.ID()))
	})

	It("returns when the context ends while stalled", func() {
		dead, stop := context.WithCancel(context.Background())
		stop()
		Expect(s.Start(dead, cfg)).To(Succeed())

		err := s.Drive(dead, 0.05, func(playback.Sample) error { return nil })
		Expect(err).To(MatchError(context.Canceled))
	})

	It("propagates render callback errors", func() {
		Expect(s.Start(ctx, cfg)).To(Succeed())
		boom := errors.New("render failed")
		err := s.Drive(ctx, 0.05, func(playback.Sample) error { return boom })
		Expect(err).To(MatchError(boom))
	})

	It("scopes each component logger once", func() {
		out := gbytes.NewBuffer()
		logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))
		s = session.New(models.NewRegistry(), integrators.NewEuler(), logger)
		Expect(s.Start(ctx, cfg)).To(Succeed())
		collect()

		logs := string(out.Contents())
		Expect(logs).To(ContainSubstring("component=buffer-manager"))
		Expect(logs).NotTo(MatchRegexp(`component=\S+ .*component=`))
	})

	It("refuses to run after Close", func() {
		Expect(s.Start(ctx, cfg)).To(Succeed())
		s.Close()
		Expect(s.Running()).To(BeFalse())
		_, _, err := s.Tick(0.05)
		Expect(err).To(MatchError(session.ErrNotStarted))
		Expect(s.Restart(ctx)).To(MatchError(session.ErrNotStarted))
	})
})
