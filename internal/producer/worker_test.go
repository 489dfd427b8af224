package producer_test

import (
	"context"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dynstream/internal/frame"
	"github.com/san-kum/dynstream/internal/integrators"
	"github.com/san-kum/dynstream/internal/producer"
	"github.com/san-kum/dynstream/internal/transport"
)

var _ = Describe("Worker", func() {
	var (
		ctx context.Context
		rec *recorder
		w   *producer.Worker
		cfg transport.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		rec = &recorder{}
		w = producer.NewWorker(builder{}, integrators.NewEuler(), nil)
		cfg = transport.Config{
			Session:        uuid.New(),
			Model:          "ramp",
			State:          []float64{0},
			Layout:         frame.Layout{Quality: 1, BufferSize: 2, FrameSize: 8},
			AllowedBuffers: 1,
		}
	})

	It("starts idle", func() {
		Expect(w.Phase()).To(Equal(producer.Idle))
	})

	It("runs a session on config and resumes it on grants", func() {
		w.Handle(ctx, cfg, rec.emit)
		Expect(w.Phase()).To(Equal(producer.Running))
		Expect(rec.data()).To(HaveLen(1))

		w.Handle(ctx, transport.Grant{Session: cfg.Session, AllowedBuffers: 2}, rec.emit)
		Expect(rec.data()).To(HaveLen(3))
	})

	It("drops grants addressed to another session", func() {
		w.Handle(ctx, cfg, rec.emit)
		w.Handle(ctx, transport.Grant{Session: uuid.New(), AllowedBuffers: 2}, rec.emit)
		Expect(rec.data()).To(HaveLen(1))
	})

	It("drops grants while idle", func() {
		w.Handle(ctx, transport.Grant{Session: cfg.Session, AllowedBuffers: 2}, rec.emit)
		Expect(rec.msgs).To(BeEmpty())
		Expect(w.Phase()).To(Equal(producer.Idle))
	})

	It("replaces the producer on a new config with counters reset", func() {
		w.Handle(ctx, cfg, rec.emit)
		first := w.Current()

		next := cfg
		next.Session = uuid.New()
		w.Handle(ctx, next, rec.emit)

		Expect(w.Current()).NotTo(BeIdenticalTo(first))
		data := rec.data()
		Expect(data).To(HaveLen(2))
		Expect(data[1].Session).To(Equal(next.Session))
		Expect(data[1].Buffer.Index).To(Equal(0))
	})

	It("reports a rejected config as a fault and goes idle", func() {
		w.Handle(ctx, cfg, rec.emit)

		bad := cfg
		bad.Session = uuid.New()
		bad.Layout.BufferSize = 0
		w.Handle(ctx, bad, rec.emit)

		faults := rec.faults()
		Expect(faults).To(HaveLen(1))
		Expect(faults[0].Session).To(Equal(bad.Session))
		Expect(faults[0].Err).To(MatchError(producer.ErrInvalidConfig))
		Expect(w.Phase()).To(Equal(producer.Idle))
	})

	It("rejects consumer-bound messages", func() {
		w.Handle(ctx, transport.Data{Session: cfg.Session}, rec.emit)
		faults := rec.faults()
		Expect(faults).To(HaveLen(1))
		Expect(faults[0].Err).To(MatchError(producer.ErrUnexpectedMessage))
	})
})
