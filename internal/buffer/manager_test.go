package buffer_test

import (
	"errors"
	"math"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dynstream/internal/buffer"
	"github.com/san-kum/dynstream/internal/frame"
	"github.com/san-kum/dynstream/internal/transport"
)

var _ = Describe("Manager", func() {
	var (
		ep     *fakeEndpoint
		mgr    *buffer.Manager
		layout frame.Layout
		cfg    buffer.Config
	)

	BeforeEach(func() {
		ep = newFakeEndpoint()
		mgr = buffer.NewManager(ep, nil)
		layout = frame.Layout{Quality: 10, BufferSize: 4, FrameSize: 16}
		cfg = buffer.Config{
			Model:       "projectile",
			State:       []float64{0, 0, 1, 1},
			Layout:      layout,
			BufferLimit: 3,
		}
	})

	start := func() {
		Expect(mgr.Start(cfg)).To(Succeed())
	}

	Describe("Start", func() {
		It("sends the session config with a full allowance", func() {
			start()
			Expect(ep.sent).To(HaveLen(1))
			sent, ok := ep.sent[0].(transport.Config)
			Expect(ok).To(BeTrue())
			Expect(sent.AllowedBuffers).To(Equal(3))
			Expect(sent.Layout).To(Equal(layout))
			Expect(sent.Session).NotTo(Equal(uuid.Nil))
			Expect(sent.Session).To(Equal(mgr.Session()))
		})

		It("keeps an explicit session id and allowance", func() {
			cfg.Session = uuid.New()
			cfg.AllowedBuffers = 2
			start()
			sent := ep.sent[0].(transport.Config)
			Expect(sent.Session).To(Equal(cfg.Session))
			Expect(sent.AllowedBuffers).To(Equal(2))
		})

		It("discards every buffer of the previous session", func() {
			start()
			Expect(mgr.AddBuffer(filled(layout, 0, 4))).To(Succeed())
			_, ok := mgr.GetFrame(0)
			Expect(ok).To(BeTrue())

			start()
			_, ok = mgr.GetFrame(0)
			Expect(ok).To(BeFalse())
			Expect(mgr.Stats().Occupied).To(BeZero())
			Expect(mgr.Stats().Received).To(BeZero())
			// next-expected index is back at zero
			Expect(mgr.AddBuffer(filled(layout, 0, 4))).To(Succeed())
		})

		DescribeTable("rejects invalid configs",
			func(mutate func(*buffer.Config)) {
				mutate(&cfg)
				Expect(mgr.Start(cfg)).To(MatchError(buffer.ErrInvalidConfig))
				Expect(ep.sent).To(BeEmpty())
			},
			Entry("zero buffer size", func(c *buffer.Config) { c.Layout.BufferSize = 0 }),
			Entry("zero frame size", func(c *buffer.Config) { c.Layout.FrameSize = 0 }),
			Entry("negative quality", func(c *buffer.Config) { c.Layout.Quality = -10 }),
			Entry("single slot pool", func(c *buffer.Config) { c.BufferLimit = 1 }),
			Entry("allowance above limit", func(c *buffer.Config) { c.AllowedBuffers = 4 }),
			Entry("negative allowance", func(c *buffer.Config) { c.AllowedBuffers = -1 }),
			Entry("allowance of one buffer", func(c *buffer.Config) { c.AllowedBuffers = 1 }),
			Entry("negative tick limit", func(c *buffer.Config) { c.MaxTicks = -1 }),
		)

		It("fails once the producer is gone", func() {
			mgr.Terminate()
			Expect(ep.terminated).To(BeTrue())
			Expect(mgr.Start(cfg)).To(MatchError(buffer.ErrProducerGone))
		})
	})

	Describe("AddBuffer", func() {
		BeforeEach(start)

		It("accepts buffers until the pool is full, then fails", func() {
			for i := 0; i < cfg.BufferLimit; i++ {
				Expect(mgr.AddBuffer(filled(layout, i, 4))).To(Succeed())
			}
			err := mgr.AddBuffer(filled(layout, 3, 4))
			Expect(err).To(MatchError(buffer.ErrCapacityExceeded))

			var perr *buffer.ProtocolError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Index).To(Equal(3))
			Expect(mgr.Stats().Occupied).To(Equal(cfg.BufferLimit))
		})

		It("rejects indices that go backwards", func() {
			Expect(mgr.AddBuffer(filled(layout, 2, 4))).To(Succeed())
			Expect(mgr.AddBuffer(filled(layout, 1, 4))).To(MatchError(buffer.ErrOutOfOrder))
			Expect(mgr.AddBuffer(filled(layout, 2, 4))).To(MatchError(buffer.ErrOutOfOrder))
		})

		It("rejects malformed buffers", func() {
			b := filled(layout, 0, 2)
			b.Used = 20
			Expect(mgr.AddBuffer(b)).To(MatchError(frame.ErrMalformedBuffer))

			short := &frame.Buffer{Index: 0, Bytes: make([]byte, 8)}
			Expect(mgr.AddBuffer(short)).To(MatchError(frame.ErrMalformedBuffer))
		})

		It("requires a started session", func() {
			other := buffer.NewManager(newFakeEndpoint(), nil)
			Expect(other.AddBuffer(filled(layout, 0, 4))).To(MatchError(buffer.ErrNotStarted))
			Expect(other.Pump()).To(MatchError(buffer.ErrNotStarted))
		})
	})

	Describe("GetFrame", func() {
		BeforeEach(start)

		It("returns the bytes written for each received tick", func() {
			bufs := []*frame.Buffer{filled(layout, 0, 4), filled(layout, 1, 4), filled(layout, 2, 3)}
			for _, b := range bufs {
				Expect(mgr.AddBuffer(b)).To(Succeed())
			}

			for tick := 0; tick < 11; tick++ {
				f, ok := mgr.GetFrame(tick)
				Expect(ok).To(BeTrue(), "tick %d", tick)
				b := bufs[tick/4]
				off := tick % 4
				Expect(f).To(Equal(b.Bytes[off*16 : off*16+16]))
				Expect(decode(layout, f)).To(Equal(tickValues(tick)))
			}
		})

		It("reports ticks that have not arrived as unavailable", func() {
			Expect(mgr.AddBuffer(filled(layout, 0, 2))).To(Succeed())

			_, ok := mgr.GetFrame(2)
			Expect(ok).To(BeFalse(), "beyond used bytes")
			_, ok = mgr.GetFrame(4)
			Expect(ok).To(BeFalse(), "buffer never received")
			_, ok = mgr.GetFrame(-1)
			Expect(ok).To(BeFalse(), "negative tick")
		})

		It("looks frames up by time and range", func() {
			Expect(mgr.AddBuffer(filled(layout, 0, 4))).To(Succeed())
			Expect(mgr.AddBuffer(filled(layout, 1, 2))).To(Succeed())

			f, ok := mgr.GetFrameAt(59)
			Expect(ok).To(BeTrue())
			Expect(decode(layout, f)).To(Equal(tickValues(5)))

			_, ok = mgr.GetFrameAt(-1)
			Expect(ok).To(BeFalse())

			frames := mgr.GetFrames(2, 10)
			Expect(frames).To(HaveLen(4), "stops at tick 6")
			Expect(decode(layout, frames[0])).To(Equal(tickValues(2)))
		})
	})

	Describe("GetBoundaryBuffers", func() {
		BeforeEach(start)

		It("returns the frames for ticks 2 and 3 at time 25", func() {
			Expect(mgr.AddBuffer(filled(layout, 0, 4))).To(Succeed())

			bd, ok := mgr.GetBoundaryBuffers(25, false, false)
			Expect(ok).To(BeTrue())
			Expect(bd.Tick0).To(Equal(2))
			Expect(bd.Tick1).To(Equal(3))
			Expect(decode(layout, bd.Frame0)).To(Equal(tickValues(2)))
			Expect(decode(layout, bd.Frame1)).To(Equal(tickValues(3)))
			Expect(bd.Blend).To(BeNumerically("~", 0.5, 1e-12))
		})

		It("returns floor and ceil ticks for every time within the data", func() {
			cfg.BufferLimit = 4
			start()
			for i := 0; i < 3; i++ {
				Expect(mgr.AddBuffer(filled(layout, i, 4))).To(Succeed())
			}

			for tm := 0.0; tm <= 110; tm += 0.7 {
				bd, ok := mgr.GetBoundaryBuffers(tm, false, false)
				Expect(ok).To(BeTrue(), "time %v", tm)
				want0 := int(math.Floor(tm / 10))
				want1 := int(math.Ceil(tm / 10))
				Expect(bd.Tick0).To(Equal(want0))
				Expect(bd.Tick1).To(Equal(want1))
				Expect(decode(layout, bd.Frame0)).To(Equal(tickValues(want0)))
				Expect(decode(layout, bd.Frame1)).To(Equal(tickValues(want1)))
			}
		})

		It("returns the same frame twice on an exact tick", func() {
			Expect(mgr.AddBuffer(filled(layout, 0, 4))).To(Succeed())
			bd, ok := mgr.GetBoundaryBuffers(30, false, false)
			Expect(ok).To(BeTrue())
			Expect(bd.Tick0).To(Equal(3))
			Expect(bd.Tick1).To(Equal(3))
			Expect(bd.Frame0).To(Equal(bd.Frame1))
			Expect(bd.Blend).To(BeZero())
		})

		It("reports a boundary straddling a missing buffer as unavailable", func() {
			Expect(mgr.AddBuffer(filled(layout, 0, 4))).To(Succeed())
			_, ok := mgr.GetBoundaryBuffers(35, false, false)
			Expect(ok).To(BeFalse())
			Expect(ep.grants()).To(BeEmpty())
		})

		It("reports a missing tick in a partial buffer as unavailable", func() {
			Expect(mgr.AddBuffer(filled(layout, 0, 2))).To(Succeed())
			_, ok := mgr.GetBoundaryBuffers(15, false, false)
			Expect(ok).To(BeFalse())
		})

		It("treats negative time as unavailable", func() {
			Expect(mgr.AddBuffer(filled(layout, 0, 4))).To(Succeed())
			_, ok := mgr.GetBoundaryBuffers(-1, true, true)
			Expect(ok).To(BeFalse())
		})

		Context("with autoClear", func() {
			It("evicts older buffers and grants them back", func() {
				cfg.BufferLimit = 2
				start()
				Expect(mgr.AddBuffer(filled(layout, 0, 4))).To(Succeed())
				Expect(mgr.AddBuffer(filled(layout, 1, 4))).To(Succeed())

				_, ok := mgr.GetBoundaryBuffers(55, true, false)
				Expect(ok).To(BeTrue())
				_, held := mgr.GetBuffer(0)
				Expect(held).To(BeFalse())
				Expect(ep.grants()).To(Equal([]int{1}))

				Expect(mgr.AddBuffer(filled(layout, 2, 4))).To(Succeed())
			})

			It("keeps the lower boundary buffer when the pair straddles two buffers", func() {
				for i := 0; i < 3; i++ {
					Expect(mgr.AddBuffer(filled(layout, i, 4))).To(Succeed())
				}
				// ticks 7 and 8 live in buffers 1 and 2
				_, ok := mgr.GetBoundaryBuffers(75, true, false)
				Expect(ok).To(BeTrue())

				_, held0 := mgr.GetBuffer(0)
				_, held1 := mgr.GetBuffer(1)
				_, held2 := mgr.GetBuffer(2)
				Expect(held0).To(BeFalse())
				Expect(held1).To(BeTrue())
				Expect(held2).To(BeTrue())
				Expect(ep.granted()).To(Equal(1))
			})

			It("never evicts the buffer serving both boundaries", func() {
				Expect(mgr.AddBuffer(filled(layout, 0, 4))).To(Succeed())
				_, ok := mgr.GetBoundaryBuffers(25, true, false)
				Expect(ok).To(BeTrue())
				_, held := mgr.GetBuffer(0)
				Expect(held).To(BeTrue())
				Expect(ep.grants()).To(BeEmpty())
			})

			It("never evicts at or above the lower boundary index", func() {
				cfg.BufferLimit = 4
				start()
				for i := 0; i < 4; i++ {
					Expect(mgr.AddBuffer(filled(layout, i, 4))).To(Succeed())
				}
				for tm := 0.0; tm <= 150; tm += 3 {
					bd, ok := mgr.GetBoundaryBuffers(tm, true, false)
					Expect(ok).To(BeTrue())
					lower := layout.BufferIndex(bd.Tick0)
					for i := lower; i < 4; i++ {
						_, held := mgr.GetBuffer(i)
						Expect(held).To(BeTrue(), "buffer %d at time %v", i, tm)
					}
				}
				Expect(ep.granted()).To(Equal(3))
			})
		})

		Context("with sleepProtection", func() {
			BeforeEach(func() {
				cfg.BufferLimit = 2
				start()
				Expect(mgr.AddBuffer(filled(layout, 0, 4))).To(Succeed())
				Expect(mgr.AddBuffer(filled(layout, 1, 4))).To(Succeed())
			})

			It("evicts everything older than the requested buffer once caught up", func() {
				_, ok := mgr.GetBoundaryBuffers(85, true, true)
				Expect(ok).To(BeFalse())
				Expect(ep.grants()).To(Equal([]int{2}))
				Expect(mgr.Stats().Occupied).To(BeZero())
			})

			It("keeps the buffer holding the lower boundary", func() {
				// tick 7 is held, tick 8 has not been produced yet
				_, ok := mgr.GetBoundaryBuffers(75, true, true)
				Expect(ok).To(BeFalse())
				Expect(ep.grants()).To(Equal([]int{1}))
				_, held := mgr.GetBuffer(1)
				Expect(held).To(BeTrue())
			})

			It("does nothing without the flag", func() {
				_, ok := mgr.GetBoundaryBuffers(85, true, false)
				Expect(ok).To(BeFalse())
				Expect(ep.grants()).To(BeEmpty())
				Expect(mgr.Stats().Occupied).To(Equal(2))
			})

			It("sends no grant when nothing is older", func() {
				Expect(mgr.Start(cfg)).To(Succeed())
				_, ok := mgr.GetBoundaryBuffers(5, true, true)
				Expect(ok).To(BeFalse())
				Expect(ep.grants()).To(BeEmpty())
			})
		})
	})

	Describe("direct lookups", func() {
		BeforeEach(start)

		It("fails GetLastFrame on an empty pool", func() {
			_, err := mgr.GetLastFrame()
			Expect(err).To(MatchError(buffer.ErrNoData))
			_, ok := mgr.LastTick()
			Expect(ok).To(BeFalse())
		})

		It("returns the newest frame held", func() {
			Expect(mgr.AddBuffer(filled(layout, 0, 4))).To(Succeed())
			Expect(mgr.AddBuffer(filled(layout, 1, 3))).To(Succeed())

			f, err := mgr.GetLastFrame()
			Expect(err).NotTo(HaveOccurred())
			Expect(decode(layout, f)).To(Equal(tickValues(6)))
			tick, ok := mgr.LastTick()
			Expect(ok).To(BeTrue())
			Expect(tick).To(Equal(6))

			b, ok := mgr.GetBuffer(1)
			Expect(ok).To(BeTrue())
			Expect(b.Index).To(Equal(1))
			_, ok = mgr.GetBuffer(7)
			Expect(ok).To(BeFalse())
		})

		It("remembers the last tick after its buffer is evicted", func() {
			Expect(mgr.AddBuffer(filled(layout, 0, 4))).To(Succeed())
			Expect(mgr.AddBuffer(filled(layout, 1, 2))).To(Succeed())

			_, ok := mgr.GetBoundaryBuffers(90, true, true)
			Expect(ok).To(BeFalse())
			Expect(mgr.Stats().Occupied).To(BeZero())

			tick, ok := mgr.LastTick()
			Expect(ok).To(BeTrue())
			Expect(tick).To(Equal(5))
			_, err := mgr.GetLastFrame()
			Expect(err).To(MatchError(buffer.ErrNoData))
		})

		It("clears a single buffer with a one-unit grant", func() {
			Expect(mgr.AddBuffer(filled(layout, 0, 4))).To(Succeed())
			Expect(mgr.AddBuffer(filled(layout, 1, 4))).To(Succeed())

			Expect(mgr.ClearBuffer(1)).To(BeTrue())
			Expect(ep.grants()).To(Equal([]int{1}))
			_, ok := mgr.GetFrame(4)
			Expect(ok).To(BeFalse())

			Expect(mgr.ClearBuffer(1)).To(BeFalse())
			Expect(ep.grants()).To(HaveLen(1))
			Expect(mgr.Stats().Evicted).To(Equal(1))
			Expect(mgr.Stats().Granted).To(Equal(1))
		})
	})

	Describe("Pump", func() {
		BeforeEach(start)

		It("stores data and records the result", func() {
			id := mgr.Session()
			ep.inbox.Post(transport.Data{Session: id, Buffer: filled(layout, 0, 4)})
			ep.inbox.Post(transport.Data{Session: id, Buffer: filled(layout, 1, 1)})
			ep.inbox.Post(transport.Result{Session: id, Ticks: 4, Elapsed: 40, Values: map[string]float64{"distance": 3}})

			Expect(mgr.Pump()).To(Succeed())
			Expect(mgr.Stats().Received).To(Equal(2))
			Expect(mgr.Stats().Highest).To(Equal(1))
			Expect(mgr.Finished()).To(BeTrue())
			res, ok := mgr.Result()
			Expect(ok).To(BeTrue())
			Expect(res.Values).To(HaveKeyWithValue("distance", 3.0))
		})

		It("drops messages from other sessions", func() {
			ep.inbox.Post(transport.Data{Session: uuid.New(), Buffer: filled(layout, 0, 4)})
			ep.inbox.Post(transport.Result{Session: uuid.New()})

			Expect(mgr.Pump()).To(Succeed())
			Expect(mgr.Stats().Received).To(BeZero())
			Expect(mgr.Finished()).To(BeFalse())
		})

		It("surfaces producer faults", func() {
			cause := errors.New("boom")
			ep.inbox.Post(transport.Fault{Session: mgr.Session(), Err: cause})

			err := mgr.Pump()
			Expect(err).To(MatchError(cause))
			var ferr *buffer.FaultError
			Expect(errors.As(err, &ferr)).To(BeTrue())
			Expect(ferr.Session).To(Equal(mgr.Session()))
		})

		It("surfaces capacity violations", func() {
			for i := 0; i < 4; i++ {
				ep.inbox.Post(transport.Data{Session: mgr.Session(), Buffer: filled(layout, i, 4)})
			}
			Expect(mgr.Pump()).To(MatchError(buffer.ErrCapacityExceeded))
		})

		It("rejects producer-bound messages", func() {
			ep.inbox.Post(transport.Grant{Session: mgr.Session(), AllowedBuffers: 1})
			Expect(mgr.Pump()).To(MatchError(buffer.ErrUnexpectedMessage))
		})
	})
})
