package pipelet

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/l7mp/pipelet/pkg/value"
)

var _ = Describe("Wiring", func() {
	var s *Set

	BeforeEach(func() {
		var err error
		s, err = NewSet("source", vs(v("id", int64(1)), v("id", int64(2))), WithLogger(logger))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Downstream edges", func() {
		It("should transition between none, single and fan-out", func() {
			a, _ := newRecorder("a", nil)
			b, _ := newRecorder("b", nil)
			c, _ := newRecorder("c", nil)

			Expect(s.Destinations()).To(BeEmpty())
			Expect(a.SetSource(s)).To(Succeed())
			Expect(s.down.kind).To(Equal(edgeSingle))
			Expect(b.SetSource(s)).To(Succeed())
			Expect(s.down.kind).To(Equal(edgeFanOut))
			Expect(c.SetSource(s)).To(Succeed())
			Expect(s.Destinations()).To(Equal([]Pipelet{a, b, c}))

			Expect(s.RemoveDestination(b)).To(Succeed())
			Expect(s.Destinations()).To(Equal([]Pipelet{a, c}))
			Expect(s.down.kind).To(Equal(edgeFanOut))

			Expect(s.RemoveDestination(a)).To(Succeed())
			Expect(s.down.kind).To(Equal(edgeSingle))
			Expect(s.Destinations()).To(Equal([]Pipelet{c}))

			Expect(s.RemoveDestination(c)).To(Succeed())
			Expect(s.down.kind).To(Equal(edgeNone))

			err := s.RemoveDestination(c)
			Expect(errors.Is(err, ErrInvalidWiring)).To(BeTrue())
		})

		It("should reject duplicate destinations", func() {
			a, _ := newRecorder("a", s)
			err := s.AddDestination(a)
			Expect(errors.Is(err, ErrInvalidWiring)).To(BeTrue())

			b, _ := newRecorder("b", s)
			Expect(errors.Is(s.AddDestination(a), ErrInvalidWiring)).To(BeTrue())
			Expect(errors.Is(s.AddDestination(b), ErrInvalidWiring)).To(BeTrue())
		})

		It("should reject removing an unknown destination from a fan-out", func() {
			newRecorder("a", s)
			newRecorder("b", s)
			c, _ := newRecorder("c", nil)
			Expect(errors.Is(s.RemoveDestination(c), ErrInvalidWiring)).To(BeTrue())
		})
	})

	Describe("Fork", func() {
		It("should broadcast deltas to every destination in registration order", func() {
			fork, err := NewFork("fork", WithLogger(logger))
			Expect(err).NotTo(HaveOccurred())
			Expect(fork.SetSource(s)).To(Succeed())

			order := []string{}
			sets := []*Set{}
			for _, name := range []string{"x", "y", "z"} {
				t, err := NewSet(name, nil, WithLogger(logger))
				Expect(err).NotTo(HaveOccurred())
				Expect(t.SetSource(fork)).To(Succeed())
				sets = append(sets, t)

				n := name
				o, err := NewObserver(name+"-obs", func(Delta) error {
					order = append(order, n)
					return nil
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(o.SetSource(t)).To(Succeed())
			}
			order = order[:0]

			Expect(s.Add(vs(v("id", int64(3))))).To(Succeed())
			Expect(s.Update([]Update{{Previous: v("id", int64(1)), Current: v("id", int64(1), "x", 1)}})).To(Succeed())
			Expect(s.Remove(vs(v("id", int64(2))))).To(Succeed())
			Expect(order).To(Equal([]string{"x", "y", "z", "x", "y", "z", "x", "y", "z"}))

			for _, t := range sets {
				Expect(t.Values()).To(Equal(s.Values()))
			}

			vals, err := Get(fork)
			Expect(err).NotTo(HaveOccurred())
			Expect(vals).To(Equal(s.Values()))
		})

		It("should reject duplicate and unknown destinations", func() {
			fork, err := NewFork("fork")
			Expect(err).NotTo(HaveOccurred())
			a, _ := newRecorder("a", fork)
			Expect(errors.Is(fork.AddDestination(a), ErrInvalidWiring)).To(BeTrue())

			b, _ := newRecorder("b", nil)
			Expect(errors.Is(fork.RemoveDestination(b), ErrInvalidWiring)).To(BeTrue())
			Expect(fork.RemoveDestination(a)).To(Succeed())
			Expect(fork.Destinations()).To(BeEmpty())
		})
	})

	Describe("Bootstrapping", func() {
		It("should deliver the source state before live deltas", func() {
			live := &liveSource{
				chunks: [][]value.Value{vs(v("id", int64(1))), vs(v("id", int64(2)))},
				during: func(dests []Pipelet) {
					for _, d := range dests {
						Expect(d.Add(vs(v("id", int64(3))))).To(Succeed())
					}
				},
			}

			t, err := NewSet("target", nil, WithLogger(logger))
			Expect(err).NotTo(HaveOccurred())
			_, rec := newRecorder("obs", t)

			Expect(t.SetSource(live)).To(Succeed())
			Expect(t.Values()).To(Equal(vs(v("id", int64(1)), v("id", int64(2)), v("id", int64(3)))))
			Expect(rec.deltas).To(Equal([]Delta{
				addDelta(v("id", int64(1))),
				addDelta(v("id", int64(2))),
				addDelta(v("id", int64(3))),
			}))
			Expect(live.dests).To(HaveLen(1))

			// live deltas flow directly after the bootstrap
			Expect(live.dests[0].Remove(vs(v("id", int64(2))))).To(Succeed())
			Expect(t.Values()).To(Equal(vs(v("id", int64(1)), v("id", int64(3)))))
		})

		It("should replay buffered removes and updates after the fetch", func() {
			live := &liveSource{
				chunks: [][]value.Value{
					vs(v("id", int64(1), "name", "a")),
					vs(v("id", int64(2), "name", "b")),
				},
				during: func(dests []Pipelet) {
					for _, d := range dests {
						// the remove targets a value already delivered by the fetch, the
						// update one that is delivered only later
						Expect(d.Remove(vs(v("id", int64(1))))).To(Succeed())
						Expect(d.Update([]Update{{
							Previous: v("id", int64(2)),
							Current:  v("id", int64(2), "name", "B"),
						}})).To(Succeed())
					}
				},
			}

			t, err := NewSet("target", nil, WithLogger(logger))
			Expect(err).NotTo(HaveOccurred())
			_, rec := newRecorder("obs", t)

			Expect(t.SetSource(live)).To(Succeed())
			Expect(t.Values()).To(Equal(vs(v("id", int64(2), "name", "B"))))
			Expect(rec.deltas).To(Equal([]Delta{
				addDelta(v("id", int64(1), "name", "a")),
				addDelta(v("id", int64(2), "name", "b")),
				removeDelta(v("id", int64(1), "name", "a")),
				updateDelta(Update{
					Previous: v("id", int64(2), "name", "b"),
					Current:  v("id", int64(2), "name", "B"),
				}),
			}))
		})

		It("should replay a buffered clear in order", func() {
			live := &liveSource{
				chunks: [][]value.Value{vs(v("id", int64(1))), vs(v("id", int64(2)))},
				during: func(dests []Pipelet) {
					for _, d := range dests {
						Expect(d.Clear()).To(Succeed())
						Expect(d.Add(vs(v("id", int64(3))))).To(Succeed())
					}
				},
			}

			t, err := NewSet("target", nil, WithLogger(logger))
			Expect(err).NotTo(HaveOccurred())
			_, rec := newRecorder("obs", t)

			Expect(t.SetSource(live)).To(Succeed())
			Expect(t.Values()).To(Equal(vs(v("id", int64(3)))))
			Expect(rec.deltas).To(Equal([]Delta{
				addDelta(v("id", int64(1))),
				addDelta(v("id", int64(2))),
				clearDelta(),
				addDelta(v("id", int64(3))),
			}))
		})

		It("should retract a partial state when the fetch fails", func() {
			failing := &failingSource{
				chunks: [][]value.Value{vs(v("id", int64(1))), vs(v("id", int64(2)))},
				err:    errors.New("fetch failed"),
			}

			t, err := NewSet("target", nil, WithLogger(logger))
			Expect(err).NotTo(HaveOccurred())
			_, rec := newRecorder("obs", t)

			Expect(t.SetSource(failing)).To(MatchError("fetch failed"))
			Expect(t.Source()).To(BeNil())
			Expect(t.Len()).To(BeZero())
			Expect(rec.deltas).To(Equal([]Delta{
				addDelta(v("id", int64(1))),
				addDelta(v("id", int64(2))),
				removeDelta(v("id", int64(1)), v("id", int64(2))),
			}))
		})

		It("should fetch a non-emitting source once", func() {
			t, err := NewSet("target", nil, WithLogger(logger))
			Expect(err).NotTo(HaveOccurred())
			Expect(t.SetSource(&staticSource{values: vs(v("id", int64(1)), v("id", int64(2)))})).To(Succeed())
			Expect(t.Len()).To(Equal(2))
		})

		It("should deliver an empty fetch for a pipelet without a source", func() {
			p, err := NewPassthrough("p")
			Expect(err).NotTo(HaveOccurred())
			vals, err := Get(p)
			Expect(err).NotTo(HaveOccurred())
			Expect(vals).To(BeEmpty())
		})
	})

	Describe("Disconnecting", func() {
		It("should cascade a clear downstream", func() {
			f, err := NewFilter("all", PredicateFunc(func(value.Value) bool { return true }), WithLogger(logger))
			Expect(err).NotTo(HaveOccurred())
			Expect(f.SetSource(s)).To(Succeed())

			t, err := NewSet("target", nil, WithLogger(logger))
			Expect(err).NotTo(HaveOccurred())
			Expect(t.SetSource(f)).To(Succeed())
			_, rec := newRecorder("obs", t)
			rec.reset()
			Expect(t.Len()).To(Equal(2))

			Expect(f.SetSource(nil)).To(Succeed())
			Expect(t.Len()).To(BeZero())
			Expect(rec.deltas).To(Equal([]Delta{clearDelta()}))
			Expect(s.Destinations()).To(BeEmpty())

			// further changes do not reach the detached subgraph
			Expect(s.Add(vs(v("id", int64(3))))).To(Succeed())
			Expect(t.Len()).To(BeZero())
		})

		It("should re-bootstrap from a new source", func() {
			t, err := NewSet("target", nil, WithLogger(logger))
			Expect(err).NotTo(HaveOccurred())
			Expect(t.SetSource(s)).To(Succeed())

			other, err := NewSet("other", vs(v("id", int64(9))), WithLogger(logger))
			Expect(err).NotTo(HaveOccurred())
			Expect(t.SetSource(other)).To(Succeed())
			Expect(t.Values()).To(Equal(vs(v("id", int64(9)))))
			Expect(t.Source()).To(Equal(Source(other)))
			Expect(s.Destinations()).To(BeEmpty())
		})
	})

	Describe("Notify", func() {
		It("should apply the actions of a transaction in order", func() {
			_, rec := newRecorder("obs", s)
			rec.reset()

			Expect(s.Notify(Transaction{
				{Kind: ActionAdd, Values: vs(v("id", int64(3)))},
				{Kind: ActionUpdate, Updates: []Update{{Previous: v("id", int64(3)), Current: v("id", int64(3), "n", 1)}}},
				{Kind: ActionRemove, Values: vs(v("id", int64(1)))},
			})).To(Succeed())

			Expect(rec.deltas).To(HaveLen(3))
			Expect(s.Values()).To(Equal(vs(v("id", int64(2)), v("id", int64(3), "n", 1))))
		})

		It("should reject a transaction with an unsupported action and apply nothing", func() {
			err := s.Notify(Transaction{
				{Kind: ActionAdd, Values: vs(v("id", int64(3)))},
				{Kind: ActionClear},
			})
			Expect(errors.Is(err, ErrUnsupportedAction)).To(BeTrue())
			Expect(s.Len()).To(Equal(2))

			err = s.Notify(Transaction{{Kind: ActionUnknown}})
			Expect(errors.Is(err, ErrUnsupportedAction)).To(BeTrue())
		})

		It("should reject updates on a flat-map", func() {
			fm, err := NewFlatMap("fm", func(val value.Value) []value.Value { return []value.Value{val, val} })
			Expect(err).NotTo(HaveOccurred())
			Expect(fm.SupportsAction(ActionUpdate)).To(BeFalse())

			err = fm.Notify(Transaction{
				{Kind: ActionAdd, Values: vs(v("id", int64(3)))},
				{Kind: ActionUpdate, Updates: []Update{{Previous: v("id", int64(3)), Current: v("id", int64(3))}}},
			})
			Expect(errors.Is(err, ErrUnsupportedAction)).To(BeTrue())
		})

		It("should parse action kinds", func() {
			for _, k := range []ActionKind{ActionAdd, ActionRemove, ActionUpdate, ActionClear} {
				parsed, err := ParseActionKind(k.String())
				Expect(err).NotTo(HaveOccurred())
				Expect(parsed).To(Equal(k))
			}
			_, err := ParseActionKind("upsert")
			Expect(errors.Is(err, ErrUnsupportedAction)).To(BeTrue())
		})
	})
})
