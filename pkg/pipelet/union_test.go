package pipelet

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/l7mp/pipelet/pkg/value"
)

var _ = Describe("Union", func() {
	var (
		a, b *Set
		u    *Union
		rec  *recorder
	)

	BeforeEach(func() {
		var err error
		a, err = NewSet("a", vs(v("id", int64(1)), v("id", int64(2))), WithLogger(logger))
		Expect(err).NotTo(HaveOccurred())
		b, err = NewSet("b", vs(v("id", int64(10))), WithLogger(logger))
		Expect(err).NotTo(HaveOccurred())

		u, err = NewUnion("u", []Source{a, b}, WithLogger(logger))
		Expect(err).NotTo(HaveOccurred())
		_, rec = newRecorder("obs", u)
		rec.reset()
	})

	It("should fetch the sources in registration order with a single terminator", func() {
		chunks := [][]value.Value{}
		Expect(u.Fetch(func(chunk []value.Value) error {
			chunks = append(chunks, chunk)
			return nil
		})).To(Succeed())
		Expect(chunks).To(Equal([][]value.Value{
			vs(v("id", int64(1)), v("id", int64(2))),
			vs(v("id", int64(10))),
			nil,
		}))
	})

	It("should skip empty sources on fetch", func() {
		Expect(a.Clear()).To(Succeed())
		n := 0
		Expect(u.Fetch(func(chunk []value.Value) error {
			n++
			return nil
		})).To(Succeed())
		Expect(n).To(Equal(2))
	})

	It("should forward deltas from every source", func() {
		Expect(a.Add(vs(v("id", int64(3))))).To(Succeed())
		Expect(b.Remove(vs(v("id", int64(10))))).To(Succeed())
		Expect(rec.deltas).To(Equal([]Delta{
			addDelta(v("id", int64(3))),
			removeDelta(v("id", int64(10))),
		}))
	})

	It("should retract the content of a removed source", func() {
		Expect(u.RemoveSource(a)).To(Succeed())
		Expect(rec.deltas).To(Equal([]Delta{removeDelta(v("id", int64(1)), v("id", int64(2)))}))
		Expect(u.Sources()).To(Equal([]Source{b}))
		Expect(a.Destinations()).To(BeEmpty())

		vals, err := Get(u)
		Expect(err).NotTo(HaveOccurred())
		Expect(vals).To(Equal(vs(v("id", int64(10)))))
	})

	It("should reject duplicate and unknown sources", func() {
		Expect(errors.Is(u.AddSource(a), ErrInvalidWiring)).To(BeTrue())

		c, err := NewSet("c", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(errors.Is(u.RemoveSource(c), ErrInvalidWiring)).To(BeTrue())
	})

	It("should add a source with SetSource and detach all with a nil source", func() {
		c, err := NewSet("c", vs(v("id", int64(20))))
		Expect(err).NotTo(HaveOccurred())
		Expect(u.SetSource(c)).To(Succeed())
		Expect(rec.deltas).To(Equal([]Delta{addDelta(v("id", int64(20)))}))
		Expect(u.Sources()).To(HaveLen(3))

		rec.reset()
		Expect(u.SetSource(nil)).To(Succeed())
		Expect(u.Sources()).To(BeEmpty())
		Expect(u.Source()).To(BeNil())
		Expect(rec.deltas).To(Equal([]Delta{clearDelta()}))
		Expect(a.Destinations()).To(BeEmpty())
	})

	It("should emit the clear before detaching the sources", func() {
		attached := -1
		obs, err := NewObserver("clear-watch", func(d Delta) error {
			if d.Kind == ActionClear {
				attached = len(a.Destinations())
			}
			return nil
		}, WithLogger(logger))
		Expect(err).NotTo(HaveOccurred())
		Expect(obs.SetSource(u)).To(Succeed())

		Expect(u.SetSource(nil)).To(Succeed())
		Expect(attached).To(Equal(1))
		Expect(a.Destinations()).To(BeEmpty())
	})

	It("should buffer live deltas of other sources while a new source bootstraps", func() {
		live := &liveSource{
			chunks: [][]value.Value{vs(v("id", int64(20))), vs(v("id", int64(21)))},
			during: func([]Pipelet) {
				Expect(a.Add(vs(v("id", int64(3))))).To(Succeed())
				Expect(a.Remove(vs(v("id", int64(1))))).To(Succeed())
			},
		}

		Expect(u.AddSource(live)).To(Succeed())
		live.during = nil
		Expect(rec.deltas).To(Equal([]Delta{
			addDelta(v("id", int64(20))),
			addDelta(v("id", int64(21))),
			addDelta(v("id", int64(3))),
			removeDelta(v("id", int64(1))),
		}))

		vals, err := Get(u)
		Expect(err).NotTo(HaveOccurred())
		Expect(vals).To(Equal(vs(
			v("id", int64(2)), v("id", int64(3)),
			v("id", int64(10)),
			v("id", int64(20)), v("id", int64(21)),
		)))
	})

	It("should materialize the union of its sources", func() {
		t, err := NewSet("t", nil, WithLogger(logger))
		Expect(err).NotTo(HaveOccurred())
		Expect(t.SetSource(u)).To(Succeed())
		Expect(t.Values()).To(Equal(vs(v("id", int64(1)), v("id", int64(2)), v("id", int64(10)))))

		Expect(b.Update([]Update{{Previous: v("id", int64(10)), Current: v("id", int64(10), "x", true)}})).To(Succeed())
		Expect(t.Values()).To(ContainElement(v("id", int64(10), "x", true)))
	})
})
