package pipelet

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/apimachinery/pkg/util/json"

	"github.com/l7mp/pipelet/pkg/expression"
	"github.com/l7mp/pipelet/pkg/value"
)

func isUSA(val value.Value) bool { return val["country"] == "USA" }

var _ = Describe("Filter", func() {
	var (
		s   *Set
		f   *Filter
		rec *recorder
	)

	BeforeEach(func() {
		var err error
		s, err = NewSet("cities", vs(
			v("id", int64(1), "country", "FR"),
			v("id", int64(2), "country", "USA"),
			v("id", int64(3), "country", "USA"),
		), WithLogger(logger))
		Expect(err).NotTo(HaveOccurred())

		f, err = NewFilter("usa", PredicateFunc(isUSA), WithLogger(logger))
		Expect(err).NotTo(HaveOccurred())
		Expect(f.SetSource(s)).To(Succeed())

		_, rec = newRecorder("obs", f)
		Expect(rec.deltas).To(Equal([]Delta{addDelta(v("id", int64(2), "country", "USA"), v("id", int64(3), "country", "USA"))}))
		rec.reset()
	})

	It("should fetch the passing subset", func() {
		vals, err := Get(f)
		Expect(err).NotTo(HaveOccurred())
		Expect(vals).To(Equal(vs(v("id", int64(2), "country", "USA"), v("id", int64(3), "country", "USA"))))
	})

	It("should drop chunks that become empty", func() {
		g, err := NewFilter("none", PredicateFunc(func(value.Value) bool { return false }))
		Expect(err).NotTo(HaveOccurred())
		Expect(g.SetSource(s)).To(Succeed())

		n := 0
		Expect(g.Fetch(func(chunk []value.Value) error {
			Expect(chunk).To(BeEmpty())
			n++
			return nil
		})).To(Succeed())
		Expect(n).To(Equal(1))
	})

	It("should forward passing adds and removes only", func() {
		Expect(s.Add(vs(v("id", int64(4), "country", "FR"), v("id", int64(5), "country", "USA")))).To(Succeed())
		Expect(s.Remove(vs(v("id", int64(1)), v("id", int64(2))))).To(Succeed())
		Expect(rec.deltas).To(Equal([]Delta{
			addDelta(v("id", int64(5), "country", "USA")),
			removeDelta(v("id", int64(2), "country", "USA")),
		}))
	})

	It("should emit an add when an update starts to pass", func() {
		Expect(s.Update([]Update{{Previous: v("id", int64(1)), Current: v("id", int64(1), "country", "USA")}})).To(Succeed())
		Expect(rec.deltas).To(Equal([]Delta{addDelta(v("id", int64(1), "country", "USA"))}))
	})

	It("should classify a batch of updates and emit remove, update and add", func() {
		Expect(f.Update([]Update{
			{Previous: v("id", int64(1), "country", "FR"), Current: v("id", int64(1), "country", "USA")},
			{Previous: v("id", int64(2), "country", "USA"), Current: v("id", int64(2), "country", "FR")},
			{Previous: v("id", int64(3), "country", "USA"), Current: v("id", int64(3), "country", "USA", "x", true)},
			{Previous: v("id", int64(9), "country", "FR"), Current: v("id", int64(9), "country", "DE")},
		})).To(Succeed())

		Expect(rec.deltas).To(Equal([]Delta{
			removeDelta(v("id", int64(2), "country", "USA")),
			updateDelta(Update{
				Previous: v("id", int64(3), "country", "USA"),
				Current:  v("id", int64(3), "country", "USA", "x", true),
			}),
			addDelta(v("id", int64(1), "country", "USA")),
		}))
	})

	It("should forward a clear", func() {
		Expect(s.Clear()).To(Succeed())
		Expect(rec.deltas).To(Equal([]Delta{clearDelta()}))
	})

	It("should be sound with respect to the source", func() {
		t, err := NewSet("materialized", nil, WithLogger(logger))
		Expect(err).NotTo(HaveOccurred())
		Expect(t.SetSource(f)).To(Succeed())

		Expect(s.Add(vs(v("id", int64(4), "country", "USA")))).To(Succeed())
		Expect(s.Update([]Update{{Previous: v("id", int64(2)), Current: v("id", int64(2), "country", "CA")}})).To(Succeed())
		Expect(s.Remove(vs(v("id", int64(3))))).To(Succeed())

		expected := []value.Value{}
		for _, val := range s.Values() {
			if isUSA(val) {
				expected = append(expected, val)
			}
		}
		Expect(t.Values()).To(ConsistOf(expected))
	})

	Describe("with an expression predicate", func() {
		var exp expression.Expression

		BeforeEach(func() {
			Expect(json.Unmarshal([]byte(`{"@eq": ["$.country", "USA"]}`), &exp)).To(Succeed())
		})

		It("should filter with the expression", func() {
			g, err := NewFilter("usa-exp", PredicateExpression(exp), WithLogger(logger))
			Expect(err).NotTo(HaveOccurred())
			Expect(g.SetSource(s)).To(Succeed())

			vals, err := Get(g)
			Expect(err).NotTo(HaveOccurred())
			Expect(vals).To(Equal(vs(v("id", int64(2), "country", "USA"), v("id", int64(3), "country", "USA"))))
			Expect(g.Predicate().String()).To(Equal(`{"@eq":["$.country","USA"]}`))
		})

		It("should abort the batch on a predicate error", func() {
			var bad expression.Expression
			Expect(json.Unmarshal([]byte(`"$.country"`), &bad)).To(Succeed())

			g, err := NewFilter("bad", PredicateExpression(bad), WithLogger(logger))
			Expect(err).NotTo(HaveOccurred())
			err = g.SetSource(s)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, ErrPredicate)).To(BeTrue())
			Expect(g.Source()).To(BeNil())
			Expect(s.Destinations()).To(HaveLen(1))
		})
	})

	It("should reject an uninitialized predicate", func() {
		_, err := NewFilter("empty", Predicate{})
		Expect(errors.Is(err, ErrPredicate)).To(BeTrue())

		_, err = NewFilter("nil", PredicateFunc(nil))
		Expect(errors.Is(err, ErrPredicate)).To(BeTrue())
	})
})
