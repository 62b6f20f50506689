package cerr_test

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/markers"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/vocal-separator/src/shared/lib/cerr"
	"github.com/veedubyou/vocal-separator/src/shared/lib/errors/mark"
)

var _ = Describe("Cerr", func() {
	It("keeps the message of the error it builds", func() {
		err := cerr.Field("path", "/tmp/x").Error("Failed to open")
		Expect(err.Error()).To(Equal("Failed to open"))
		Expect(cerr.CollectFields(err)).To(Equal(cerr.F{"path": "/tmp/x"}))
	})

	It("wraps causes", func() {
		cause := errors.New("disk full")
		err := cerr.Field("path", "/tmp/x").Wrap(cause).Error("Failed to write")

		Expect(err.Error()).To(Equal("Failed to write: disk full"))
		Expect(errors.Is(err, cause)).To(BeTrue())
	})

	It("collects fields through wraps and marks, outermost first", func() {
		marker := errors.New("marker")

		inner := cerr.Fields(cerr.F{"exit_code": 1, "path": "inner"}).Error("child failed")
		marked := mark.Wrap(inner, marker, "Separator failed")
		outer := cerr.Field("path", "outer").Wrap(marked).Error("Job failed")

		Expect(markers.Is(outer, marker)).To(BeTrue())
		Expect(cerr.CollectFields(outer)).To(Equal(cerr.F{
			"exit_code": 1,
			"path":      "outer",
		}))
	})

	It("doesn't share fields between derived contexts", func() {
		base := cerr.Field("a", 1)
		first := base.Field("b", 2).Error("first")
		second := base.Field("c", 3).Error("second")

		Expect(cerr.CollectFields(first)).To(Equal(cerr.F{"a": 1, "b": 2}))
		Expect(cerr.CollectFields(second)).To(Equal(cerr.F{"a": 1, "c": 3}))
	})

	It("has no fields for plain errors", func() {
		Expect(cerr.CollectFields(errors.New("plain"))).To(BeEmpty())
		Expect(cerr.CollectFields(nil)).To(BeEmpty())
	})

	It("logs without panicking", func() {
		Expect(func() {
			cerr.Log(nil)
			cerr.Log(cerr.Field("a", 1).Error("logged"))
		}).NotTo(Panic())
	})
})
