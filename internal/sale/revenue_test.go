package sale

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

func saleAt(amount string, ts time.Time) *Sale {
	return &Sale{ID: ts.String(), Amount: decimal.RequireFromString(amount), Timestamp: ts}
}

var _ = Describe("Aggregate", func() {
	var (
		now   time.Time
		sales []*Sale
		loc   *time.Location
		rev   Revenue
	)

	BeforeEach(func() {
		now = time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)
		loc = time.UTC
	})

	JustBeforeEach(func() {
		rev = Aggregate(sales, now, loc)
	})

	When("sales fall today, earlier this month and last month", func() {
		BeforeEach(func() {
			sales = []*Sale{
				saleAt("12.50", time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)),
				saleAt("7", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
				saleAt("40", time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)),
			}
		})

		It("should count only today's sale in today", func() {
			Expect(rev.Today.String()).To(Equal("12.5"))
		})

		It("should count today and earlier this month in month", func() {
			Expect(rev.Month.String()).To(Equal("19.5"))
		})
	})

	When("a sale is on the same day of the same month last year", func() {
		BeforeEach(func() {
			sales = []*Sale{
				saleAt("9", time.Date(2023, 3, 15, 12, 0, 0, 0, time.UTC)),
			}
		})

		It("should not count it", func() {
			Expect(rev.Today.IsZero()).To(BeTrue())
			Expect(rev.Month.IsZero()).To(BeTrue())
		})
	})

	When("there are no sales", func() {
		BeforeEach(func() {
			sales = nil
		})

		It("should return zero for both", func() {
			Expect(rev.Today.IsZero()).To(BeTrue())
			Expect(rev.Month.IsZero()).To(BeTrue())
		})
	})

	When("buckets are compared in a zone other than UTC", func() {
		BeforeEach(func() {
			loc = time.FixedZone("UTC+3", 3*60*60)
			// 22:30 UTC on the 15th is already the 16th at UTC+3
			now = time.Date(2024, 3, 15, 22, 30, 0, 0, time.UTC)
			sales = []*Sale{
				saleAt("5", time.Date(2024, 3, 15, 20, 0, 0, 0, time.UTC)), // 23:00 on the 15th local
				saleAt("8", time.Date(2024, 3, 15, 21, 30, 0, 0, time.UTC)), // 00:30 on the 16th local
				saleAt("3", time.Date(2024, 2, 29, 22, 0, 0, 0, time.UTC)), // 01:00 on March 1st local
			}
		})

		It("should use the local calendar day", func() {
			Expect(rev.Today.String()).To(Equal("8"))
		})

		It("should use the local calendar month", func() {
			Expect(rev.Month.String()).To(Equal("16"))
		})
	})

	When("no location is given", func() {
		BeforeEach(func() {
			loc = nil
			sales = []*Sale{
				saleAt("2", now.Add(-time.Hour)),
			}
		})

		It("should fall back to now's location", func() {
			Expect(rev.Today.String()).To(Equal("2"))
		})
	})
})
