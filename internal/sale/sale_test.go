package sale

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Catalog", func() {
	It("should list the thirteen menu items", func() {
		items := Catalog()
		Expect(items).To(HaveLen(13))
		Expect(items[0].Name).To(Equal("Espresso"))
		Expect(items[12].Name).To(Equal("Tawook"))
	})

	It("should start every item without a price or image", func() {
		for _, item := range Catalog() {
			Expect(item.Price).To(BeEmpty())
			Expect(item.Image).To(BeEmpty())
		}
	})

	It("should return an independent copy", func() {
		items := Catalog()
		items[0].Price = "5"
		Expect(Catalog()[0].Price).To(BeEmpty())
	})
})

var _ = DescribeTable("ParsePrice",
	func(input string, expected string) {
		Expect(ParsePrice(input).String()).To(Equal(expected))
	},
	Entry("integer", "3", "3"),
	Entry("decimal", "2.50", "2.5"),
	Entry("surrounding space", "  4.25 ", "4.25"),
	Entry("empty", "", "0"),
	Entry("blank", "   ", "0"),
	Entry("letters", "abc", "0"),
	Entry("trailing garbage", "12abc", "0"),
	Entry("negative", "-1.5", "-1.5"),
)

var _ = Describe("Total", func() {
	It("should sum parsed prices, counting empty and invalid as zero", func() {
		items := Catalog()
		items[0].Price = "1.10"
		items[1].Price = "2.20"
		items[2].Price = ""
		items[3].Price = "n/a"
		items[4].Price = "0.70"
		Expect(Total(items).String()).To(Equal("4"))
	})

	It("should not lose cents to floating point", func() {
		items := []LineItem{{Price: "0.1"}, {Price: "0.2"}}
		Expect(Total(items).String()).To(Equal("0.3"))
	})

	It("should be zero for the catalog", func() {
		Expect(Total(Catalog()).IsZero()).To(BeTrue())
	})
})

var _ = Describe("indexOf", func() {
	It("should match names ignoring case and space", func() {
		Expect(indexOf(Catalog(), "  soft drinks ")).To(Equal(4))
	})

	It("should return -1 for unknown names", func() {
		Expect(indexOf(Catalog(), "Pizza")).To(Equal(-1))
	})
})
