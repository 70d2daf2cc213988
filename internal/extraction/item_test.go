package extraction

import (
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

// fakeCategorizer knows a couple of keywords
type fakeCategorizer struct{}

func (fakeCategorizer) Categorize(name string) string {
	switch {
	case strings.Contains(name, "milk"), strings.Contains(name, "egg"):
		return "dairy"
	case strings.Contains(name, "bread"):
		return "bakery"
	default:
		return "pantry"
	}
}

func (f fakeCategorizer) ShelfLife(name string) int {
	switch f.Categorize(name) {
	case "dairy":
		return 7
	case "bakery":
		return 5
	default:
		return 14
	}
}

// sequentialIDs hands out id-1, id-2, ...
type sequentialIDs struct {
	n int
}

func (s *sequentialIDs) Generate() string {
	s.n++
	return fmt.Sprintf("id-%d", s.n)
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

var _ = Describe("Extractor", func() {
	var (
		extractor     *Extractor
		reconstructor *Reconstructor
		line          string
		item          *ExtractedItem
	)

	BeforeEach(func() {
		vocab := DefaultVocabulary()
		extractor = NewExtractor(vocab, fakeCategorizer{}, &sequentialIDs{})
		reconstructor = NewReconstructor(vocab.Confusions)
	})

	JustBeforeEach(func() {
		item = extractor.Extract(reconstructor.Reconstruct(line))
	})

	When("the line is a simple product", func() {
		BeforeEach(func() {
			line = "GV WHOLE MILK EA 3.49"
		})

		It("builds an item from the surviving tokens", func() {
			Expect(item).NotTo(BeNil())
			Expect(item.ID).To(Equal("id-1"))
			Expect(item.Name).To(Equal("Whole Milk"))
			Expect(item.Quantity).To(Equal(1))
			Expect(item.Unit).To(Equal("each"))
			Expect(item.Price.StringFixed(2)).To(Equal("3.49"))
			Expect(item.Category).To(Equal("dairy"))
			Expect(item.EstimatedShelfLife).To(Equal(7))
			Expect(item.Confidence).To(Equal(85))
		})
	})

	When("the name carries grading adjectives", func() {
		BeforeEach(func() {
			line = "ORGANIC FRESH BANANAS 1.29"
		})

		It("removes them", func() {
			Expect(item.Name).To(Equal("Bananas"))
		})
	})

	When("the line starts with a product code", func() {
		BeforeEach(func() {
			line = "007874235 CHEESE 2.99"
		})

		It("drops the code", func() {
			Expect(item.Name).To(Equal("Cheese"))
		})
	})

	When("the name is long", func() {
		BeforeEach(func() {
			line = "BIG RED DELICIOUS APPLE BAG 3.99"
		})

		It("keeps the first four tokens", func() {
			Expect(item.Name).To(Equal("Big Red Delicious Apple"))
		})
	})

	When("the price came from a three digit run", func() {
		BeforeEach(func() {
			line = "WHEAT BREAD 579"
		})

		It("scores it lower", func() {
			Expect(item.Price.StringFixed(2)).To(Equal("5.79"))
			Expect(item.Confidence).To(Equal(70))
		})
	})

	When("the name is a structural word", func() {
		BeforeEach(func() {
			line = "ORDER 4.99"
		})

		It("drops the line", func() {
			Expect(item).To(BeNil())
		})
	})

	When("only short noise remains", func() {
		BeforeEach(func() {
			line = "AB 3.49"
		})

		It("drops the line", func() {
			Expect(item).To(BeNil())
		})
	})

	When("there is no price", func() {
		BeforeEach(func() {
			line = "MILK"
		})

		It("drops the line", func() {
			Expect(item).To(BeNil())
		})
	})

	When("the price is exactly the lower bound", func() {
		BeforeEach(func() {
			line = "GUM 0.01"
		})

		It("rejects it", func() {
			Expect(item).To(BeNil())
		})
	})

	When("the price is exactly the upper bound", func() {
		BeforeEach(func() {
			line = "CAVIAR 100.00"
		})

		It("rejects it", func() {
			Expect(item).To(BeNil())
		})
	})

	When("the price is just inside the bounds", func() {
		BeforeEach(func() {
			line = "GUM 0.02"
		})

		It("keeps it", func() {
			Expect(item).NotTo(BeNil())
			Expect(item.Price.StringFixed(2)).To(Equal("0.02"))
		})
	})
})

var _ = Describe("Merger", func() {
	var merger *Merger

	BeforeEach(func() {
		merger = NewMerger()
	})

	It("merges repeated items and averages differing prices", func() {
		merger.Add(ExtractedItem{Name: "Milk", Quantity: 1, Price: price("3.50"), Confidence: 70})
		merger.Add(ExtractedItem{Name: "milk", Quantity: 1, Price: price("3.60"), Confidence: 85})

		items := merger.Items(20)
		Expect(items).To(HaveLen(1))
		Expect(items[0].Name).To(Equal("Milk"))
		Expect(items[0].Quantity).To(Equal(2))
		Expect(items[0].Price.StringFixed(2)).To(Equal("3.55"))
		Expect(items[0].Confidence).To(Equal(85))
	})

	It("keeps the price when occurrences are within a cent", func() {
		merger.Add(ExtractedItem{Name: "Milk", Quantity: 1, Price: price("3.50")})
		merger.Add(ExtractedItem{Name: "Milk", Quantity: 1, Price: price("3.51")})

		Expect(merger.Items(0)[0].Price.StringFixed(2)).To(Equal("3.50"))
	})

	It("weights the running mean by occurrence count", func() {
		merger.Add(ExtractedItem{Name: "Eggs", Quantity: 1, Price: price("3.00")})
		merger.Add(ExtractedItem{Name: "Eggs", Quantity: 1, Price: price("3.00")})
		merger.Add(ExtractedItem{Name: "Eggs", Quantity: 1, Price: price("6.00")})

		items := merger.Items(0)
		Expect(items[0].Quantity).To(Equal(3))
		Expect(items[0].Price.StringFixed(2)).To(Equal("4.00"))
	})

	It("truncates only when items are read", func() {
		for i := 0; i < 25; i++ {
			merger.Add(ExtractedItem{Name: fmt.Sprintf("Item %d", i), Quantity: 1})
		}
		Expect(merger.Items(20)).To(HaveLen(20))
		Expect(merger.Items(0)).To(HaveLen(25))
		Expect(merger.Items(20)[19].Name).To(Equal("Item 19"))
	})

	It("returns copies that do not alias merged state", func() {
		merger.Add(ExtractedItem{Name: "Milk", Quantity: 1, Price: price("3.50")})
		items := merger.Items(0)
		*items[0].Price = decimal.NewFromInt(9)
		Expect(merger.Items(0)[0].Price.StringFixed(2)).To(Equal("3.50"))
	})

	It("merges a batch in order", func() {
		merged := Merge([]ExtractedItem{
			{Name: "Bread", Quantity: 1},
			{Name: "Milk", Quantity: 1},
			{Name: "BREAD", Quantity: 1},
		})
		Expect(merged).To(HaveLen(2))
		Expect(merged[0].Name).To(Equal("Bread"))
		Expect(merged[0].Quantity).To(Equal(2))
	})
})
