package receipt

import (
	"context"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/pantry-tracker/internal/extraction"
	"github.com/zombor/pantry-tracker/internal/inventory"
)

var _ = Describe("BoltDB", func() {
	var (
		dbPath string
		db     *BoltDB
	)

	newRun := func(id string, created time.Time) *Run {
		return &Run{
			ID:     id,
			Source: SourceReceipt,
			Result: extraction.ProcessingResult{
				ReceiptID:    id,
				StoreName:    "Kroger",
				PurchaseDate: "2025-10-05",
				TotalAmount:  money("13.99"),
				Items: []extraction.ExtractedItem{
					{ID: "i1", Name: "Milk", Quantity: 2, Unit: "each", Price: money("3.55"), Category: "dairy", EstimatedShelfLife: 7, Confidence: 85},
				},
				Confidence: 85,
			},
			Images:    []StoredImage{{Filename: id + "_0_r.jpg", ContentType: "image/jpeg"}},
			CreatedAt: created,
			UpdatedAt: created,
		}
	}

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("SaveRun and GetRun", func() {
		It("round trips a run", func() {
			run := newRun("a", time.Date(2025, 10, 5, 12, 0, 0, 0, time.UTC))
			Expect(db.SaveRun(run)).To(Succeed())

			got, err := db.GetRun("a")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal("a"))
			Expect(got.Result.StoreName).To(Equal("Kroger"))
			Expect(got.Result.Items).To(HaveLen(1))
			Expect(got.Result.Items[0].Price.Equal(*money("3.55"))).To(BeTrue())
			Expect(got.Result.TotalAmount.Equal(*money("13.99"))).To(BeTrue())
			Expect(got.Images).To(Equal(run.Images))
			Expect(got.CreatedAt.Equal(run.CreatedAt)).To(BeTrue())
			Expect(got.Committed()).To(BeFalse())
		})

		It("overwrites a run with the same ID", func() {
			run := newRun("a", time.Now())
			Expect(db.SaveRun(run)).To(Succeed())
			run.Reviewed = true
			run.ReviewItems = []extraction.ExtractedItem{{ID: "x", Name: "Bread", Quantity: 1}}
			Expect(db.SaveRun(run)).To(Succeed())

			got, err := db.GetRun("a")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ReviewItems).To(HaveLen(1))
			Expect(got.Items()[0].Name).To(Equal("Bread"))
		})

		It("returns ErrNotFound for an unknown run", func() {
			_, err := db.GetRun("missing")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Describe("ListRuns", func() {
		It("returns an empty list when there are no runs", func() {
			runs, err := db.ListRuns()
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).NotTo(BeNil())
			Expect(runs).To(BeEmpty())
		})

		It("returns runs newest first", func() {
			base := time.Date(2025, 10, 5, 12, 0, 0, 0, time.UTC)
			Expect(db.SaveRun(newRun("old", base))).To(Succeed())
			Expect(db.SaveRun(newRun("new", base.Add(time.Hour)))).To(Succeed())
			Expect(db.SaveRun(newRun("mid", base.Add(time.Minute)))).To(Succeed())

			runs, err := db.ListRuns()
			Expect(err).NotTo(HaveOccurred())
			ids := make([]string, 0, len(runs))
			for _, r := range runs {
				ids = append(ids, r.ID)
			}
			Expect(ids).To(Equal([]string{"new", "mid", "old"}))
		})
	})

	Describe("DeleteRun", func() {
		It("removes the run", func() {
			Expect(db.SaveRun(newRun("a", time.Now()))).To(Succeed())
			Expect(db.DeleteRun("a")).To(Succeed())

			_, err := db.GetRun("a")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Describe("Commit", func() {
		It("records the commit in the local log", func() {
			err := db.Commit(context.Background(), inventory.CommitRequest{
				ReceiptID:    "a",
				Items:        []extraction.ExtractedItem{{ID: "i1", Name: "Milk", Quantity: 1, Price: money("3.49")}},
				PurchaseDate: "2025-10-05",
			})
			Expect(err).NotTo(HaveOccurred())

			commit, err := db.GetCommit("a")
			Expect(err).NotTo(HaveOccurred())
			Expect(commit.PurchaseDate).To(Equal("2025-10-05"))
			Expect(commit.Items).To(HaveLen(1))
			Expect(commit.Items[0].Price.Equal(*money("3.49"))).To(BeTrue())
		})

		It("refuses to write after the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			Expect(db.Commit(ctx, inventory.CommitRequest{ReceiptID: "a"})).To(MatchError(context.Canceled))

			_, err := db.GetCommit("a")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Describe("persistence", func() {
		It("keeps runs across reopen", func() {
			Expect(db.SaveRun(newRun("a", time.Now()))).To(Succeed())
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())
			_, err = db.GetRun("a")
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
