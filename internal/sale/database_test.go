package sale

import (
	"encoding/json"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"go.etcd.io/bbolt"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("SaveSale", func() {
		var (
			sale *Sale
			err  error
		)

		BeforeEach(func() {
			sale = &Sale{
				ID:        "sale-1",
				Amount:    decimal.RequireFromString("25.99"),
				Timestamp: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
			}
		})

		JustBeforeEach(func() {
			err = db.SaveSale(sale)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should store the amount as a JSON number", func() {
				var raw []byte
				Expect(db.db.View(func(tx *bbolt.Tx) error {
					raw = append(raw, tx.Bucket([]byte(salesBucket)).Get([]byte("sale-1"))...)
					return nil
				})).To(Succeed())

				var doc map[string]any
				Expect(json.Unmarshal(raw, &doc)).To(Succeed())
				Expect(doc["amount"]).To(BeNumerically("==", 25.99))
				Expect(doc).To(HaveKey("timestamp"))
			})
		})

		When("a sale with the same ID exists", func() {
			BeforeEach(func() {
				Expect(db.SaveSale(&Sale{ID: "sale-1", Amount: decimal.NewFromInt(1)})).To(Succeed())
			})

			It("returns the error", func() {
				Expect(err).To(MatchError("sale already exists: sale-1"))
			})

			It("should keep the original sale", func() {
				sales, listErr := db.ListSales()
				Expect(listErr).NotTo(HaveOccurred())
				Expect(sales).To(HaveLen(1))
				Expect(sales[0].Amount.String()).To(Equal("1"))
			})
		})
	})

	Describe("ListSales", func() {
		var (
			sales []*Sale
			err   error
		)

		JustBeforeEach(func() {
			sales, err = db.ListSales()
		})

		When("sales exist", func() {
			BeforeEach(func() {
				Expect(db.SaveSale(&Sale{
					ID:        "id1",
					Amount:    decimal.RequireFromString("10.10"),
					Timestamp: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
				})).To(Succeed())
				Expect(db.SaveSale(&Sale{
					ID:        "id2",
					Amount:    decimal.RequireFromString("0.3"),
					Timestamp: time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC),
				})).To(Succeed())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return all sales", func() {
				Expect(sales).To(HaveLen(2))
			})

			It("should round-trip amounts exactly", func() {
				Expect(sales[0].ID).To(Equal("id1"))
				Expect(sales[0].Amount.String()).To(Equal("10.1"))
				Expect(sales[1].Amount.String()).To(Equal("0.3"))
			})

			It("should round-trip timestamps", func() {
				Expect(sales[1].Timestamp).To(BeTemporally("==", time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)))
			})
		})

		When("no sales exist", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return an empty list", func() {
				Expect(sales).To(BeEmpty())
			})
		})

		When("a stored document is corrupt", func() {
			BeforeEach(func() {
				Expect(db.db.Update(func(tx *bbolt.Tx) error {
					return tx.Bucket([]byte(salesBucket)).Put([]byte("bad"), []byte("{"))
				})).To(Succeed())
			})

			It("returns the error", func() {
				Expect(err).To(MatchError(ContainSubstring("unmarshaling sale bad")))
			})
		})
	})

	Describe("NewBoltDB", func() {
		When("the file is reopened", func() {
			It("should keep earlier sales", func() {
				Expect(db.SaveSale(&Sale{ID: "kept", Amount: decimal.NewFromInt(3)})).To(Succeed())
				Expect(db.Close()).To(Succeed())

				var err error
				db, err = NewBoltDB(dbPath)
				Expect(err).NotTo(HaveOccurred())

				sales, err := db.ListSales()
				Expect(err).NotTo(HaveOccurred())
				Expect(sales).To(HaveLen(1))
			})
		})

		When("the directory does not exist", func() {
			It("returns the error", func() {
				_, err := NewBoltDB(filepath.Join(tmpDir, "missing", "test.db"))
				Expect(err).To(MatchError(ContainSubstring("opening boltdb")))
			})
		})
	})
})
