package sale

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.etcd.io/bbolt"
)

const salesBucket = "sales"

// DB is the append-only sales collection
type DB interface {
	// SaveSale appends a sale to the collection
	SaveSale(sale *Sale) error

	// ListSales returns every sale, in no particular order
	ListSales() ([]*Sale, error)

	// Close closes the database connection
	Close() error
}

// saleDocument is the stored form of a Sale, amount as a JSON number
type saleDocument struct {
	Amount    json.Number `json:"amount"`
	Timestamp time.Time   `json:"timestamp"`
}

// BoltDB implements DB on a bbolt file
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens (or creates) the database file and its sales bucket
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(salesBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveSale stores a sale under its ID. Existing IDs are never overwritten.
func (b *BoltDB) SaveSale(sale *Sale) error {
	data, err := json.Marshal(saleDocument{
		Amount:    json.Number(sale.Amount.String()),
		Timestamp: sale.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshaling sale: %w", err)
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(salesBucket))
		if bucket.Get([]byte(sale.ID)) != nil {
			return fmt.Errorf("sale already exists: %s", sale.ID)
		}
		return bucket.Put([]byte(sale.ID), data)
	})
}

// ListSales scans the whole sales bucket
func (b *BoltDB) ListSales() ([]*Sale, error) {
	sales := make([]*Sale, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(salesBucket))
		return bucket.ForEach(func(k, v []byte) error {
			var doc saleDocument
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("unmarshaling sale %s: %w", k, err)
			}
			amount, err := decimal.NewFromString(doc.Amount.String())
			if err != nil {
				return fmt.Errorf("parsing amount of sale %s: %w", k, err)
			}
			sales = append(sales, &Sale{
				ID:        string(k),
				Amount:    amount,
				Timestamp: doc.Timestamp,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return sales, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
