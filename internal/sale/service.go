package sale

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zombor/cashier/internal/scanning"
)

var (
	// ErrInvalidTotal is returned when submitting a sale whose total is not positive
	ErrInvalidTotal = errors.New("total must be greater than 0")

	// ErrItemNotFound is returned for an item index outside the catalog
	ErrItemNotFound = errors.New("item not found")

	// ErrNoScanner is returned by ScanTicket when no scanner is configured
	ErrNoScanner = errors.New("ticket scanning is not configured")
)

// imagePrefix is the URL path under which uploaded item images are served
const imagePrefix = "/api/images/"

// IDGenerator generates unique IDs for sales and uploads
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Snapshot is the item list together with its total
type Snapshot struct {
	Items []LineItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// ScanResult is the item list after applying a scanned ticket
type ScanResult struct {
	Snapshot
	Unmatched []string `json:"unmatched"`
}

// Service owns the till: the item list, its persisted mirror, and the sales collection
type Service struct {
	db          DB
	storage     Storage
	scanner     scanning.Scanner
	notifier    Notifier
	idGenerator IDGenerator
	timeSource  TimeSource
	location    *time.Location

	mu    sync.Mutex
	items []LineItem
}

// NewService creates a Service with UUID sale IDs and the wall clock.
// scanner may be nil when ticket scanning is disabled.
func NewService(db DB, storage Storage, scanner scanning.Scanner) (*Service, error) {
	return NewServiceWithDeps(db, storage, scanner, uuidGenerator{}, defaultTimeSource{})
}

// NewServiceWithDeps creates a Service with custom dependencies for testing.
// The item list is restored from storage, or seeded from the catalog.
func NewServiceWithDeps(db DB, storage Storage, scanner scanning.Scanner, idGen IDGenerator, timeSrc TimeSource) (*Service, error) {
	items, ok, err := loadItems(storage)
	if err != nil {
		return nil, err
	}
	if !ok {
		items = Catalog()
	}

	s := &Service{
		db:          db,
		storage:     storage,
		scanner:     scanner,
		notifier:    nopNotifier{},
		idGenerator: idGen,
		timeSource:  timeSrc,
		location:    time.Local,
		items:       items,
	}

	// Mirror immediately so the stored list always exists after start
	if err := saveItems(storage, items); err != nil {
		return nil, err
	}
	return s, nil
}

// SetNotifier registers the receiver of change events
func (s *Service) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	s.notifier = n
}

// SetLocation sets the time zone used to bucket revenue by day and month
func (s *Service) SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.Local
	}
	s.location = loc
}

func snapshot(items []LineItem) Snapshot {
	return Snapshot{
		Items: append([]LineItem(nil), items...),
		Total: Total(items),
	}
}

// Items returns a copy of the current item list and its total
func (s *Service) Items() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.items)
}

// commit persists next and makes it current. Caller holds s.mu.
func (s *Service) commit(next []LineItem) error {
	if err := saveItems(s.storage, next); err != nil {
		return err
	}
	prev := s.items
	s.items = next
	s.releaseImages(prev, next)
	return nil
}

// releaseImages deletes uploaded images that prev referenced and next no longer does
func (s *Service) releaseImages(prev, next []LineItem) {
	kept := make(map[string]bool, len(next))
	for _, item := range next {
		kept[item.Image] = true
	}
	for _, item := range prev {
		name, ok := uploadedImage(item.Image)
		if !ok || kept[item.Image] {
			continue
		}
		if err := s.storage.Delete(name); err != nil {
			slog.Warn("Failed to delete item image", "filename", name, "error", err)
		}
	}
}

// uploadedImage returns the stored file name behind an image URL made by UploadImage.
// Any other URL, including one naming the item state file, is not ours to delete.
func uploadedImage(url string) (string, bool) {
	name, ok := strings.CutPrefix(url, imagePrefix)
	if !ok || name == itemsKey || strings.ContainsAny(name, "/\\") {
		return "", false
	}
	if !strings.HasPrefix(name, "item-") || !strings.HasSuffix(name, ".png") {
		return "", false
	}
	return name, true
}

// update applies fn to the item at index, leaving every other item untouched
func (s *Service) update(index int, fn func(item *LineItem)) (Snapshot, error) {
	s.mu.Lock()
	if index < 0 || index >= len(s.items) {
		s.mu.Unlock()
		return Snapshot{}, fmt.Errorf("%w: %d", ErrItemNotFound, index)
	}

	next := append([]LineItem(nil), s.items...)
	fn(&next[index])
	if err := s.commit(next); err != nil {
		s.mu.Unlock()
		return Snapshot{}, err
	}
	snap := snapshot(next)
	s.mu.Unlock()

	s.notifyItems(snap)
	return snap, nil
}

// SetPrice replaces the price of the item at index
func (s *Service) SetPrice(index int, price string) (Snapshot, error) {
	return s.update(index, func(item *LineItem) {
		item.Price = price
	})
}

// SetImage replaces the image URL of the item at index
func (s *Service) SetImage(index int, url string) (Snapshot, error) {
	return s.update(index, func(item *LineItem) {
		item.Image = url
	})
}

// UpdateItem sets whichever of price and image are non-nil in one change
func (s *Service) UpdateItem(index int, price, image *string) (Snapshot, error) {
	return s.update(index, func(item *LineItem) {
		if price != nil {
			item.Price = *price
		}
		if image != nil {
			item.Image = *image
		}
	})
}

// Reset restores the catalog, clearing every price and image
func (s *Service) Reset() (Snapshot, error) {
	s.mu.Lock()
	next := Catalog()
	if err := s.commit(next); err != nil {
		s.mu.Unlock()
		return Snapshot{}, err
	}
	snap := snapshot(next)
	s.mu.Unlock()

	s.notifyItems(snap)
	return snap, nil
}

// Submit records a sale for the current total and resets the item list
func (s *Service) Submit() (*Sale, error) {
	s.mu.Lock()
	total := Total(s.items)
	if !total.IsPositive() {
		s.mu.Unlock()
		return nil, ErrInvalidTotal
	}

	sale := &Sale{
		ID:        s.idGenerator.Generate(),
		Amount:    total,
		Timestamp: s.timeSource.Now().UTC(),
	}
	if err := s.db.SaveSale(sale); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("saving sale: %w", err)
	}

	// The sale is stored; a failed state write only loses the reset on restart
	next := Catalog()
	if err := s.commit(next); err != nil {
		slog.Error("Failed to persist item reset", "sale_id", sale.ID, "error", err)
		s.items = next
	}
	snap := snapshot(next)
	s.mu.Unlock()

	slog.Info("Sale submitted", "sale_id", sale.ID, "amount", sale.Amount.StringFixed(2))

	event := Event{Type: EventSaleSubmitted, Sale: sale}
	if rev, err := s.Revenue(); err != nil {
		slog.Error("Error loading revenue after sale", "error", err)
	} else {
		event.Revenue = &rev
	}
	s.notifier.Notify(event)
	s.notifyItems(snap)

	return sale, nil
}

// Revenue reads every sale and buckets it into today and this month
func (s *Service) Revenue() (Revenue, error) {
	sales, err := s.db.ListSales()
	if err != nil {
		return Revenue{}, fmt.Errorf("listing sales: %w", err)
	}
	return Aggregate(sales, s.timeSource.Now(), s.location), nil
}

// ListSales returns every recorded sale
func (s *Service) ListSales() ([]*Sale, error) {
	sales, err := s.db.ListSales()
	if err != nil {
		return nil, fmt.Errorf("listing sales: %w", err)
	}
	return sales, nil
}

// UploadImage stores an uploaded picture as PNG and points the item at it
func (s *Service) UploadImage(index int, data []byte, contentType string) (Snapshot, error) {
	s.mu.Lock()
	inRange := index >= 0 && index < len(s.items)
	s.mu.Unlock()
	if !inRange {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrItemNotFound, index)
	}

	pngData, _, err := scanning.ToPNG(data, contentType)
	if err != nil {
		return Snapshot{}, err
	}

	name, err := s.storage.Save(fmt.Sprintf("item-%d-%s.png", index, s.idGenerator.Generate()), pngData)
	if err != nil {
		return Snapshot{}, fmt.Errorf("saving image: %w", err)
	}

	snap, err := s.SetImage(index, imagePrefix+name)
	if err != nil {
		s.storage.Delete(name)
		return Snapshot{}, err
	}
	return snap, nil
}

// GetImage returns a stored item image
func (s *Service) GetImage(name string) ([]byte, error) {
	if name == itemsKey {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	data, err := s.storage.Get(name)
	if err != nil {
		return nil, fmt.Errorf("getting image: %w", err)
	}
	return data, nil
}

// ScanTicket reads a ticket photo and fills in the prices of the items it names
func (s *Service) ScanTicket(data []byte, contentType string) (*ScanResult, error) {
	if s.scanner == nil {
		return nil, ErrNoScanner
	}

	ticket, err := s.scanner.ScanTicket(data, contentType)
	if err != nil {
		slog.Error("Failed to scan ticket",
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return nil, fmt.Errorf("scanning ticket: %w", err)
	}

	s.mu.Lock()
	next := append([]LineItem(nil), s.items...)
	unmatched := make([]string, 0)
	scanned := make(map[int]decimal.Decimal)
	for _, line := range ticket.Items {
		i := indexOf(next, line.Name)
		if i < 0 {
			unmatched = append(unmatched, line.Name)
			continue
		}
		// Repeated lines for one item add up
		price := line.Price
		if prior, ok := scanned[i]; ok {
			price = prior.Add(price)
		}
		scanned[i] = price
		next[i].Price = price.String()
	}
	if err := s.commit(next); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	snap := snapshot(next)
	s.mu.Unlock()

	s.notifyItems(snap)
	return &ScanResult{Snapshot: snap, Unmatched: unmatched}, nil
}

func (s *Service) notifyItems(snap Snapshot) {
	total := snap.Total
	s.notifier.Notify(Event{Type: EventItemsUpdated, Items: snap.Items, Total: &total})
}
