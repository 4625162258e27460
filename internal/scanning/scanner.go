package scanning

import "github.com/shopspring/decimal"

// TicketLine is a single item and price read off an order ticket
type TicketLine struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// TicketData contains the lines extracted from an order ticket
type TicketData struct {
	Items []TicketLine `json:"items"`
}

// Scanner defines the interface for ticket scanning operations
type Scanner interface {
	// ScanTicket analyzes a ticket image/PDF and extracts its priced lines
	ScanTicket(imageData []byte, contentType string) (*TicketData, error)
	// Close closes the scanner and releases resources
	Close() error
}
