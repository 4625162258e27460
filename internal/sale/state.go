package sale

import (
	"encoding/json"
	"errors"
	"fmt"
)

// itemsKey is the single storage key holding the serialized item list
const itemsKey = "cashierItems.json"

// loadItems reads the persisted item list. ok is false when nothing was stored.
// Malformed content is an error, not a silent reset.
func loadItems(storage Storage) (items []LineItem, ok bool, err error) {
	data, err := storage.Get(itemsKey)
	if errors.Is(err, ErrFileNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading item state: %w", err)
	}

	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false, fmt.Errorf("decoding item state: %w", err)
	}
	if len(items) == 0 {
		return nil, false, nil
	}
	return items, true, nil
}

// saveItems overwrites the persisted item list
func saveItems(storage Storage, items []LineItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding item state: %w", err)
	}
	if _, err := storage.Save(itemsKey, data); err != nil {
		return fmt.Errorf("writing item state: %w", err)
	}
	return nil
}
