package history

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AddressBook maps raw counterparty identifiers to names. Ethereum addresses
// are matched regardless of checksum casing.
type AddressBook struct {
	names map[string]string
}

// NewAddressBook creates an address book from an address -> name mapping.
func NewAddressBook(entries map[string]string) *AddressBook {
	ab := &AddressBook{names: make(map[string]string, len(entries))}
	for addr, name := range entries {
		ab.names[normalizeAddress(addr)] = name
	}
	return ab
}

// LoadAddressBook reads a JSON object of address -> name.
func LoadAddressBook(r io.Reader) (*AddressBook, error) {
	var entries map[string]string
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode address book: %w", err)
	}
	return NewAddressBook(entries), nil
}

// LoadAddressBookFile is LoadAddressBook for a file path.
func LoadAddressBookFile(path string) (*AddressBook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ab, err := LoadAddressBook(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ab, nil
}

// Len returns the number of entries.
func (ab *AddressBook) Len() int {
	if ab == nil {
		return 0
	}
	return len(ab.names)
}

// Resolve returns the name for id, or id unchanged when it is unknown.
func (ab *AddressBook) Resolve(id string) string {
	if ab == nil {
		return id
	}
	if name, ok := ab.names[normalizeAddress(id)]; ok {
		return name
	}
	return id
}

// Apply resolves the From and To fields of every record in place.
func (ab *AddressBook) Apply(records []Record) {
	if ab.Len() == 0 {
		return
	}
	for i := range records {
		records[i].From = ab.Resolve(records[i].From)
		records[i].To = ab.Resolve(records[i].To)
	}
}

func normalizeAddress(id string) string {
	id = strings.TrimSpace(id)
	if common.IsHexAddress(id) {
		return common.HexToAddress(id).Hex()
	}
	return id
}
