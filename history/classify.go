package history

import "strings"

// Kind is the role a record plays for lot accounting.
type Kind int

const (
	Transfer Kind = iota
	Acquisition
	Disposal
)

func (k Kind) String() string {
	switch k {
	case Acquisition:
		return "acquisition"
	case Disposal:
		return "disposal"
	default:
		return "transfer"
	}
}

// Classifier decides a record's Kind from its counterparties. Each list holds
// case-insensitive name prefixes.
type Classifier struct {
	Self      []string `toml:"self"`
	Exchanges []string `toml:"exchanges"`
	Entities  []string `toml:"entities"`
}

// DefaultClassifier returns the prefixes used when no configuration is given.
func DefaultClassifier() Classifier {
	return Classifier{
		Self:      []string{"self", "me"},
		Exchanges: []string{"ex-", "coinbase"},
		Entities:  []string{"entity"},
	}
}

// Classify returns Acquisition when assets come from an exchange or entity,
// Disposal when they go to one, and Transfer otherwise.
func (c Classifier) Classify(r Record) Kind {
	switch {
	case c.IsCounterparty(r.From):
		return Acquisition
	case c.IsCounterparty(r.To):
		return Disposal
	default:
		return Transfer
	}
}

// IsCounterparty reports whether name is an exchange or entity.
func (c Classifier) IsCounterparty(name string) bool {
	return hasPrefix(name, c.Exchanges) || hasPrefix(name, c.Entities)
}

// IsSelf reports whether name is one of our own accounts.
func (c Classifier) IsSelf(name string) bool {
	return hasPrefix(name, c.Self)
}

func hasPrefix(name string, prefixes []string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false
	}
	for _, p := range prefixes {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
