package localizer

import "strings"

// Kind is the classification of a stored URL value.
type Kind int

const (
	KindEmpty Kind = iota
	KindLocal
	KindExternal
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindLocal:
		return "local"
	case KindExternal:
		return "external"
	default:
		return "invalid"
	}
}

// DefaultLocalPrefixes mark values that already point into the upload tree.
var DefaultLocalPrefixes = []string{"/uploads/", "uploads/"}

// Classifier recognizes already-localized values by prefix.
type Classifier struct {
	LocalPrefixes []string
}

func NewClassifier(prefixes ...string) Classifier {
	if len(prefixes) == 0 {
		prefixes = DefaultLocalPrefixes
	}
	return Classifier{LocalPrefixes: prefixes}
}

// Classify never touches the network or the filesystem.
func (c Classifier) Classify(value string) Kind {
	value = strings.TrimSpace(value)
	if value == "" {
		return KindEmpty
	}
	for _, prefix := range c.LocalPrefixes {
		if strings.HasPrefix(value, prefix) {
			return KindLocal
		}
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return KindExternal
	}
	return KindInvalid
}
