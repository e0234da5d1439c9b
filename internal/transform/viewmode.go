package transform

import (
	"fmt"
	"strings"
)

// ViewMode selects the single detail panel shown for an opportunity.
type ViewMode int

const (
	ViewSummary ViewMode = iota
	ViewConversation
	ViewQuote
)

var viewModeNames = [...]string{"summary", "conversation", "quote"}

func (v ViewMode) String() string {
	if v < 0 || int(v) >= len(viewModeNames) {
		return fmt.Sprintf("ViewMode(%d)", int(v))
	}
	return viewModeNames[v]
}

// ParseViewMode accepts the names above, case-insensitively. Empty means summary.
func ParseViewMode(s string) (ViewMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ViewSummary, nil
	}
	for i, name := range viewModeNames {
		if name == s {
			return ViewMode(i), nil
		}
	}
	return ViewSummary, fmt.Errorf("unknown view mode %q", s)
}

func (v ViewMode) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *ViewMode) UnmarshalText(b []byte) error {
	mode, err := ParseViewMode(string(b))
	if err != nil {
		return err
	}
	*v = mode
	return nil
}
