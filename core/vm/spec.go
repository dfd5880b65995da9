package vm

import (
	"fmt"
	"strings"
)

// SpecID identifies an Ethereum hardfork ruleset. Ordering is meaningful:
// a later spec enables everything an earlier one does.
type SpecID uint8

const (
	Frontier SpecID = iota
	Homestead
	TangerineWhistle
	SpuriousDragon
	Byzantium
	Constantinople
	Petersburg
	Istanbul
	Berlin
	London
	Merge
	Shanghai
	Cancun
	Prague
	Osaka

	// LatestSpec is the newest ruleset this package implements.
	LatestSpec = Osaka
)

var specNames = [...]string{
	Frontier:         "frontier",
	Homestead:        "homestead",
	TangerineWhistle: "tangerine",
	SpuriousDragon:   "spurious",
	Byzantium:        "byzantium",
	Constantinople:   "constantinople",
	Petersburg:       "petersburg",
	Istanbul:         "istanbul",
	Berlin:           "berlin",
	London:           "london",
	Merge:            "merge",
	Shanghai:         "shanghai",
	Cancun:           "cancun",
	Prague:           "prague",
	Osaka:            "osaka",
}

func (s SpecID) String() string {
	if int(s) < len(specNames) {
		return specNames[s]
	}
	return fmt.Sprintf("spec(%d)", uint8(s))
}

// Enabled reports whether fork is active under s.
func (s SpecID) Enabled(fork SpecID) bool { return s >= fork }

// ParseSpecID looks a spec up by its lowercase name.
func ParseSpecID(name string) (SpecID, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range specNames {
		if n == name {
			return SpecID(i), nil
		}
	}
	return 0, fmt.Errorf("unknown spec %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s SpecID) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SpecID) UnmarshalText(text []byte) error {
	id, err := ParseSpecID(string(text))
	if err != nil {
		return err
	}
	*s = id
	return nil
}
