// Package recipients loads the campaign roster from CSV files: one
// address per row in column 0, an optional display name in column 1.
// Rows are validated, deduplicated first-occurrence-wins and returned
// in file order, so a run always walks the roster the way the operator
// wrote it.
package recipients

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ignite/bulksend/internal/domain"
	"github.com/ignite/bulksend/internal/pkg/logger"
)

var (
	ErrNoSources    = errors.New("no recipient sources given")
	ErrNoRecipients = errors.New("no valid recipients found")
)

// Common spellings of an email header cell, normalized form.
var emailHeaderAliases = map[string]bool{
	"email":            true,
	"email_address":    true,
	"e_mail":           true,
	"emailaddress":     true,
	"mail":             true,
	"subscriber_email": true,
}

// Roster is the validated recipient list for one run.
type Roster struct {
	Recipients        []domain.Recipient
	InvalidSkipped    int
	DuplicatesRemoved int
	Sources           []string
}

// Supplier reads recipient rosters from CSV sources.
type Supplier struct {
	emailRegex *regexp.Regexp
}

// NewSupplier creates a roster supplier.
func NewSupplier() *Supplier {
	return &Supplier{
		emailRegex: regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`),
	}
}

// Load reads the given CSV files in argument order and merges them into
// a single roster. Deduplication is exact-string on the full address and
// spans files; the first occurrence wins and keeps its position.
func (s *Supplier) Load(paths ...string) (*Roster, error) {
	if len(paths) == 0 {
		return nil, ErrNoSources
	}

	roster := &Roster{}
	seen := make(map[string]bool)
	for _, path := range paths {
		if err := s.loadFile(path, roster, seen); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	logger.Info("roster loaded",
		"sources", len(roster.Sources),
		"recipients", len(roster.Recipients),
		"invalid_skipped", roster.InvalidSkipped,
		"duplicates_removed", roster.DuplicatesRemoved)

	return roster, nil
}

// LoadGlob expands pattern and loads the matches. Matches are sorted
// lexically so repeated runs see the same roster order.
func (s *Supplier) LoadGlob(pattern string) (*Roster, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad glob pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: glob %q matched no files", ErrNoSources, pattern)
	}
	sort.Strings(matches)
	return s.Load(matches...)
}

func (s *Supplier) loadFile(path string, roster *Roster, seen map[string]bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // Allow variable fields
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("parse csv: %w", err)
		}
		if len(record) == 0 {
			continue
		}

		address := strings.TrimSpace(record[0])

		// A first row carrying a known header spelling is a header, not data.
		if first {
			first = false
			if emailHeaderAliases[normalizeHeader(address)] {
				continue
			}
		}

		if !s.emailRegex.MatchString(address) {
			roster.InvalidSkipped++
			logger.Debug("skipping invalid address", "source", path, "address", address)
			continue
		}
		if seen[address] {
			roster.DuplicatesRemoved++
			continue
		}
		seen[address] = true

		r := domain.Recipient{Address: address}
		if len(record) > 1 {
			r.AuxiliaryData = strings.TrimSpace(record[1])
		}
		roster.Recipients = append(roster.Recipients, r)
	}

	roster.Sources = append(roster.Sources, path)
	return nil
}

func normalizeHeader(header string) string {
	normalized := strings.ToLower(strings.TrimSpace(header))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")
	return normalized
}
