// Package validate rejects malformed records and drops duplicates. Duplicate
// detection is fingerprint-based: the stable identifier when one exists, a
// hash of the normalized title plus source page otherwise.
package validate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/user/extraction-pipeline/internal/entity"
	"github.com/user/extraction-pipeline/internal/repository"
	"github.com/user/extraction-pipeline/pkg/utils"
)

// ErrDuplicate marks a record whose fingerprint was already seen this run (or
// within the cross-run window when a store is configured).
var ErrDuplicate = errors.New("validate: duplicate record")

// RejectionError carries why a record failed validation.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return "validate: rejected: " + e.Reason
}

// Rules configures validation for one target.
type Rules struct {
	// IDFields are tried in order as the stable identifier. The first one
	// present anchors the fingerprint.
	IDFields []string
	// Required fields must be present and, when also numeric, must parse.
	Required []string
	// Numeric fields are normalized and coerced to float64. A non-required
	// numeric field that fails to parse becomes absent, not a rejection.
	Numeric []string
	// TitleField is the fallback fingerprint ingredient when no ID field is
	// present. Defaults to "title".
	TitleField string
}

// Validator applies Rules and tracks fingerprints within a run. It is used by
// the single orchestrator goroutine; in-run state needs no lock.
type Validator struct {
	rules Rules
	seen  map[string]struct{}

	// Optional cross-run store with its expiry window.
	store    repository.FingerprintStore
	storeTTL time.Duration
}

// New builds a validator for one run.
func New(rules Rules) *Validator {
	if rules.TitleField == "" {
		rules.TitleField = "title"
	}
	return &Validator{
		rules: rules,
		seen:  make(map[string]struct{}),
	}
}

// WithStore attaches a cross-run fingerprint store. Fingerprints marked within
// ttl count as duplicates in this run too.
func (v *Validator) WithStore(store repository.FingerprintStore, ttl time.Duration) *Validator {
	v.store = store
	v.storeTTL = ttl
	return v
}

// Validate checks one raw record. It returns the validated record, or
// ErrDuplicate, or a *RejectionError naming the failed requirement.
func (v *Validator) Validate(ctx context.Context, raw entity.RawRecord) (*entity.ValidatedRecord, error) {
	fields := make(map[string]any, len(raw.Fields))
	for name, value := range raw.Fields {
		fields[name] = value
	}

	for _, name := range v.rules.Numeric {
		value, ok := raw.Fields[name]
		if !ok {
			continue
		}
		parsed, err := ParseNumber(value)
		if err != nil {
			if v.isRequired(name) {
				return nil, &RejectionError{Reason: fmt.Sprintf("required numeric field %q unparseable: %q", name, value)}
			}
			delete(fields, name)
			continue
		}
		fields[name] = parsed
	}

	for _, name := range v.rules.Required {
		if _, ok := fields[name]; !ok {
			return nil, &RejectionError{Reason: fmt.Sprintf("required field %q absent", name)}
		}
	}

	id, fingerprint := v.fingerprint(raw)
	if _, dup := v.seen[fingerprint]; dup {
		return nil, ErrDuplicate
	}
	if v.store != nil {
		seen, err := v.store.Seen(ctx, fingerprint)
		if err != nil {
			// A degraded store must not lose records; fall back to in-run
			// dedup only.
			slog.Warn("Fingerprint store lookup failed", "error", err)
		} else if seen {
			v.seen[fingerprint] = struct{}{}
			return nil, ErrDuplicate
		}
	}

	v.seen[fingerprint] = struct{}{}
	if v.store != nil {
		if err := v.store.Mark(ctx, fingerprint, v.storeTTL); err != nil {
			slog.Warn("Fingerprint store mark failed", "error", err)
		}
	}

	return &entity.ValidatedRecord{
		ID:          id,
		Fingerprint: fingerprint,
		Fields:      fields,
		Source:      raw.Source,
		ValidatedAt: time.Now(),
	}, nil
}

func (v *Validator) isRequired(name string) bool {
	for _, r := range v.rules.Required {
		if r == name {
			return true
		}
	}
	return false
}

// fingerprint derives the stable identity of a record. Records lacking every
// ID field fall back to normalized title plus source page.
func (v *Validator) fingerprint(raw entity.RawRecord) (id, fingerprint string) {
	for _, name := range v.rules.IDFields {
		if value := strings.TrimSpace(raw.Fields[name]); value != "" {
			return value, utils.Hash(name, value)
		}
	}
	title := utils.NormalizeText(raw.Fields[v.rules.TitleField])
	return "", utils.Hash(title, raw.Source.PageURL)
}

// currencyReplacer strips currency symbols and separators before numeric
// coercion.
var currencyReplacer = strings.NewReplacer(
	"$", "", "€", "", "£", "", "¥", "",
	"USD", "", "EUR", "", "GBP", "",
	",", "", " ", "", " ", "",
)

// ParseNumber applies the documented normalization (strip currency symbols and
// thousands separators) and coerces to float64.
func ParseNumber(s string) (float64, error) {
	cleaned := strings.TrimSpace(currencyReplacer.Replace(s))
	// Keep only the leading numeric run so suffixes like "4.8/5" or
	// "1299.99 to 1349.99" still yield their first number.
	end := 0
	for end < len(cleaned) {
		c := cleaned[end]
		if (c >= '0' && c <= '9') || c == '.' || (end == 0 && (c == '-' || c == '+')) {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, fmt.Errorf("no numeric content in %q", s)
	}
	return strconv.ParseFloat(cleaned[:end], 64)
}
