package validate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/extraction-pipeline/internal/entity"
)

func listingRules() Rules {
	return Rules{
		IDFields: []string{"url"},
		Required: []string{"title", "url"},
		Numeric:  []string{"price", "rating"},
	}
}

func raw(fields map[string]string) entity.RawRecord {
	return entity.RawRecord{
		Fields: fields,
		Source: entity.Provenance{PageURL: "https://shop.test/search?page=1", Page: 1},
	}
}

func TestValidRecordPasses(t *testing.T) {
	v := New(listingRules())

	rec, err := v.Validate(context.Background(), raw(map[string]string{
		"title": "Widget",
		"url":   "https://shop.test/p/1",
		"price": "$1,299.99",
	}))
	require.NoError(t, err)
	assert.Equal(t, "https://shop.test/p/1", rec.ID)
	assert.Equal(t, 1299.99, rec.Fields["price"])
	assert.NotEmpty(t, rec.Fingerprint)
}

func TestMissingRequiredFieldRejects(t *testing.T) {
	v := New(listingRules())

	_, err := v.Validate(context.Background(), raw(map[string]string{
		"url": "https://shop.test/p/1",
	}))
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Contains(t, rej.Reason, "title")
}

func TestRequiredNumericMustParse(t *testing.T) {
	rules := listingRules()
	rules.Required = append(rules.Required, "price")
	v := New(rules)

	_, err := v.Validate(context.Background(), raw(map[string]string{
		"title": "Widget",
		"url":   "https://shop.test/p/1",
		"price": "call for pricing",
	}))
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Contains(t, rej.Reason, "price")
}

func TestOptionalNumericUnparseableBecomesAbsent(t *testing.T) {
	v := New(listingRules())

	rec, err := v.Validate(context.Background(), raw(map[string]string{
		"title":  "Widget",
		"url":    "https://shop.test/p/1",
		"rating": "no ratings yet",
	}))
	require.NoError(t, err)
	_, ok := rec.Fields["rating"]
	assert.False(t, ok)
}

func TestDuplicateByStableID(t *testing.T) {
	v := New(listingRules())
	fields := map[string]string{"title": "Widget", "url": "https://shop.test/p/1"}

	_, err := v.Validate(context.Background(), raw(fields))
	require.NoError(t, err)

	// Same ID on a later page is still the same record.
	dup := entity.RawRecord{
		Fields: map[string]string{"title": "Widget (renamed)", "url": "https://shop.test/p/1"},
		Source: entity.Provenance{PageURL: "https://shop.test/search?page=3", Page: 3},
	}
	_, err = v.Validate(context.Background(), dup)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestFingerprintFallsBackToTitleAndPage(t *testing.T) {
	v := New(Rules{Required: []string{"title"}})

	first, err := v.Validate(context.Background(), raw(map[string]string{"title": "Acme  WIDGET "}))
	require.NoError(t, err)
	assert.Empty(t, first.ID)

	// Case and whitespace differences collapse to the same fingerprint.
	_, err = v.Validate(context.Background(), raw(map[string]string{"title": "acme widget"}))
	assert.ErrorIs(t, err, ErrDuplicate)

	// Same title on a different page is a distinct record.
	other := entity.RawRecord{
		Fields: map[string]string{"title": "acme widget"},
		Source: entity.Provenance{PageURL: "https://shop.test/search?page=2", Page: 2},
	}
	_, err = v.Validate(context.Background(), other)
	assert.NoError(t, err)
}

// fakeStore is an in-memory cross-run fingerprint store.
type fakeStore struct {
	marked map[string]bool
	fail   bool
}

func (f *fakeStore) Seen(ctx context.Context, fp string) (bool, error) {
	if f.fail {
		return false, errors.New("store down")
	}
	return f.marked[fp], nil
}

func (f *fakeStore) Mark(ctx context.Context, fp string, ttl time.Duration) error {
	if f.fail {
		return errors.New("store down")
	}
	f.marked[fp] = true
	return nil
}

func TestCrossRunStoreDeduplicates(t *testing.T) {
	store := &fakeStore{marked: map[string]bool{}}
	fields := map[string]string{"title": "Widget", "url": "https://shop.test/p/1"}

	run1 := New(listingRules()).WithStore(store, time.Hour)
	_, err := run1.Validate(context.Background(), raw(fields))
	require.NoError(t, err)

	run2 := New(listingRules()).WithStore(store, time.Hour)
	_, err = run2.Validate(context.Background(), raw(fields))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestDegradedStoreNeverLosesRecords(t *testing.T) {
	store := &fakeStore{marked: map[string]bool{}, fail: true}
	v := New(listingRules()).WithStore(store, time.Hour)

	rec, err := v.Validate(context.Background(), raw(map[string]string{
		"title": "Widget", "url": "https://shop.test/p/1",
	}))
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"$1,299.99", 1299.99},
		{"€1 234.50", 1234.50},
		{"USD 42", 42},
		{"4.8/5", 4.8},
		{"1299.99 to 1349.99", 1299.99},
		{"-3.5", -3.5},
	}
	for _, c := range cases {
		got, err := ParseNumber(c.in)
		require.NoError(t, err, "input %q", c.in)
		assert.Equal(t, c.want, got, "input %q", c.in)
	}

	_, err := ParseNumber("free shipping")
	assert.Error(t, err)
}
