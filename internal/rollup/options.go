package rollup

import "fmt"

// OrganicFilter selects the predicate that separates attempts made while a
// quote was still in play from organic activity after it bound.
type OrganicFilter string

const (
	// FilterLastEntryOrUnbound keeps attempts made on or before the quote's
	// last entry, plus every attempt on a quote that never bound.
	FilterLastEntryOrUnbound OrganicFilter = "last-entry-or-unbound"
	// FilterLastEntry keeps only attempts made on or before the last entry.
	FilterLastEntry OrganicFilter = "last-entry"
)

// OrderingKey selects the timestamp that numbers attempts within a quote.
type OrderingKey string

const (
	OrderByCreated  OrderingKey = "created"
	OrderByAssigned OrderingKey = "assigned"
)

// Options tune the engine. The zero value is not valid; start from DefaultOptions.
type Options struct {
	Filter       OrganicFilter
	OrderBy      OrderingKey
	UnknownLabel string
}

// DefaultOptions returns the canonical engine settings.
func DefaultOptions() Options {
	return Options{
		Filter:       FilterLastEntryOrUnbound,
		OrderBy:      OrderByCreated,
		UnknownLabel: DefaultLabel,
	}
}

// Validate rejects unknown modes and labels that collide with sentinels.
func (o Options) Validate() error {
	switch o.Filter {
	case FilterLastEntryOrUnbound, FilterLastEntry:
	default:
		return fmt.Errorf("unknown organic filter %q", o.Filter)
	}
	switch o.OrderBy {
	case OrderByCreated, OrderByAssigned:
	default:
		return fmt.Errorf("unknown ordering key %q", o.OrderBy)
	}
	if o.UnknownLabel == "" || o.UnknownLabel == All {
		return fmt.Errorf("unknown label must be non-empty and not %q", All)
	}
	return nil
}
