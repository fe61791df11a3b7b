package core

import (
	"sort"
)

// DefaultSamplePercent is the share of the sorted rows proposed for counting
// when no resume token is given.
const DefaultSamplePercent = 25

// SelectQuery controls which enriched rows make it into the sample.
type SelectQuery struct {
	// Store is the exact, case-sensitive display name to keep. Empty means
	// every store.
	Store string
	// ResumeToken is the last barcode of the previous proposal.
	ResumeToken string
	CursorMode  CursorMode
	// SamplePercent applies only without a resume token.
	SamplePercent int
	// UnassignedStore labels rows with no directory match in multi-store mode.
	UnassignedStore string
}

// MultiStore reports whether the query covers every store.
func (q SelectQuery) MultiStore() bool {
	return q.Store == ""
}

// Selection is the output of Select.
type Selection struct {
	Rows      []EnrichedRecord
	StoreRows int // rows left after the store filter, before sampling
}

// Select filters records to the requested store, sorts them by barcode and
// takes the sample.
//
// Rows are ordered by barcode, then store name, then UPC, then source line,
// so repeated runs over the same input pick the same rows. Without a resume
// token the first floor(N*SamplePercent/100) rows are kept. With one, the
// cursor mode decides: CursorAfter keeps every row whose barcode sorts
// strictly after the token, CursorExact only rows equal to it.
//
// The store name field must exist even in multi-store mode, since that is
// what rows are grouped by; otherwise the result is a *NoSuchStoreError.
func Select(records []EnrichedRecord, stores *StoreDirectory, q SelectQuery) (*Selection, error) {
	if !stores.HasName() {
		return nil, &NoSuchStoreError{Store: q.Store}
	}

	rows := make([]EnrichedRecord, 0, len(records))
	for _, rec := range records {
		name := rec.StoreName()
		if q.MultiStore() {
			if name == "" {
				name = q.UnassignedStore
			}
		} else if name != q.Store {
			continue
		}
		rec.StoreGroup = name
		rows = append(rows, rec)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Barcode != b.Barcode {
			return a.Barcode < b.Barcode
		}
		if a.StoreGroup != b.StoreGroup {
			return a.StoreGroup < b.StoreGroup
		}
		if a.UPC != b.UPC {
			return a.UPC < b.UPC
		}
		return a.Line < b.Line
	})

	sel := &Selection{StoreRows: len(rows)}
	if q.ResumeToken == "" {
		sel.Rows = rows[:sampleSize(len(rows), q.SamplePercent)]
		return sel, nil
	}

	mode := q.CursorMode
	if mode == "" {
		mode = CursorAfter
	}
	// Rows are sorted by barcode, so the matching rows form one contiguous run.
	start := sort.Search(len(rows), func(i int) bool {
		if mode == CursorExact {
			return rows[i].Barcode >= q.ResumeToken
		}
		return rows[i].Barcode > q.ResumeToken
	})
	end := len(rows)
	if mode == CursorExact {
		end = start
		for end < len(rows) && rows[end].Barcode == q.ResumeToken {
			end++
		}
	}
	sel.Rows = rows[start:end]
	return sel, nil
}

// sampleSize returns floor(n*percent/100) in integer arithmetic.
func sampleSize(n, percent int) int {
	if percent <= 0 {
		percent = DefaultSamplePercent
	}
	if percent > 100 {
		percent = 100
	}
	return n * percent / 100
}
