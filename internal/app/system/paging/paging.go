// internal/app/system/paging/paging.go
//
// Package paging implements keyset (cursor) pagination over Mongo
// collections. Pages are anchored on a (sort key, _id) pair encoded
// into an opaque cursor string, so inserts and deletes between requests
// never shift page boundaries the way skip/limit does.
package paging

import (
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the number of rows a paged listing returns.
const PageSize = 50

// LimitPlusOne is the fetch limit for look-ahead pagination: one extra
// row past the page tells us whether another page exists.
func LimitPlusOne() int64 { return PageSize + 1 }

// Direction of a page fetch relative to the sort order.
type Direction int

const (
	// Forward pages ascend from the cursor ("after").
	Forward Direction = iota
	// Backward pages descend from the cursor ("before").
	Backward
)

// KeysetConfig carries the direction, Mongo sort order, and decoded
// cursor for one page fetch.
type KeysetConfig struct {
	Direction Direction
	SortOrder int // 1 ascending, -1 descending
	Cursor    *wafflemongo.Cursor
}

// ConfigureKeyset interprets the before/after cursor pair. A non-empty
// before wins and flips the fetch to descending; an undecodable cursor
// degrades to the first page rather than erroring.
func ConfigureKeyset(before, after string) KeysetConfig {
	cfg := KeysetConfig{Direction: Forward, SortOrder: 1}

	switch {
	case before != "":
		cfg.Direction = Backward
		cfg.SortOrder = -1
		if c, ok := wafflemongo.DecodeCursor(before); ok {
			cfg.Cursor = &c
		}
	case after != "":
		if c, ok := wafflemongo.DecodeCursor(after); ok {
			cfg.Cursor = &c
		}
	}
	return cfg
}

// ApplyToFind sets the compound (sortField, _id) sort and the
// look-ahead limit on find options.
func (cfg KeysetConfig) ApplyToFind(find *options.FindOptions, sortField string) {
	find.SetSort(bson.D{
		{Key: sortField, Value: cfg.SortOrder},
		{Key: "_id", Value: cfg.SortOrder},
	}).SetLimit(LimitPlusOne())
}

// KeysetWindow returns the filter clause selecting rows past the
// cursor, or nil when there is no cursor.
func (cfg KeysetConfig) KeysetWindow(sortField string) bson.M {
	if cfg.Cursor == nil {
		return nil
	}
	dir := "gt"
	if cfg.Direction == Backward {
		dir = "lt"
	}
	return wafflemongo.KeysetWindow(sortField, dir, cfg.Cursor.CI, cfg.Cursor.ID)
}

// Result reports whether pages exist on either side of the one just
// fetched.
type Result struct {
	HasPrev bool
	HasNext bool
}

// TrimPage cuts a PageSize+1 fetch down to a page, in place.
//
// Backward fetches (before != "") carry their look-ahead row at the
// front after Reverse, so the first element is trimmed and HasNext is
// always true: we arrived here from a later page. Forward fetches trim
// the tail, and HasPrev holds only when a cursor brought us past the
// first page.
func TrimPage[T any](rows *[]T, before, after string) Result {
	overfetched := len(*rows) > PageSize

	if before != "" {
		if overfetched {
			*rows = (*rows)[1:]
		}
		return Result{HasPrev: overfetched, HasNext: true}
	}
	if overfetched {
		*rows = (*rows)[:PageSize]
	}
	return Result{HasPrev: after != "", HasNext: overfetched}
}

// Reverse restores ascending display order after a backward
// (descending) fetch.
func Reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

// BuildCursors encodes the page's first row as the prev cursor and its
// last row as the next cursor. keyFn yields the sort key, idFn the _id.
func BuildCursors[T any](rows []T, keyFn func(T) string, idFn func(T) primitive.ObjectID) (prev, next string) {
	if len(rows) == 0 {
		return "", ""
	}
	first, last := rows[0], rows[len(rows)-1]
	return wafflemongo.EncodeCursor(keyFn(first), idFn(first)),
		wafflemongo.EncodeCursor(keyFn(last), idFn(last))
}
