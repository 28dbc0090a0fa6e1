package model

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
)

// LineSet maps item ids to quantities. Quantities are always >= 1.
type LineSet map[uuid.UUID]int32

// Quantity returns the quantity for itemID, or 0 when the line is absent.
func (l LineSet) Quantity(itemID uuid.UUID) int32 {
	return l[itemID]
}

// Has reports whether itemID has a line.
func (l LineSet) Has(itemID uuid.UUID) bool {
	_, ok := l[itemID]
	return ok
}

func (l LineSet) Len() int {
	return len(l)
}

func (l LineSet) IsEmpty() bool {
	return len(l) == 0
}

// Clone returns an independent copy. A nil set clones to an empty one.
func (l LineSet) Clone() LineSet {
	c := make(LineSet, len(l))
	for id, qty := range l {
		c[id] = qty
	}
	return c
}

// ItemIDs returns the item ids in a stable order. Stock adjustments walk lines in this
// order so concurrent checkouts lock rows consistently.
func (l LineSet) ItemIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(l))
	for id := range l {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}
