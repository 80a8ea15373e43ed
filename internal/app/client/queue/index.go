package queue

import (
	"encoding/json"
	"errors"

	"reportsync/internal/domain/report"
)

// pendingIndex is the ordered list of ids whose record is not yet synced.
type pendingIndex []string

func (ix pendingIndex) has(id string) bool {
	for _, v := range ix {
		if v == id {
			return true
		}
	}
	return false
}

func (ix pendingIndex) add(id string) pendingIndex {
	if ix.has(id) {
		return ix
	}
	out := make(pendingIndex, len(ix), len(ix)+1)
	copy(out, ix)
	return append(out, id)
}

func (ix pendingIndex) remove(id string) pendingIndex {
	if !ix.has(id) {
		return ix
	}
	out := make(pendingIndex, 0, len(ix))
	for _, v := range ix {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func (ix pendingIndex) equal(other pendingIndex) bool {
	if len(ix) != len(other) {
		return false
	}
	for i := range ix {
		if ix[i] != other[i] {
			return false
		}
	}
	return true
}

// diff counts ids present in exactly one of the two indexes.
func (ix pendingIndex) diff(other pendingIndex) int {
	n := 0
	for _, v := range ix {
		if !other.has(v) {
			n++
		}
	}
	for _, v := range other {
		if !ix.has(v) {
			n++
		}
	}
	return n
}

func readIndex(tx Tx) (pendingIndex, error) {
	data, err := tx.Get(indexKey)
	if errors.Is(err, ErrKeyNotFound) {
		return pendingIndex{}, nil
	}
	if err != nil {
		return nil, err
	}
	var ix pendingIndex
	if err := json.Unmarshal(data, &ix); err != nil {
		return nil, report.Storage("decode index", err)
	}
	return ix, nil
}

func writeIndex(tx Tx, ix pendingIndex) error {
	if ix == nil {
		ix = pendingIndex{}
	}
	data, err := json.Marshal(ix)
	if err != nil {
		return report.Storage("encode index", err)
	}
	return tx.Put(indexKey, data)
}
