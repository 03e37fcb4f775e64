package models

import "sort"

// DedupIndex is the set of platform video IDs already persisted for an
// account, built once at the start of a run. Values are the stored video URLs.
type DedupIndex map[string]string

// NewDedupIndex builds the index from persisted records
func NewDedupIndex(records []*VideoRecord) DedupIndex {
	idx := make(DedupIndex, len(records))
	for _, r := range records {
		if r == nil || r.VideoID == "" {
			continue
		}
		idx[r.VideoID] = r.VideoURL
	}
	return idx
}

// Contains reports whether id was already persisted
func (d DedupIndex) Contains(id string) bool {
	_, ok := d[id]
	return ok
}

// IDs returns the known IDs in a stable order
func (d DedupIndex) IDs() []string {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
