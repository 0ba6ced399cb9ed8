package allocation

// Index is the immutable lookup structure over the allocation table. It is
// built once per table version and shared read-only afterwards; no method
// mutates it.
type Index struct {
	records     []AllocationRecord
	positions   map[string]int
	fingerprint string
}

// BuildIndex computes the key-to-position mapping for an ordered record
// sequence. Records keep their original order; on a duplicate wallet key
// (a data-quality defect in the source table) the first record wins.
// fingerprint identifies the source table version the index was built from.
func BuildIndex(records []AllocationRecord, fingerprint string) *Index {
	positions := make(map[string]int, len(records))
	for i, rec := range records {
		if _, exists := positions[rec.WalletKey]; !exists {
			positions[rec.WalletKey] = i
		}
	}

	return &Index{
		records:     records,
		positions:   positions,
		fingerprint: fingerprint,
	}
}

// Lookup normalizes rawWallet and resolves it against the stored keys.
// Returns the matching record and its zero-based position, or ErrNotFound
// when the key misses or rawWallet is empty.
func (ix *Index) Lookup(rawWallet string) (*AllocationRecord, int, error) {
	if rawWallet == "" {
		return nil, 0, ErrNotFound
	}

	pos, ok := ix.positions[NormalizeWallet(rawWallet)]
	if !ok {
		return nil, 0, ErrNotFound
	}

	rec := ix.records[pos]
	return &rec, pos, nil
}

// Records returns the ordered record sequence backing the index. Callers
// must treat the slice as read-only.
func (ix *Index) Records() []AllocationRecord {
	return ix.records
}

// Len returns the number of records in the table.
func (ix *Index) Len() int {
	return len(ix.records)
}

// Fingerprint returns the source table identity the index was built from.
func (ix *Index) Fingerprint() string {
	return ix.fingerprint
}
