package store

import "sync"

// Batch buffers the rows of one document in memory using fake (negative)
// IDs, so documents can be converted in parallel and committed serially.
// Parent links and implementation rows refer to the fake IDs; CommitBatch
// rewrites them.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
type Batch struct {
	mu sync.Mutex

	Document        Document
	Symbols         []Symbol
	Implementations []Implementation
	References      []Reference

	nextFakeID int64 // starts at -1, decrements
}

// NewBatch creates an empty batch for doc.
func NewBatch(doc Document) *Batch {
	return &Batch{Document: doc, nextFakeID: -1}
}

func (b *Batch) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

// InsertSymbol buffers sym and returns its fake ID. A parent must be
// inserted before its children.
func (b *Batch) InsertSymbol(sym *Symbol) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	sym.ID = b.allocFakeID()
	b.Symbols = append(b.Symbols, *sym)
	return sym.ID
}

// InsertImplementation buffers an implements clause entry.
func (b *Batch) InsertImplementation(impl *Implementation) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	impl.ID = b.allocFakeID()
	b.Implementations = append(b.Implementations, *impl)
	return impl.ID
}

// InsertReference buffers an identifier occurrence.
func (b *Batch) InsertReference(ref *Reference) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	ref.ID = b.allocFakeID()
	b.References = append(b.References, *ref)
	return ref.ID
}
