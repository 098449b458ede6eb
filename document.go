package tashodb

// tableHandle is the subset of *Table a Document needs to save or delete
// itself. Modeling it as an interface, rather than a *Table field, keeps
// the Document/Table relationship a non-owning handle rather than a
// reference cycle with shared ownership semantics.
type tableHandle interface {
	rawInsert(id Key, value *Map) error
	delete(id Key) (bool, error)
}

// Document is a thin, non-owning view over one (id, value) pair bound to
// the table it came from. It is not an independent source of truth:
// mutating its Value and calling Save writes the mutation back through the
// owning table.
type Document struct {
	ID    Key
	Value *Map

	table tableHandle
}

func newDocument(id Key, value *Map, table tableHandle) *Document {
	return &Document{ID: id, Value: value, table: table}
}

// Get returns a field value from the document.
func (d *Document) Get(field string) (any, bool) {
	return d.Value.Get(field)
}

// Set assigns a field value on the document. Call Save to persist it.
func (d *Document) Set(field string, value any) {
	d.Value.Set(field, value)
}

// Remove deletes a field from the document. Call Save to persist it.
func (d *Document) Remove(field string) {
	d.Value.Delete(field)
}

// Save re-inserts the document's (possibly mutated) value into its owning
// table.
func (d *Document) Save() error {
	return d.table.rawInsert(d.ID, d.Value)
}

// Delete removes the document's record from its owning table. A deleted
// document handle may still hold stale data in Value; calling Save
// afterward re-creates the record.
func (d *Document) Delete() (bool, error) {
	return d.table.delete(d.ID)
}
