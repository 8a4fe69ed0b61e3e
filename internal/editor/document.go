package editor

import (
	"github.com/nhath/ezmongo/internal/db"
)

// EditDocument renders doc for editing.
func EditDocument(doc db.Document) (string, error) {
	out, err := db.RenderDocument(doc)
	if err != nil {
		return "", &Error{Kind: InvalidDocument, Err: err}
	}
	return string(out), nil
}

// ParseEdit validates the edited text of original. Byte-identical text is
// ErrUnchanged and must not reach the database. The _id may not change.
func ParseEdit(original db.Document, before, after string) (db.Document, error) {
	if before == after {
		return nil, ErrUnchanged
	}
	doc, err := db.ParseDocument([]byte(after))
	if err != nil {
		return nil, &Error{Kind: InvalidDocument, Err: err}
	}
	if !db.SameID(original, doc) {
		return nil, &Error{Kind: InvalidDocument, Err: db.ErrIDChanged}
	}
	return doc, nil
}
