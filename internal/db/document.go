package db

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// ErrIDChanged is returned when an edited document no longer has the _id it
// was loaded with
var ErrIDChanged = errors.New("_id must not change")

// RenderDocument returns doc as indented relaxed Extended JSON, the form the
// operator edits
func RenderDocument(doc Document) ([]byte, error) {
	if doc == nil {
		doc = Document{}
	}
	out, err := bson.MarshalExtJSONIndent(doc, false, false, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// RenderCompact returns doc as single-line relaxed Extended JSON
func RenderCompact(doc Document) string {
	out, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return fmt.Sprintf("%v", doc)
	}
	return string(out)
}

// RenderValue returns a short display form of a single field value
func RenderValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	}
	out, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: v}}, false, false)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	s := strings.TrimPrefix(string(out), `{"v":`)
	return strings.TrimSuffix(s, "}")
}

// ParseDocument parses Extended JSON (relaxed or canonical) into a document
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := bson.UnmarshalExtJSON(bytes.TrimSpace(data), false, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ID returns the _id of doc
func ID(doc Document) (interface{}, bool) {
	for _, e := range doc {
		if e.Key == "_id" {
			return e.Value, true
		}
	}
	return nil, false
}

// SameID reports whether a and b carry the same _id
func SameID(a, b Document) bool {
	ida, oka := ID(a)
	idb, okb := ID(b)
	if !oka || !okb {
		return false
	}
	ja, erra := bson.MarshalExtJSON(bson.D{{Key: "_id", Value: ida}}, true, false)
	jb, errb := bson.MarshalExtJSON(bson.D{{Key: "_id", Value: idb}}, true, false)
	return erra == nil && errb == nil && bytes.Equal(ja, jb)
}

// RedactURI hides the password of a connection URI for display and logging
func RedactURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.User == nil {
		return uri
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

// DatabaseFromURI returns the database named in the URI path, if any
func DatabaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	return strings.Trim(u.Path, "/")
}
