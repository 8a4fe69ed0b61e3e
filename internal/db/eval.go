package db

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nhath/ezmongo/internal/grammar"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// toValue converts a query expression into the value sent to the server.
func toValue(x grammar.Expr) (interface{}, error) {
	switch n := x.(type) {
	case *grammar.String:
		return n.Value, nil
	case *grammar.Number:
		return parseNumber(n.Raw)
	case *grammar.Bool:
		return n.Value, nil
	case *grammar.Null:
		return nil, nil
	case *grammar.Regex:
		return primitive.Regex{Pattern: n.Pattern, Options: n.Flags}, nil
	case *grammar.Object:
		return toDocument(n)
	case *grammar.Array:
		arr := make(bson.A, 0, len(n.Elems))
		for _, el := range n.Elems {
			v, err := toValue(el)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case *grammar.Call:
		return callHelper(n)
	case *grammar.Ident:
		return nil, fmt.Errorf("unsupported identifier %q", n.Name)
	}
	return nil, fmt.Errorf("unsupported expression %T", x)
}

func toDocument(o *grammar.Object) (bson.D, error) {
	doc := make(bson.D, 0, len(o.Fields))
	for _, f := range o.Fields {
		v, err := toValue(f.Value)
		if err != nil {
			return nil, err
		}
		doc = append(doc, bson.E{Key: f.Key, Value: v})
	}
	return doc, nil
}

// documentArg returns argument i as a document, or an empty one when absent.
func documentArg(args []grammar.Expr, i int) (bson.D, error) {
	if i >= len(args) {
		return bson.D{}, nil
	}
	o, ok := args[i].(*grammar.Object)
	if !ok {
		return nil, fmt.Errorf("argument %d: expected document", i+1)
	}
	return toDocument(o)
}

func int64Arg(args []grammar.Expr, i int) (int64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("argument %d: missing", i+1)
	}
	v, err := toValue(args[i])
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	}
	return 0, fmt.Errorf("argument %d: expected number", i+1)
}

func parseNumber(raw string) (interface{}, error) {
	if strings.ContainsAny(raw, ".eE") {
		return strconv.ParseFloat(raw, 64)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return strconv.ParseFloat(raw, 64)
	}
	if n >= math.MinInt32 && n <= math.MaxInt32 {
		return int32(n), nil
	}
	return n, nil
}

func callHelper(c *grammar.Call) (interface{}, error) {
	id, ok := c.Fun.(*grammar.Ident)
	if !ok {
		return nil, fmt.Errorf("unsupported call")
	}
	str := func() (string, bool) {
		if len(c.Args) != 1 {
			return "", false
		}
		s, ok := c.Args[0].(*grammar.String)
		if !ok {
			return "", false
		}
		return s.Value, true
	}

	switch id.Name {
	case "ObjectId":
		if len(c.Args) == 0 {
			return primitive.NewObjectID(), nil
		}
		hex, ok := str()
		if !ok {
			return nil, fmt.Errorf("ObjectId: expected hex string")
		}
		return primitive.ObjectIDFromHex(hex)
	case "ISODate", "Date":
		if len(c.Args) == 0 {
			return primitive.NewDateTimeFromTime(time.Now()), nil
		}
		if s, ok := str(); ok {
			for _, layout := range dateLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return primitive.NewDateTimeFromTime(t), nil
				}
			}
			return nil, fmt.Errorf("%s: cannot parse %q", id.Name, s)
		}
		ms, err := int64Arg(c.Args, 0)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id.Name, err)
		}
		return primitive.DateTime(ms), nil
	case "NumberLong", "NumberInt":
		var n int64
		if s, ok := str(); ok {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", id.Name, err)
			}
			n = v
		} else {
			v, err := int64Arg(c.Args, 0)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", id.Name, err)
			}
			n = v
		}
		if id.Name == "NumberInt" {
			return int32(n), nil
		}
		return n, nil
	case "NumberDecimal":
		if s, ok := str(); ok {
			return primitive.ParseDecimal128(s)
		}
		return nil, fmt.Errorf("NumberDecimal: expected string")
	}
	return nil, fmt.Errorf("unknown function %q", id.Name)
}

// literalDocuments turns a literal query into result documents: an object
// is one document, an array yields one document per element, and anything
// else is wrapped as {value: v}.
func literalDocuments(x grammar.Expr) ([]Document, error) {
	v, err := toValue(x)
	if err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case bson.D:
		return []Document{val}, nil
	case bson.A:
		docs := make([]Document, 0, len(val))
		for _, el := range val {
			if d, ok := el.(bson.D); ok {
				docs = append(docs, d)
				continue
			}
			docs = append(docs, Document{{Key: "value", Value: el}})
		}
		return docs, nil
	}
	return []Document{{{Key: "value", Value: v}}}, nil
}
