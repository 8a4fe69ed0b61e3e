// internal/db/mongo.go
package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/nhath/ezmongo/internal/grammar"
)

const defaultPageSize = 100

// MongoDialer opens MongoDB clients
type MongoDialer struct{}

// Dial connects to uri and verifies the server answers a ping
func (MongoDialer) Dial(ctx context.Context, uri string, opts DialOptions) (Client, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	clientOpts := options.Client().ApplyURI(uri)
	if opts.Timeout > 0 {
		clientOpts.SetConnectTimeout(opts.Timeout).SetServerSelectionTimeout(opts.Timeout)
	}

	var tunnel *SSHTunnel
	if opts.SSHConfig != nil {
		t, err := NewSSHTunnel(opts.SSHConfig, log)
		if err != nil {
			return nil, WrapConnectionError(err)
		}
		tunnel = t
		clientOpts.SetDialer(tunnel)
	}

	log.Debug("dialing", zap.String("uri", RedactURI(uri)), zap.Bool("ssh", tunnel != nil))
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		if tunnel != nil {
			tunnel.Close()
		}
		return nil, WrapConnectionError(err)
	}

	m := &Mongo{client: client, tunnel: tunnel, pageSize: pageSize, log: log}
	if err := m.Ping(ctx); err != nil {
		m.Close(context.Background())
		return nil, err
	}
	return m, nil
}

// Mongo is a Client backed by the official driver
type Mongo struct {
	client   *mongo.Client
	tunnel   *SSHTunnel
	pageSize int
	log      *zap.Logger
}

func (m *Mongo) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return WrapConnectionError(err)
	}
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	err := m.client.Disconnect(ctx)
	if m.tunnel != nil {
		if terr := m.tunnel.Close(); err == nil {
			err = terr
		}
	}
	return err
}

func (m *Mongo) ListDatabases(ctx context.Context) ([]string, error) {
	names, err := m.client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return nil, WrapQueryError(err)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Mongo) ListCollections(ctx context.Context, database string) ([]string, error) {
	names, err := m.client.Database(database).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, WrapQueryError(err)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Mongo) ReplaceDocument(ctx context.Context, ns Namespace, doc Document) error {
	id, ok := ID(doc)
	if !ok {
		return WrapQueryError(errors.New("document has no _id"))
	}
	res, err := m.client.Database(ns.Database).Collection(ns.Collection).ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, doc)
	if err != nil {
		return WrapQueryError(err)
	}
	if res.MatchedCount == 0 {
		return WrapQueryError(ErrDocumentNotFound)
	}
	return nil
}

// Query evaluates one statement of the shell dialect against database
func (m *Mongo) Query(ctx context.Context, database, text string) (Cursor, error) {
	q, err := grammar.ParseQuery(text)
	if err != nil {
		return nil, WrapQueryError(err)
	}

	start := time.Now()
	cur, err := m.run(ctx, database, q)
	m.log.Debug("query",
		zap.String("database", database),
		zap.Duration("took", time.Since(start)),
		zap.Error(err),
	)
	if err != nil {
		return nil, WrapQueryError(err)
	}
	return cur, nil
}

func (m *Mongo) run(ctx context.Context, database string, q *grammar.Query) (Cursor, error) {
	switch q.Kind {
	case grammar.QueryShow:
		return m.show(ctx, database, q.Show)
	case grammar.QueryLiteral:
		docs, err := literalDocuments(q.Literal)
		if err != nil {
			return nil, err
		}
		return NewSliceCursor(docs, Namespace{Database: database}), nil
	}

	coll := m.client.Database(database).Collection(q.Collection)
	ns := Namespace{Database: database, Collection: q.Collection}
	readOnly := Namespace{Database: database}
	args := q.Method.Args

	switch q.Method.Name {
	case "find":
		return m.find(ctx, coll, ns, q)
	case "findOne":
		filter, err := documentArg(args, 0)
		if err != nil {
			return nil, err
		}
		projection, err := documentArg(args, 1)
		if err != nil {
			return nil, err
		}
		opts := options.FindOne()
		if len(projection) > 0 {
			opts.SetProjection(projection)
		}
		var doc Document
		err = coll.FindOne(ctx, filter, opts).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return NewSliceCursor(nil, ns), nil
		}
		if err != nil {
			return nil, err
		}
		return NewSliceCursor([]Document{doc}, ns), nil
	case "count", "countDocuments":
		filter, err := documentArg(args, 0)
		if err != nil {
			return nil, err
		}
		n, err := coll.CountDocuments(ctx, filter)
		if err != nil {
			return nil, err
		}
		return countCursor(n, readOnly), nil
	case "estimatedDocumentCount":
		n, err := coll.EstimatedDocumentCount(ctx)
		if err != nil {
			return nil, err
		}
		return countCursor(n, readOnly), nil
	case "distinct":
		field, ok := args[0].(*grammar.String)
		if !ok {
			return nil, fmt.Errorf("distinct: expected field name")
		}
		filter, err := documentArg(args, 1)
		if err != nil {
			return nil, err
		}
		values, err := coll.Distinct(ctx, field.Value, filter)
		if err != nil {
			return nil, err
		}
		docs := make([]Document, 0, len(values))
		for _, v := range values {
			docs = append(docs, Document{{Key: "value", Value: v}})
		}
		return NewSliceCursor(docs, readOnly), nil
	case "aggregate":
		return m.aggregate(ctx, coll, readOnly, q)
	}
	return nil, fmt.Errorf("unsupported method %q", q.Method.Name)
}

func (m *Mongo) find(ctx context.Context, coll *mongo.Collection, ns Namespace, q *grammar.Query) (Cursor, error) {
	filter, err := documentArg(q.Method.Args, 0)
	if err != nil {
		return nil, err
	}
	projection, err := documentArg(q.Method.Args, 1)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetBatchSize(int32(m.pageSize))
	if len(projection) > 0 {
		opts.SetProjection(projection)
	}
	var limit, skip int64
	for _, mod := range q.Modifiers {
		switch mod.Name {
		case "sort":
			spec, err := documentArg(mod.Args, 0)
			if err != nil {
				return nil, fmt.Errorf("sort: %w", err)
			}
			opts.SetSort(spec)
		case "projection":
			spec, err := documentArg(mod.Args, 0)
			if err != nil {
				return nil, fmt.Errorf("projection: %w", err)
			}
			opts.SetProjection(spec)
		case "limit":
			if limit, err = int64Arg(mod.Args, 0); err != nil {
				return nil, fmt.Errorf("limit: %w", err)
			}
			opts.SetLimit(limit)
		case "skip":
			if skip, err = int64Arg(mod.Args, 0); err != nil {
				return nil, fmt.Errorf("skip: %w", err)
			}
			opts.SetSkip(skip)
		case "maxTimeMS":
			ms, err := int64Arg(mod.Args, 0)
			if err != nil {
				return nil, fmt.Errorf("maxTimeMS: %w", err)
			}
			opts.SetMaxTime(time.Duration(ms) * time.Millisecond)
		}
	}

	if _, ok := q.Modifier("count"); ok {
		countOpts := options.Count()
		if limit > 0 {
			countOpts.SetLimit(limit)
		}
		if skip > 0 {
			countOpts.SetSkip(skip)
		}
		n, err := coll.CountDocuments(ctx, filter, countOpts)
		if err != nil {
			return nil, err
		}
		return countCursor(n, Namespace{Database: ns.Database}), nil
	}

	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return &mongoCursor{cur: cur, ns: ns}, nil
}

func (m *Mongo) aggregate(ctx context.Context, coll *mongo.Collection, ns Namespace, q *grammar.Query) (Cursor, error) {
	pipeline := bson.A{}
	if len(q.Method.Args) > 0 {
		v, err := toValue(q.Method.Args[0])
		if err != nil {
			return nil, err
		}
		arr, ok := v.(bson.A)
		if !ok {
			return nil, fmt.Errorf("aggregate: expected pipeline array")
		}
		pipeline = arr
	}

	opts := options.Aggregate().SetBatchSize(int32(m.pageSize))
	for _, mod := range q.Modifiers {
		switch mod.Name {
		case "allowDiskUse":
			allow := true
			if len(mod.Args) > 0 {
				if b, ok := mod.Args[0].(*grammar.Bool); ok {
					allow = b.Value
				}
			}
			opts.SetAllowDiskUse(allow)
		case "maxTimeMS":
			ms, err := int64Arg(mod.Args, 0)
			if err != nil {
				return nil, fmt.Errorf("maxTimeMS: %w", err)
			}
			opts.SetMaxTime(time.Duration(ms) * time.Millisecond)
		}
	}

	cur, err := coll.Aggregate(ctx, pipeline, opts)
	if err != nil {
		return nil, err
	}
	return &mongoCursor{cur: cur, ns: ns}, nil
}

func (m *Mongo) show(ctx context.Context, database, target string) (Cursor, error) {
	if target == grammar.ShowCollections {
		names, err := m.ListCollections(ctx, database)
		if err != nil {
			return nil, err
		}
		docs := make([]Document, 0, len(names))
		for _, n := range names {
			docs = append(docs, Document{{Key: "name", Value: n}})
		}
		return NewSliceCursor(docs, Namespace{Database: database}), nil
	}

	res, err := m.client.ListDatabases(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(res.Databases))
	for _, spec := range res.Databases {
		docs = append(docs, Document{
			{Key: "name", Value: spec.Name},
			{Key: "sizeOnDisk", Value: spec.SizeOnDisk},
			{Key: "empty", Value: spec.Empty},
		})
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i][0].Value.(string) < docs[j][0].Value.(string)
	})
	return NewSliceCursor(docs, Namespace{Database: database}), nil
}

func countCursor(n int64, ns Namespace) Cursor {
	return NewSliceCursor([]Document{{{Key: "count", Value: n}}}, ns)
}

type mongoCursor struct {
	cur     *mongo.Cursor
	ns      Namespace
	current Document
	err     error
}

func (c *mongoCursor) Next(ctx context.Context) bool {
	if c.err != nil || !c.cur.Next(ctx) {
		return false
	}
	var doc Document
	if err := c.cur.Decode(&doc); err != nil {
		c.err = err
		return false
	}
	c.current = doc
	return true
}

func (c *mongoCursor) Current() Document { return c.current }

func (c *mongoCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.cur.Err()
}

func (c *mongoCursor) Close(ctx context.Context) error { return c.cur.Close(ctx) }

func (c *mongoCursor) Namespace() Namespace { return c.ns }
