package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDriver runs find queries and streams each document as one
// relaxed extended JSON column.
type MongoDriver struct {
	defaultDB string
	opts      *options.ClientOptions
	client    *mongo.Client
}

func NewMongoDriver(o Options) (*MongoDriver, error) {
	u, err := url.Parse(o.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid mongodb URL: %w", err)
	}
	clientOpts := options.Client().ApplyURI(o.URL)
	if o.User != "" {
		clientOpts.SetAuth(options.Credential{Username: o.User, Password: o.Password})
	}
	if o.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(o.ConnectTimeout)
	}
	return &MongoDriver{
		defaultDB: strings.TrimPrefix(u.Path, "/"),
		opts:      clientOpts,
	}, nil
}

func (d *MongoDriver) Name() string {
	return "mongo"
}

func (d *MongoDriver) connect(ctx context.Context) error {
	if d.client != nil {
		return nil
	}
	client, err := mongo.Connect(ctx, d.opts)
	if err != nil {
		return NewConnectionError(err)
	}
	d.client = client
	return nil
}

func (d *MongoDriver) Ping(ctx context.Context) error {
	if err := d.connect(ctx); err != nil {
		return err
	}
	if err := d.client.Ping(ctx, nil); err != nil {
		return NewConnectionError(err)
	}
	return nil
}

// Query accepts "[db.]collection.find({filter})". Without a db segment the
// database from the URL path is used.
func (d *MongoDriver) Query(ctx context.Context, query string) (RowStreamer, error) {
	if err := d.connect(ctx); err != nil {
		return nil, err
	}

	dbName, collName, filter, err := parseFind(query)
	if err != nil {
		return nil, err
	}
	if dbName == "" {
		dbName = d.defaultDB
	}
	if dbName == "" {
		return nil, errors.New("no database in query or connection URL")
	}

	cursor, err := d.client.Database(dbName).Collection(collName).Find(ctx, filter)
	if err != nil {
		return nil, NewConnectionError(err)
	}
	return &MongoStreamer{cursor: cursor, ctx: ctx}, nil
}

func (d *MongoDriver) Close() error {
	if d.client != nil {
		return d.client.Disconnect(context.Background())
	}
	return nil
}

func parseFind(query string) (dbName, collName string, filter bson.M, err error) {
	query = strings.TrimSpace(query)
	start := strings.Index(query, "(")
	end := strings.LastIndex(query, ")")
	if start == -1 || end == -1 || end < start {
		return "", "", nil, errors.New("invalid query format: expected collection.find(filter)")
	}

	jsonFilter := strings.TrimSpace(query[start+1 : end])
	if jsonFilter == "" {
		jsonFilter = "{}"
	}
	if err := json.Unmarshal([]byte(jsonFilter), &filter); err != nil {
		return "", "", nil, fmt.Errorf("invalid filter JSON: %w", err)
	}

	segments := strings.Split(query[:start], ".")
	if segments[len(segments)-1] != "find" {
		return "", "", nil, errors.New("only 'find' command is supported")
	}
	switch len(segments) {
	case 3:
		return segments[0], segments[1], filter, nil
	case 2:
		return "", segments[0], filter, nil
	default:
		return "", "", nil, errors.New("invalid query format: expected [db.]collection.find(...)")
	}
}

// MongoStreamer implements RowStreamer over a find cursor.
type MongoStreamer struct {
	cursor *mongo.Cursor
	ctx    context.Context
	row    bson.M
	err    error
}

func (s *MongoStreamer) Columns() ([]Column, error) {
	return []Column{{Label: "document", TypeName: "DOCUMENT"}}, nil
}

func (s *MongoStreamer) Next() bool {
	if s.cursor.Next(s.ctx) {
		s.row = nil
		if err := s.cursor.Decode(&s.row); err != nil {
			s.err = err
			return false
		}
		return true
	}
	s.err = s.cursor.Err()
	return false
}

func (s *MongoStreamer) Scan(dest ...any) error {
	if len(dest) != 1 {
		return errors.New("expected exactly 1 destination for document")
	}

	data, err := bson.MarshalExtJSON(s.row, false, false)
	if err != nil {
		return err
	}

	switch v := dest[0].(type) {
	case *string:
		*v = string(data)
	case *any:
		*v = string(data)
	default:
		return errors.New("destination must be *string or *any")
	}
	return nil
}

func (s *MongoStreamer) Err() error {
	if s.err != nil {
		return NewConnectionError(s.err)
	}
	return nil
}

func (s *MongoStreamer) Close() error {
	return s.cursor.Close(s.ctx)
}
