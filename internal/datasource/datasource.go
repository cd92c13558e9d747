// Package datasource resolves a dataset source URI into a loaded Dataset.
//
// Supported forms:
//
//	embedded:                the CSV compiled into the binary (default)
//	path/to/file.csv         a local CSV file, also file:///abs/path.csv
//	blob://<key>             a CSV object in the configured blob store
//	s3://<bucket>/<key>      a CSV object in an S3 bucket
//	sqlite://<path>          a table in a SQLite database
//	postgres://... (or postgresql://)  a table in PostgreSQL
package datasource

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"penguindash/internal/blob"
	"penguindash/internal/infra/source/postgres"
	"penguindash/internal/infra/source/sqlite"
	"penguindash/internal/penguins"
)

// Kind classifies a source URI.
type Kind string

const (
	KindEmbedded Kind = "embedded"
	KindFile     Kind = "file"
	KindBlob     Kind = "blob"
	KindS3       Kind = "s3"
	KindSQLite   Kind = "sqlite"
	KindPostgres Kind = "postgres"
)

// Options supply what some source kinds need beyond the URI.
type Options struct {
	// Table names the SQL table for sqlite and postgres sources.
	Table string
	// Blob is the store read by blob:// sources.
	Blob blob.Store
	// S3 carries region, endpoint and credentials for s3:// sources. The
	// bucket is taken from the URI.
	S3 blob.S3Config
}

// Location is a parsed source URI.
type Location struct {
	Kind   Kind
	Path   string
	Bucket string
	Raw    string
}

// Parse classifies uri without touching any backend.
func Parse(uri string) (Location, error) {
	raw := strings.TrimSpace(uri)
	if raw == "" || raw == "embedded" || strings.HasPrefix(raw, "embedded:") {
		return Location{Kind: KindEmbedded, Raw: penguins.EmbeddedSource}, nil
	}
	scheme, rest, hasScheme := strings.Cut(raw, "://")
	if !hasScheme {
		return Location{Kind: KindFile, Path: raw, Raw: raw}, nil
	}
	switch strings.ToLower(scheme) {
	case "file":
		u, err := url.Parse(raw)
		if err != nil {
			return Location{}, fmt.Errorf("parse %q: %w", raw, err)
		}
		path := u.Path
		if u.Host != "" && u.Host != "localhost" {
			path = u.Host + u.Path
		}
		return Location{Kind: KindFile, Path: path, Raw: raw}, nil
	case "blob":
		if rest == "" {
			return Location{}, fmt.Errorf("blob source %q needs a key", raw)
		}
		return Location{Kind: KindBlob, Path: rest, Raw: raw}, nil
	case "s3":
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" {
			return Location{}, fmt.Errorf("s3 source %q needs s3://bucket/key", raw)
		}
		return Location{Kind: KindS3, Bucket: bucket, Path: key, Raw: raw}, nil
	case "sqlite":
		if rest == "" {
			return Location{}, fmt.Errorf("sqlite source %q needs a path", raw)
		}
		return Location{Kind: KindSQLite, Path: rest, Raw: raw}, nil
	case "postgres", "postgresql":
		return Location{Kind: KindPostgres, Path: raw, Raw: raw}, nil
	default:
		return Location{}, fmt.Errorf("unsupported dataset source scheme %q", scheme)
	}
}

var openS3 = blob.NewS3

// Open loads the dataset named by uri.
func Open(ctx context.Context, uri string, opts Options) (*penguins.Dataset, error) {
	loc, err := Parse(uri)
	if err != nil {
		return nil, err
	}
	records, err := load(ctx, loc, opts)
	if err != nil {
		return nil, fmt.Errorf("load dataset from %s: %w", loc.Raw, err)
	}
	return penguins.New(records, loc.Raw)
}

func load(ctx context.Context, loc Location, opts Options) ([]penguins.Record, error) {
	switch loc.Kind {
	case KindEmbedded:
		ds, err := penguins.LoadEmbedded()
		if err != nil {
			return nil, err
		}
		return ds.Records(), nil
	case KindFile:
		f, err := os.Open(loc.Path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		return penguins.ParseCSV(f)
	case KindBlob:
		if opts.Blob == nil {
			return nil, fmt.Errorf("no blob store configured")
		}
		return readCSVObject(ctx, opts.Blob, loc.Path)
	case KindS3:
		cfg := opts.S3
		cfg.Bucket = loc.Bucket
		store, err := openS3(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return readCSVObject(ctx, store, loc.Path)
	case KindSQLite:
		return sqlite.Load(ctx, loc.Path, opts.Table)
	case KindPostgres:
		return postgres.Load(ctx, loc.Path, opts.Table)
	default:
		return nil, fmt.Errorf("unsupported source kind %s", loc.Kind)
	}
}

func readCSVObject(ctx context.Context, store blob.Store, key string) ([]penguins.Record, error) {
	_, data, err := blob.ReadAll(ctx, store, key)
	if err != nil {
		return nil, err
	}
	return penguins.ParseCSV(bytes.NewReader(data))
}

// Seed writes ds into the SQL table named by uri. Only sqlite and postgres
// sources can be seeded.
func Seed(ctx context.Context, uri, table string, ds *penguins.Dataset) error {
	loc, err := Parse(uri)
	if err != nil {
		return err
	}
	switch loc.Kind {
	case KindSQLite:
		return sqlite.Seed(ctx, loc.Path, table, ds.Records())
	case KindPostgres:
		return postgres.Seed(ctx, loc.Path, table, ds.Records())
	default:
		return fmt.Errorf("cannot seed a %s source; use sqlite:// or postgres://", loc.Kind)
	}
}
