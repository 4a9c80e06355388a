package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/querydesk/querydesk/internal/storage"
)

const (
	parquetContentType = "application/vnd.apache.parquet"
	// rowsMetadataKey tags each table object with its row count.
	rowsMetadataKey = "rows"
)

// Manifest is written next to the table files once all of them are stored.
type Manifest struct {
	PublishedAt time.Time      `json:"published_at"`
	RowCounts   map[string]int `json:"row_counts"`
}

// Publish stores the snapshot under prefix as one parquet object per table
// and a manifest. The manifest goes last so a readable manifest implies a
// complete snapshot.
func Publish(ctx context.Context, store storage.ObjectWriter, prefix string, snapshot Snapshot, now time.Time) (Manifest, error) {
	if store == nil {
		return Manifest{}, fmt.Errorf("object store is required")
	}

	encoded := map[string]func() ([]byte, error){
		TableCustomers: func() ([]byte, error) { return EncodeTable(snapshot.Customers) },
		TableProducts:  func() ([]byte, error) { return EncodeTable(snapshot.Products) },
		TableSales:     func() ([]byte, error) { return EncodeTable(snapshot.Sales) },
	}
	counts := snapshot.RowCounts()
	for _, table := range Tables {
		data, err := encoded[table]()
		if err != nil {
			return Manifest{}, fmt.Errorf("encode %s: %w", table, err)
		}
		key, err := storage.BuildTablePath(prefix, table)
		if err != nil {
			return Manifest{}, err
		}
		options := storage.PutOptions{
			ContentType: parquetContentType,
			Metadata:    map[string]string{rowsMetadataKey: strconv.Itoa(counts[table])},
		}
		if _, err := store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), options); err != nil {
			return Manifest{}, fmt.Errorf("store %s: %w", table, err)
		}
	}

	manifest := Manifest{PublishedAt: now.UTC(), RowCounts: counts}
	body, err := json.Marshal(manifest)
	if err != nil {
		return Manifest{}, fmt.Errorf("marshal manifest: %w", err)
	}
	key, err := storage.BuildManifestPath(prefix)
	if err != nil {
		return Manifest{}, err
	}
	if _, err := store.Put(ctx, key, bytes.NewReader(body), int64(len(body)), storage.PutOptions{ContentType: "application/json"}); err != nil {
		return Manifest{}, fmt.Errorf("store manifest: %w", err)
	}
	return manifest, nil
}

// Load reads a snapshot published under prefix. A missing manifest surfaces
// storage.ErrObjectNotFound.
func Load(ctx context.Context, store storage.ObjectReader, prefix string) (Snapshot, error) {
	if store == nil {
		return Snapshot{}, fmt.Errorf("object store is required")
	}

	manifestKey, err := storage.BuildManifestPath(prefix)
	if err != nil {
		return Snapshot{}, err
	}
	manifestBody, err := readObject(ctx, store, manifestKey)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(manifestBody, &manifest); err != nil {
		return Snapshot{}, fmt.Errorf("decode manifest: %w", err)
	}

	var snapshot Snapshot
	for _, table := range Tables {
		key, err := storage.BuildTablePath(prefix, table)
		if err != nil {
			return Snapshot{}, err
		}
		data, err := readObject(ctx, store, key)
		if err != nil {
			return Snapshot{}, fmt.Errorf("read %s: %w", table, err)
		}
		switch table {
		case TableCustomers:
			snapshot.Customers, err = DecodeTable[Customer](data)
		case TableProducts:
			snapshot.Products, err = DecodeTable[Product](data)
		case TableSales:
			snapshot.Sales, err = DecodeTable[Sale](data)
		}
		if err != nil {
			return Snapshot{}, fmt.Errorf("decode %s: %w", table, err)
		}
	}

	for table, want := range manifest.RowCounts {
		if got := snapshot.RowCounts()[table]; got != want {
			return Snapshot{}, fmt.Errorf("table %s has %d rows, manifest lists %d", table, got, want)
		}
	}
	return snapshot, nil
}

// TableInfo describes one stored table object of a snapshot.
type TableInfo struct {
	Table string
	Key   string
	Size  int64
	// Rows is -1 when the object carries no row count metadata.
	Rows         int
	LastModified time.Time
}

// Inspect stats the manifest and every table object under prefix without
// downloading them.
func Inspect(ctx context.Context, store storage.ObjectReader, prefix string) ([]TableInfo, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	manifestKey, err := storage.BuildManifestPath(prefix)
	if err != nil {
		return nil, err
	}
	if _, err := store.Stat(ctx, manifestKey); err != nil {
		return nil, fmt.Errorf("stat manifest: %w", err)
	}

	tables := make([]TableInfo, 0, len(Tables))
	for _, table := range Tables {
		key, err := storage.BuildTablePath(prefix, table)
		if err != nil {
			return nil, err
		}
		info, err := store.Stat(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", table, err)
		}
		rows := -1
		if raw, ok := info.Metadata[rowsMetadataKey]; ok {
			if parsed, err := strconv.Atoi(raw); err == nil {
				rows = parsed
			}
		}
		tables = append(tables, TableInfo{Table: table, Key: key, Size: info.Size, Rows: rows, LastModified: info.LastModified})
	}
	return tables, nil
}

func readObject(ctx context.Context, store storage.ObjectReader, key string) ([]byte, error) {
	reader, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read object %q: %w", key, err)
	}
	return data, nil
}
