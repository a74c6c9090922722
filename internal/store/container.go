// Package store implements the canonical per-recording container.
//
// Each recording owns one SQLite-backed container file holding every stage
// output as a named dataset: raw and corrected imaging stacks, the optional
// timestamp series, per-frame displacements and ΔF/F traces. Datasets are
// stored as ordered chunks (one frame per chunk for imaging data, so single
// frames can be read without touching the rest of the stack) with optional
// byte-shuffled compression, plus arbitrary JSON-typed attributes.
package store

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/drim2p/drim2p/internal/rawio"
)

// Fixed dataset paths within a container.
const (
	RawImagingPath       = "raw-imaging"
	TimestampsPath       = "timestamps"
	CorrectedImagingPath = "corrected-imaging"
	DisplacementsPath    = "displacements"
	DeltaFPath           = "deltaf"
)

// Extension is the file extension of canonical container files.
const Extension = ".d2p"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Container is an open canonical container.
type Container struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the container at path and brings its
// schema up to date.
func Open(path string) (*Container, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open container %q: %w", path, err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate container %q: %w", path, err)
	}

	return &Container{db: db, path: path}, nil
}

func migrateUp(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to prepare migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to prepare migrations: %w", err)
	}
	// Note: m is not closed because that would close the underlying DB
	// connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close closes the container file.
func (c *Container) Close() error {
	return c.db.Close()
}

// Path returns the container's file path.
func (c *Container) Path() string {
	return c.path
}

// FileSize returns the size of the container file in bytes.
func (c *Container) FileSize() (int64, error) {
	info, err := os.Stat(c.path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat container %q: %w", c.path, err)
	}
	return info.Size(), nil
}

// CreateOptions configures dataset layout and compression.
type CreateOptions struct {
	// PerFrameChunks stores one frame per chunk. This grows the chunk index
	// but makes single-frame random reads cheap, which downstream stages
	// rely on.
	PerFrameChunks bool
	// Compression selects the chunk codec; empty means none. The
	// byte-shuffle pre-filter is coupled to it: on whenever compression is
	// on, off otherwise.
	Compression Compression
	// Level is the deflate aggression (0-9); ignored by other codecs.
	Level int
}

// Create writes a new dataset. Creating a dataset that already exists is an
// error; stages replace outputs by deleting first.
func (c *Container) Create(path string, stack *rawio.Stack, opts CreateOptions) error {
	if opts.Compression == "" {
		opts.Compression = CompressionNone
	}
	if _, err := ParseCompression(string(opts.Compression)); err != nil {
		return err
	}
	if err := validateLevel(opts.Compression, opts.Level); err != nil {
		return err
	}

	exists, err := c.Exists(path)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("dataset %q already exists in %q", path, c.path)
	}
	if err := c.checkLengthInvariants(path, stack); err != nil {
		return err
	}

	itemSize, err := stack.DType.Size()
	if err != nil {
		return err
	}
	shape, err := json.Marshal(stack.Shape)
	if err != nil {
		return fmt.Errorf("failed to encode shape: %w", err)
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin container write: %w", err)
	}
	defer tx.Rollback()

	shuffle := 0
	if opts.Compression != CompressionNone {
		shuffle = 1
	}
	perFrame := 0
	if opts.PerFrameChunks {
		perFrame = 1
	}
	_, err = tx.Exec(
		`INSERT INTO datasets (path, shape, dtype, compression, shuffle, per_frame_chunks)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		path, string(shape), string(stack.DType), string(opts.Compression), shuffle, perFrame,
	)
	if err != nil {
		return fmt.Errorf("failed to record dataset %q: %w", path, err)
	}

	insert, err := tx.Prepare(`INSERT INTO chunks (dataset_path, idx, data) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer insert.Close()

	for idx, chunk := range chunkData(stack, opts.PerFrameChunks) {
		encoded, err := encodeChunk(chunk, itemSize, opts.Compression, opts.Level)
		if err != nil {
			return err
		}
		if _, err := insert.Exec(path, idx, encoded); err != nil {
			return fmt.Errorf("failed to write chunk %d of %q: %w", idx, path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset %q: %w", path, err)
	}
	return nil
}

// chunkData splits the stack's bytes into chunks: one per frame when
// perFrame is set, a single chunk otherwise.
func chunkData(stack *rawio.Stack, perFrame bool) [][]byte {
	if !perFrame || stack.FrameCount() == 0 {
		return [][]byte{stack.Data}
	}
	n := len(stack.Data) / stack.FrameCount()
	chunks := make([][]byte, stack.FrameCount())
	for i := range chunks {
		chunks[i] = stack.Data[i*n : (i+1)*n]
	}
	return chunks
}

// checkLengthInvariants rejects writes that would break the container's
// cross-dataset length contracts: the timestamp series must span exactly one
// value per raw frame, and displacements one pair per corrected frame.
func (c *Container) checkLengthInvariants(path string, stack *rawio.Stack) error {
	switch path {
	case TimestampsPath:
		raw, err := c.datasetShape(RawImagingPath)
		if err != nil {
			return err
		}
		if raw != nil && len(stack.Shape) > 0 && stack.Shape[0] != raw[0] {
			return fmt.Errorf(
				"timestamp series length %d does not match raw frame count %d",
				stack.Shape[0], raw[0],
			)
		}
	case DisplacementsPath:
		corrected, err := c.datasetShape(CorrectedImagingPath)
		if err != nil {
			return err
		}
		if corrected != nil && len(stack.Shape) > 0 && stack.Shape[0] != corrected[0] {
			return fmt.Errorf(
				"displacement series length %d does not match corrected frame count %d",
				stack.Shape[0], corrected[0],
			)
		}
	}
	return nil
}

// datasetShape returns the stored shape of a dataset, or nil when the
// dataset is absent.
func (c *Container) datasetShape(path string) ([]int, error) {
	var encoded string
	err := c.db.QueryRow(`SELECT shape FROM datasets WHERE path = ?`, path).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read shape of %q: %w", path, err)
	}
	var shape []int
	if err := json.Unmarshal([]byte(encoded), &shape); err != nil {
		return nil, fmt.Errorf("failed to decode shape of %q: %w", path, err)
	}
	return shape, nil
}

// Exists reports whether a dataset is present.
func (c *Container) Exists(path string) (bool, error) {
	var one int
	err := c.db.QueryRow(`SELECT 1 FROM datasets WHERE path = ?`, path).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check dataset %q: %w", path, err)
	}
	return true, nil
}

// Read loads a dataset back into a dense stack.
func (c *Container) Read(path string) (*rawio.Stack, error) {
	var encodedShape, dtype, compression string
	var shuffle, perFrame int
	err := c.db.QueryRow(
		`SELECT shape, dtype, compression, shuffle, per_frame_chunks FROM datasets WHERE path = ?`,
		path,
	).Scan(&encodedShape, &dtype, &compression, &shuffle, &perFrame)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dataset %q does not exist in %q", path, c.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %q: %w", path, err)
	}

	var shape []int
	if err := json.Unmarshal([]byte(encodedShape), &shape); err != nil {
		return nil, fmt.Errorf("failed to decode shape of %q: %w", path, err)
	}
	itemSize, err := rawio.DType(dtype).Size()
	if err != nil {
		return nil, err
	}

	rows, err := c.db.Query(
		`SELECT data FROM chunks WHERE dataset_path = ? ORDER BY idx`, path,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunks of %q: %w", path, err)
	}
	defer rows.Close()

	var data []byte
	for rows.Next() {
		var chunk []byte
		if err := rows.Scan(&chunk); err != nil {
			return nil, fmt.Errorf("failed to scan chunk of %q: %w", path, err)
		}
		decoded, err := decodeChunk(chunk, itemSize, Compression(compression))
		if err != nil {
			return nil, err
		}
		data = append(data, decoded...)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chunks of %q: %w", path, err)
	}

	return &rawio.Stack{Shape: shape, DType: rawio.DType(dtype), Data: data}, nil
}

// Delete removes a dataset, its chunks and its attributes. Deleting an
// absent dataset silently succeeds. The raw imaging dataset is immutable
// once ingested and cannot be deleted.
func (c *Container) Delete(path string) error {
	if path == RawImagingPath {
		return fmt.Errorf("dataset %q is immutable", RawImagingPath)
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin container delete: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM chunks WHERE dataset_path = ?`,
		`DELETE FROM attributes WHERE dataset_path = ?`,
		`DELETE FROM datasets WHERE path = ?`,
	} {
		if _, err := tx.Exec(stmt, path); err != nil {
			return fmt.Errorf("failed to delete dataset %q: %w", path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete of %q: %w", path, err)
	}
	return nil
}

// SetAttributes upserts key/value attributes on a dataset. Values may be any
// JSON-encodable scalar or array.
func (c *Container) SetAttributes(path string, attrs map[string]any) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin attribute write: %w", err)
	}
	defer tx.Rollback()

	upsert, err := tx.Prepare(
		`INSERT OR REPLACE INTO attributes (dataset_path, key, value) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare attribute write: %w", err)
	}
	defer upsert.Close()

	for key, value := range attrs {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode attribute %q: %w", key, err)
		}
		if _, err := upsert.Exec(path, key, string(encoded)); err != nil {
			return fmt.Errorf("failed to write attribute %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit attributes of %q: %w", path, err)
	}
	return nil
}

// Attributes returns all attributes of a dataset. Numeric values decode as
// float64, arrays as []any.
func (c *Container) Attributes(path string) (map[string]any, error) {
	rows, err := c.db.Query(
		`SELECT key, value FROM attributes WHERE dataset_path = ?`, path,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read attributes of %q: %w", path, err)
	}
	defer rows.Close()

	attrs := make(map[string]any)
	for rows.Next() {
		var key, encoded string
		if err := rows.Scan(&key, &encoded); err != nil {
			return nil, fmt.Errorf("failed to scan attribute of %q: %w", path, err)
		}
		var value any
		if err := json.Unmarshal([]byte(encoded), &value); err != nil {
			return nil, fmt.Errorf("failed to decode attribute %q: %w", key, err)
		}
		attrs[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read attributes of %q: %w", path, err)
	}
	return attrs, nil
}

// ContainerPath derives the canonical container location for a RAW
// recording: same stem, container extension, optionally relocated into
// outDir.
func ContainerPath(rawPath, outDir string) string {
	stem := strings.TrimSuffix(filepath.Base(rawPath), filepath.Ext(rawPath))
	if outDir == "" {
		outDir = filepath.Dir(rawPath)
	}
	return filepath.Join(outDir, stem+Extension)
}
