// Package snapshot persists a whole symbol set to disk and brings it
// back with every id intact, so saved external references keep resolving
// after a reload.
package snapshot

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"symforge/internal/symbols"
	"symforge/internal/symerr"
)

// Current schema version - increment when Payload format changes
const schemaVersion uint16 = 1

// Payload is the on-disk form of one symbol set.
type Payload struct {
	// Schema version for safe invalidation when format changes
	Schema uint16

	// Target triple the layout was computed for
	Triple string

	// Arena contents: live records plus the total slot count so dead
	// slots reproduce exactly
	Records []symbols.Record
	Slots   int

	// Reference-counted dependency graph
	Deps []symbols.DepEdge

	// Demand-creation toggles
	CreatePointers bool
	CreateArrays   bool
}

// Save writes the store to path atomically via a temp file and rename.
func Save(path string, st *symbols.Store, triple string) (err error) {
	defer symerr.Guard(&err)
	records, slots := st.Export()
	opts := st.Options()
	payload := &Payload{
		Schema:         schemaVersion,
		Triple:         triple,
		Records:        records,
		Slots:          slots,
		Deps:           st.ExportDeps(),
		CreatePointers: opts.CreatePointers,
		CreateArrays:   opts.CreateArrays,
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			err = errors.Join(err, rmErr)
		}
	}()

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// Load reads a snapshot back into a fresh store. A schema mismatch is
// Unsupported rather than a decode error so callers can offer a rebuild.
func Load(path string, log zerolog.Logger) (*symbols.Store, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var payload Payload
	dec := msgpack.NewDecoder(f)
	if err := dec.Decode(&payload); err != nil {
		return nil, "", symerr.Wrap(symerr.KindUnexpected, err, "snapshot %s does not decode", path)
	}
	if payload.Schema != schemaVersion {
		return nil, "", symerr.New(symerr.KindUnsupported,
			"snapshot %s has schema %d, this build reads %d", path, payload.Schema, schemaVersion)
	}
	opts := symbols.Options{
		CreatePointers: payload.CreatePointers,
		CreateArrays:   payload.CreateArrays,
	}
	st, err := symbols.Restore(symbols.Hints{}, opts, log, payload.Records, payload.Slots, payload.Deps)
	if err != nil {
		return nil, "", err
	}
	return st, payload.Triple, nil
}
