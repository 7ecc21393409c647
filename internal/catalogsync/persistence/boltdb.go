// Package persistence implements the durable snapshot adapter on BoltDB.
// Snapshots are stored snappy-compressed with a canonical-JSON SHA-256
// checksum; a snapshot that fails the integrity check on load is treated
// the same as an absent one, so a damaged file degrades to "start from
// defaults" rather than a crash.
package persistence

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"

	"github.com/anand-gl/jsoncanonicalizer"
	"github.com/golang/snappy"
	"go.etcd.io/bbolt"

	"github.com/apigrid/catalogsync/internal/catalogsync/store"
)

var (
	bucketSnapshot = []byte("snapshot")

	keyCurrent  = []byte("current")
	keyChecksum = []byte("checksum")
)

// BoltAdapter persists snapshots in a single-file BoltDB database. It
// implements store.Adapter.
type BoltAdapter struct {
	db *bbolt.DB
}

var _ store.Adapter = (*BoltAdapter)(nil)

// Open opens or creates the snapshot database at path.
func Open(path string) (*BoltAdapter, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, ErrOpenStore.Err(err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSnapshot)
		return err
	}); err != nil {
		db.Close()
		return nil, ErrOpenStore.Err(err)
	}
	return &BoltAdapter{db: db}, nil
}

// Close closes the underlying database.
func (a *BoltAdapter) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// checksum computes a SHA-256 over the canonical JSON form, so encoding
// details like key order do not affect integrity verification.
func checksum(encoded []byte) ([]byte, error) {
	canonical, err := jsoncanonicalizer.Transform(encoded)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(canonical)
	return sum[:], nil
}

// Save writes the snapshot, replacing any previous one. The value and its
// checksum are written in one transaction.
func (a *BoltAdapter) Save(snap store.Snapshot) error {
	encoded, err := json.Marshal(snap)
	if err != nil {
		return ErrEncodeSnapshot.Err(err)
	}
	sum, err := checksum(encoded)
	if err != nil {
		return ErrEncodeSnapshot.Err(err)
	}
	compressed := snappy.Encode(nil, encoded)

	return a.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSnapshot)
		if err := b.Put(keyCurrent, compressed); err != nil {
			return err
		}
		return b.Put(keyChecksum, sum)
	})
}

// Load reads the stored snapshot. The second return value is false when no
// snapshot has been written. A snapshot that fails decompression, decoding,
// or the integrity check returns an error; callers treat that as absent.
func (a *BoltAdapter) Load() (store.Snapshot, bool, error) {
	var compressed, storedSum []byte
	err := a.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSnapshot)
		if v := b.Get(keyCurrent); v != nil {
			compressed = append(compressed, v...)
		}
		if v := b.Get(keyChecksum); v != nil {
			storedSum = append(storedSum, v...)
		}
		return nil
	})
	if err != nil {
		return store.Snapshot{}, false, ErrDecodeSnapshot.Err(err)
	}
	if compressed == nil {
		return store.Snapshot{}, false, nil
	}

	encoded, err := snappy.Decode(nil, compressed)
	if err != nil {
		return store.Snapshot{}, false, ErrDecodeSnapshot.Err(err)
	}
	sum, err := checksum(encoded)
	if err != nil {
		return store.Snapshot{}, false, ErrDecodeSnapshot.Err(err)
	}
	if !bytes.Equal(sum, storedSum) {
		return store.Snapshot{}, false, ErrSnapshotCorrupt
	}

	var snap store.Snapshot
	if err := json.Unmarshal(encoded, &snap); err != nil {
		return store.Snapshot{}, false, ErrDecodeSnapshot.Err(err)
	}
	return snap, true, nil
}
