package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/JamesRaphaelJRC/guildme/pkg/types"
)

var (
	// Bucket names
	bucketIdentity = []byte("identity")
	bucketAuth     = []byte("auth")
	bucketLocation = []byte("location")
)

// Fixed keys inside single-value buckets.
var (
	keyClientID = []byte("client_id")
	keyToken    = []byte("token")
	keySelf     = []byte("self")
)

// BoltStore persists the client's local state across restarts: its
// identity, the auth token and the last reported location.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the local database under dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "guildme.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketIdentity,
			bucketAuth,
			bucketLocation,
		}
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// ClientID returns this installation's stable id, minting one on first use.
func (s *BoltStore) ClientID() (string, error) {
	var id string
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketIdentity)
		if data := b.Get(keyClientID); data != nil {
			id = string(data)
			return nil
		}
		id = uuid.New().String()
		return b.Put(keyClientID, []byte(id))
	})
	return id, err
}

// SaveAuthToken stores the session token.
func (s *BoltStore) SaveAuthToken(token string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAuth)
		return b.Put(keyToken, []byte(token))
	})
}

// AuthToken returns the stored session token, empty when logged out.
func (s *BoltStore) AuthToken() (string, error) {
	var token string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAuth)
		token = string(b.Get(keyToken))
		return nil
	})
	return token, err
}

// ClearAuth discards the session token on logout.
func (s *BoltStore) ClearAuth() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAuth)
		return b.Delete(keyToken)
	})
}

// SetLastLocation records the most recent self coordinates.
func (s *BoltStore) SetLastLocation(coords types.Coordinates) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLocation)
		data, err := json.Marshal(coords)
		if err != nil {
			return err
		}
		return b.Put(keySelf, data)
	})
}

// LastLocation returns the cached self coordinates, or false when none
// have been stored yet.
func (s *BoltStore) LastLocation() (types.Coordinates, bool, error) {
	var coords types.Coordinates
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLocation)
		data := b.Get(keySelf)
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &coords); err != nil {
			return err
		}
		found = true
		return nil
	})
	return coords, found, err
}
