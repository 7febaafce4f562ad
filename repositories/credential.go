package repositories

import (
	goerrors "errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"lan-chat/auth"
	"lan-chat/errors"
)

const credentialKey = "config:credential"

type ICredentialRepository interface {
	TrySetIfUnset(password string) (bool, error)
	Verify(password string) (bool, error)
	IsSet() (bool, error)
}

// CredentialRepository holds the single shared chat password as an argon2id
// hash under one badger key. Set once, immutable afterwards: the only write
// path is the compare-and-set in TrySetIfUnset.
type CredentialRepository struct {
	db *badger.DB
}

func NewCredentialRepository(db *badger.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// TrySetIfUnset stores the hash of password if no credential exists yet and
// reports whether this caller's password became canonical. Two racing first
// logins resolve through badger's transaction conflict detection: the loser
// retries, observes the winner's record, and returns false.
func (c *CredentialRepository) TrySetIfUnset(password string) (bool, error) {
	encoded, err := auth.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("%w: %v", errors.ErrWriteFailed, err)
	}

	for {
		accepted := false
		err := c.db.Update(func(txn *badger.Txn) error {
			_, err := txn.Get([]byte(credentialKey))
			if err == nil {
				return nil // already set, no mutation
			}
			if !goerrors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			accepted = true
			return txn.Set([]byte(credentialKey), []byte(encoded))
		})
		if goerrors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("%w: %v", errors.ErrWriteFailed, err)
		}
		return accepted, nil
	}
}

// Verify compares password against the stored hash. Fails closed when the
// credential is unset.
func (c *CredentialRepository) Verify(password string) (bool, error) {
	var encoded string
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(credentialKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			encoded = string(val)
			return nil
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", errors.ErrReadFailed, err)
	}
	return auth.ComparePassword(password, encoded)
}

// IsSet reports whether a credential record exists.
func (c *CredentialRepository) IsSet() (bool, error) {
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(credentialKey))
		return err
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", errors.ErrReadFailed, err)
	}
	return true, nil
}
