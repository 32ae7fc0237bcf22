// Package repositories persists users and messages in BadgerDB.
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"

	"chat-relay/domain"
	"chat-relay/errors"
)

type IUserRepository interface {
	CreateUser(id, displayName string) (domain.User, error)
	GetUser(id string) (domain.User, error)
	Partners(id string) ([]string, error)
	MutualUpsert(a, b string) error
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

func userKey(id string) []byte {
	return []byte("user:" + id)
}

// CreateUser persists a new user record with an empty partner set.
// It refuses to overwrite an existing id.
func (u *UserRepository) CreateUser(id, displayName string) (domain.User, error) {
	user := domain.User{
		ID:          id,
		DisplayName: displayName,
		Partners:    []string{},
		CreatedAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(user)
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		key := userKey(id)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrUserAlreadyExists
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// GetUser retrieves a user record by id.
func (u *UserRepository) GetUser(id string) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		return readUser(txn, id, &user)
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Partners returns the partner set of a user. Unknown users have an
// empty set: a participant that never joined has no roster yet.
func (u *UserRepository) Partners(id string) ([]string, error) {
	user, err := u.GetUser(id)
	if goerrors.Is(err, errors.ErrUserNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return user.Partners, nil
}

// MutualUpsert ensures records for both participants exist (creating
// placeholder records if absent) and set-adds each id to the other's
// partner list. Both sides commit in a single transaction, so a reader
// immediately after sees either the full symmetric update or none of it.
// Concurrent upserts of the same pair conflict at the storage layer and
// are retried; the add-if-absent semantics make the retry idempotent.
func (u *UserRepository) MutualUpsert(a, b string) error {
	for {
		err := u.db.Update(func(txn *badger.Txn) error {
			if err := addPartner(txn, a, b); err != nil {
				return err
			}
			return addPartner(txn, b, a)
		})
		if goerrors.Is(err, badger.ErrConflict) {
			continue
		}
		return err
	}
}

// addPartner loads (or lazily creates) the record for id and adds
// partner to its set if absent.
func addPartner(txn *badger.Txn, id, partner string) error {
	var user domain.User
	err := readUser(txn, id, &user)
	switch {
	case goerrors.Is(err, badger.ErrKeyNotFound):
		user = domain.User{
			ID:          id,
			DisplayName: domain.PlaceholderName(id),
			Partners:    []string{},
			CreatedAt:   time.Now().UTC(),
		}
	case err != nil:
		return err
	}

	if !lo.Contains(user.Partners, partner) {
		user.Partners = append(user.Partners, partner)
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return txn.Set(userKey(id), data)
}

func readUser(txn *badger.Txn, id string, user *domain.User) error {
	item, err := txn.Get(userKey(id))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, user)
	})
}
