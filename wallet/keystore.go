package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/syndtr/goleveldb/leveldb"
	"golang.org/x/xerrors"
)

type DiskKeyStore struct {
	db *leveldb.DB
}

func OpenOrInitKeystore(p string) (*DiskKeyStore, error) {
	if _, err := os.Stat(p); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := os.MkdirAll(p, 0700); err != nil {
			return nil, err
		}
	}

	db, err := leveldb.OpenFile(p, nil)
	if err != nil {
		return nil, err
	}
	return &DiskKeyStore{db}, nil
}

func (dks *DiskKeyStore) Close() error {
	return dks.db.Close()
}

// List lists all the keys stored in the KeyStore
func (dks *DiskKeyStore) List() ([]string, error) {
	var keys []string
	iter := dks.db.NewIterator(nil, nil)
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	iter.Release()
	return keys, iter.Error()
}

// Get gets a key out of keystore and returns KeyInfo coresponding to named key
func (dks *DiskKeyStore) Get(name string) (KeyInfo, error) {
	value, err := dks.db.Get([]byte(name), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return KeyInfo{}, xerrors.Errorf("getting key '%s': %w", name, ErrKeyInfoNotFound)
		}
		return KeyInfo{}, fmt.Errorf("getting key '%s': %w", name, err)
	}
	var res KeyInfo
	if err = json.Unmarshal(value, &res); err != nil {
		return KeyInfo{}, fmt.Errorf("decoding key '%s': %w", name, err)
	}
	return res, nil
}

// Put saves key info under given name
func (dks *DiskKeyStore) Put(key string, info KeyInfo) error {
	bytes, err := json.Marshal(info)
	if err != nil {
		return err
	}
	if err := dks.db.Put([]byte(key), bytes, nil); err != nil {
		return fmt.Errorf("writing key '%s': %w", key, err)
	}
	return nil
}

func (dks *DiskKeyStore) Delete(key string) error {
	if err := dks.db.Delete([]byte(key), nil); err != nil {
		return fmt.Errorf("deleting key '%s': %w", key, err)
	}
	return nil
}

// KeyInfo is used for storing keys in KeyStore
type KeyInfo struct {
	PrivateKey string
}

// KeyStore is used for storing secret keys
type KeyStore interface {
	// List lists all the keys stored in the KeyStore
	List() ([]string, error)
	// Get gets a key out of keystore and returns KeyInfo corresponding to named key
	Get(string) (KeyInfo, error)
	// Put saves a key info under given name
	Put(string, KeyInfo) error
	// Delete removes a key from keystore
	Delete(string) error
}
