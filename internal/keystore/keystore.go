// Package keystore persists what the browser dapp delegates to the
// wallet: the node's ledger keypair and a named contact book, in a
// local sqlite database.
package keystore

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/dang1412/sui-chat/internal/sui"
)

type Identity struct {
	ID         uint `gorm:"primaryKey"`
	Address    string
	PrivateKey []byte
	CreatedAt  int64
}

type Contact struct {
	ID      uint   `gorm:"primaryKey"`
	Name    string `gorm:"uniqueIndex"`
	Address string
}

type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keystore: %w", err)
	}
	if err := db.AutoMigrate(&Identity{}, &Contact{}); err != nil {
		return nil, fmt.Errorf("migrating keystore: %w", err)
	}
	return &Store{db: db}, nil
}

// LoadOrCreateSigner returns the persisted identity, generating and
// saving a fresh keypair on first use.
func (s *Store) LoadOrCreateSigner() (*sui.Signer, error) {
	var identity Identity
	err := s.db.First(&identity).Error
	if err == nil {
		return sui.NewSigner(ed25519.PrivateKey(identity.PrivateKey))
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("loading identity: %w", err)
	}

	signer, err := sui.GenerateSigner()
	if err != nil {
		return nil, err
	}
	identity = Identity{
		Address:    signer.Address(),
		PrivateKey: signer.PrivateKey(),
		CreatedAt:  time.Now().Unix(),
	}
	if err := s.db.Create(&identity).Error; err != nil {
		return nil, fmt.Errorf("saving identity: %w", err)
	}
	return signer, nil
}

// AddContact stores or updates a named peer address.
func (s *Store) AddContact(name, address string) error {
	if name == "" || address == "" {
		return fmt.Errorf("contact name and address are required")
	}
	contact := Contact{Name: name, Address: address}
	err := s.db.Where(Contact{Name: name}).Assign(Contact{Address: address}).FirstOrCreate(&contact).Error
	if err != nil {
		return fmt.Errorf("saving contact %q: %w", name, err)
	}
	return nil
}

func (s *Store) Contacts() ([]Contact, error) {
	var contacts []Contact
	if err := s.db.Order("name").Find(&contacts).Error; err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	return contacts, nil
}

// Resolve maps a contact name to its address. Raw addresses pass
// through unchanged.
func (s *Store) Resolve(nameOrAddress string) (string, bool) {
	if strings.HasPrefix(nameOrAddress, "0x") {
		return nameOrAddress, true
	}
	var contact Contact
	if err := s.db.Where(Contact{Name: nameOrAddress}).First(&contact).Error; err != nil {
		return "", false
	}
	return contact.Address, true
}
