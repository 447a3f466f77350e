package crypto

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

var (
	errNilKey      = errors.New("crypto: nil private key")
	errEmptyPath   = errors.New("crypto: empty key file path")
	errKeyMismatch = errors.New("crypto: key file address does not match its key")
)

// SaveKeyFile seals key under passphrase in the web3 v3 format and writes it
// to path with 0600 permissions. An existing file is replaced atomically.
func SaveKeyFile(path string, key *PrivateKey, passphrase string) error {
	if key == nil || key.PrivateKey == nil {
		return errNilKey
	}
	if path == "" {
		return errEmptyPath
	}
	sealed, err := keystore.EncryptKey(&keystore.Key{
		Id:         uuid.New(),
		Address:    common.Address(key.PubKey().Address()),
		PrivateKey: key.PrivateKey,
	}, passphrase, keystore.StandardScryptN, keystore.StandardScryptP)
	if err != nil {
		return fmt.Errorf("crypto: seal key: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".beankey-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(sealed); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadKeyFile opens a key file written by SaveKeyFile.
func LoadKeyFile(path, passphrase string) (*PrivateKey, error) {
	if path == "" {
		return nil, errEmptyPath
	}
	sealed, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	opened, err := keystore.DecryptKey(sealed, passphrase)
	if err != nil {
		return nil, fmt.Errorf("crypto: open key file: %w", err)
	}
	key := &PrivateKey{PrivateKey: opened.PrivateKey}
	if Address(opened.Address) != key.PubKey().Address() {
		return nil, errKeyMismatch
	}
	return key, nil
}
