package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

// VaultPassphraseEnv names the variable holding the vault passphrase
const VaultPassphraseEnv = "AUTOMATION_VAULT_PASSPHRASE"

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000
)

// ErrNoPassphrase is returned when a vault is opened without a passphrase
var ErrNoPassphrase = errors.New("vault passphrase is required (set " + VaultPassphraseEnv + ")")

// Vault holds secret overrides in an AES-GCM encrypted file. It serves the
// same purpose as the keychain on machines that have none, such as CI
// runners. The file is decrypted once when opened.
type Vault struct {
	path       string
	passphrase string

	mu     sync.RWMutex
	salt   []byte
	values map[string]string
}

type vaultFile struct {
	Salt      string    `json:"salt"`
	Encrypted string    `json:"encrypted"`
	Version   int       `json:"version"`
	Modified  time.Time `json:"modified"`
}

// OpenVault opens the vault at path. A missing file is an empty vault; it is
// created on the first StoreSecret.
func OpenVault(path, passphrase string) (*Vault, error) {
	if passphrase == "" {
		return nil, ErrNoPassphrase
	}

	v := &Vault{path: path, passphrase: passphrase, values: make(map[string]string)}
	if err := v.load(); err != nil {
		return nil, err
	}
	return v, nil
}

// Lookup implements Source
func (v *Vault) Lookup(key string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	value, ok := v.values[key]
	return value, ok
}

// Keys returns the stored keys in sorted order
func (v *Vault) Keys() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	keys := make([]string, 0, len(v.values))
	for k := range v.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StoreSecret sets an override and rewrites the file
func (v *Vault) StoreSecret(key, value string) error {
	if key == "" {
		return errors.New("secret key is required")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.values[key] = value
	return v.save()
}

// DeleteSecret removes an override. The file is removed with the last value.
func (v *Vault) DeleteSecret(key string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.values[key]; !ok {
		return fmt.Errorf("no secret stored for %s", key)
	}
	delete(v.values, key)

	if len(v.values) == 0 {
		if err := os.Remove(v.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove vault: %w", err)
		}
		v.salt = nil
		return nil
	}
	return v.save()
}

func (v *Vault) load() error {
	content, err := os.ReadFile(v.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read vault: %w", err)
	}

	var file vaultFile
	if err := json.Unmarshal(content, &file); err != nil {
		return fmt.Errorf("failed to parse vault: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(file.Salt)
	if err != nil {
		return fmt.Errorf("failed to decode salt: %w", err)
	}
	encrypted, err := base64.StdEncoding.DecodeString(file.Encrypted)
	if err != nil {
		return fmt.Errorf("failed to decode vault contents: %w", err)
	}

	plaintext, err := decrypt(encrypted, deriveKey(v.passphrase, salt))
	if err != nil {
		return fmt.Errorf("failed to decrypt vault (wrong passphrase?): %w", err)
	}

	values := make(map[string]string)
	if err := json.Unmarshal(plaintext, &values); err != nil {
		return fmt.Errorf("failed to parse vault contents: %w", err)
	}

	v.salt = salt
	v.values = values
	return nil
}

// save encrypts the values and replaces the file atomically; callers hold mu
func (v *Vault) save() error {
	if v.salt == nil {
		v.salt = make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, v.salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	plaintext, err := json.Marshal(v.values)
	if err != nil {
		return fmt.Errorf("failed to marshal vault contents: %w", err)
	}

	encrypted, err := encrypt(plaintext, deriveKey(v.passphrase, v.salt))
	if err != nil {
		return fmt.Errorf("failed to encrypt vault: %w", err)
	}

	content, err := json.MarshalIndent(vaultFile{
		Salt:      base64.StdEncoding.EncodeToString(v.salt),
		Encrypted: base64.StdEncoding.EncodeToString(encrypted),
		Version:   1,
		Modified:  time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal vault: %w", err)
	}

	if dir := filepath.Dir(v.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	tmp := v.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0600); err != nil {
		return fmt.Errorf("failed to write vault: %w", err)
	}
	return os.Rename(tmp, v.path)
}

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, iterations, keySize, sha256.New)
}

// encrypt seals plaintext with AES-GCM, prefixing the nonce
func encrypt(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, nil)
}
