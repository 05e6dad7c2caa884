// Package credentials encrypts API keys at rest under ~/.sharingan.
// Tool keys live here instead of in config files, and the serve command
// mints its HTTP bearer token here on first run.
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
)

// KeyAPIBearer names the credential holding the HTTP API bearer token.
const KeyAPIBearer = "api_key"

// passphraseEnv supplies the encryption passphrase, replacing the
// generated key file so no key material sits on disk.
const passphraseEnv = "SHARINGAN_CREDENTIALS_KEY"

const storeFile = "credentials.enc"

// Manager reads and writes the encrypted credential store.
type Manager struct {
	configDir string
	log       *logger.Logger
	creds     map[string]string
}

// NewManager opens the store in the user's home directory.
func NewManager(log *logger.Logger) (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewManagerAt(filepath.Join(homeDir, ".sharingan"), log)
}

// NewManagerAt opens a store rooted at configDir, creating the
// directory with owner-only permissions.
func NewManagerAt(configDir string, log *logger.Logger) (*Manager, error) {
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	return &Manager{
		configDir: configDir,
		log:       log.WithComponent("credentials"),
		creds:     make(map[string]string),
	}, nil
}

// Load decrypts the store into memory. A missing store file is an empty
// store, not an error.
func (m *Manager) Load() error {
	encrypted, err := os.ReadFile(filepath.Join(m.configDir, storeFile))
	if err != nil {
		if os.IsNotExist(err) {
			m.creds = make(map[string]string)
			return nil
		}
		return fmt.Errorf("failed to read credentials file: %w", err)
	}

	key, err := m.encryptionKey()
	if err != nil {
		return err
	}
	decrypted, err := decrypt(encrypted, key)
	if err != nil {
		return fmt.Errorf("failed to decrypt credentials: %w", err)
	}
	if err := json.Unmarshal(decrypted, &m.creds); err != nil {
		return fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	return nil
}

// Save encrypts the in-memory credentials back to disk.
func (m *Manager) Save() error {
	data, err := json.MarshalIndent(m.creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	key, err := m.encryptionKey()
	if err != nil {
		return err
	}
	encrypted, err := encrypt(data, key)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.configDir, storeFile), encrypted, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}

// Set stores one credential and persists the store.
func (m *Manager) Set(name, value string) error {
	if err := m.Load(); err != nil {
		return err
	}
	m.creds[name] = value
	return m.Save()
}

// Get returns a credential by name, loading the store on first use.
func (m *Manager) Get(name string) (string, bool) {
	if len(m.creds) == 0 {
		if err := m.Load(); err != nil {
			m.log.Warnw("Failed to load credentials", "error", err)
			return "", false
		}
	}
	v, ok := m.creds[name]
	return v, ok && v != ""
}

// Delete removes a credential and persists the store.
func (m *Manager) Delete(name string) error {
	if err := m.Load(); err != nil {
		return err
	}
	delete(m.creds, name)
	return m.Save()
}

// Names lists configured credentials without exposing values.
func (m *Manager) Names() []string {
	if err := m.Load(); err != nil {
		m.log.Warnw("Failed to load credentials", "error", err)
		return nil
	}
	names := make([]string, 0, len(m.creds))
	for name, v := range m.creds {
		if v != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// EnsureAPIBearer returns the stored API bearer token, minting and
// persisting a random one when none exists yet.
func (m *Manager) EnsureAPIBearer() (string, error) {
	if err := m.Load(); err != nil {
		return "", err
	}
	if token := m.creds[KeyAPIBearer]; token != "" {
		return token, nil
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate API token: %w", err)
	}
	token := hex.EncodeToString(raw)
	m.creds[KeyAPIBearer] = token
	if err := m.Save(); err != nil {
		return "", err
	}
	m.log.Infow("Generated API bearer token", "store", filepath.Join(m.configDir, storeFile))
	return token, nil
}

// encryptionKey prefers an operator passphrase over the generated key
// file.
func (m *Manager) encryptionKey() ([]byte, error) {
	if pass := os.Getenv(passphraseEnv); pass != "" {
		return DeriveKeyFromPassword(pass), nil
	}
	return m.getOrCreateKeyFile()
}

func (m *Manager) getOrCreateKeyFile() ([]byte, error) {
	keyFile := filepath.Join(m.configDir, ".key")

	keyData, err := os.ReadFile(keyFile)
	if err == nil {
		key, err := base64.StdEncoding.DecodeString(string(keyData))
		if err == nil && len(key) == 32 {
			return key, nil
		}
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(keyFile, []byte(encoded), 0o600); err != nil {
		return nil, fmt.Errorf("failed to save key: %w", err)
	}
	return key, nil
}

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
	// Nonce is prepended so the blob is self-contained.
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
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// DeriveKeyFromPassword stretches a passphrase into an AES-256 key. The
// salt is fixed so the same passphrase always opens the same store.
func DeriveKeyFromPassword(password string) []byte {
	salt := []byte("sharingan-credential-salt-v1")
	return pbkdf2.Key([]byte(password), salt, 100000, 32, sha256.New)
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	fi, _ := os.Stdin.Stat()
	return fi.Mode()&os.ModeCharDevice != 0
}

// ReadSecret reads a value from the terminal without echoing it.
func ReadSecret() (string, error) {
	value, err := terminal.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	return string(value), nil
}
