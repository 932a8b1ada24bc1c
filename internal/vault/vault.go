// Package vault stores per-account wallet secrets on disk. Each account owns
// a directory under the configured base dir holding an encrypted snapshot of
// its mnemonic plus the local sync database.
package vault

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"freeswap/pkg/errors"
)

const (
	// SnapshotFile is the encrypted secret envelope inside an account dir.
	SnapshotFile = "vault.snapshot"
	// SyncDBFile is the account's local ledger sync database.
	SyncDBFile = "sync.db"

	envelopeVersion = 1
	shimmerCoinType = 4219

	argonTime    = uint32(2)
	argonMemKB   = uint32(64 * 1024)
	argonThreads = uint8(1)
)

var accountNameRe = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// envelope is the serialized form of an encrypted snapshot. KDF parameters
// travel with the file so they can be tightened without breaking old vaults.
type envelope struct {
	Version     int    `json:"version"`
	KDF         string `json:"kdf"`
	KDFTime     uint32 `json:"kdf_time"`
	KDFMemoryKB uint32 `json:"kdf_memory_kb"`
	KDFThreads  uint8  `json:"kdf_threads"`
	Salt        []byte `json:"salt"`
	Nonce       []byte `json:"nonce"`
	Ciphertext  []byte `json:"ciphertext"`

	Alias     string    `json:"alias"`
	CoinType  int       `json:"coin_type"`
	CreatedAt time.Time `json:"created_at"`
}

// Secret is a decrypted snapshot.
type Secret struct {
	Mnemonic string
	Alias    string
	Seed     []byte
}

// Manager owns the vault base directory.
type Manager struct {
	baseDir string
}

func NewManager(baseDir string) *Manager {
	return &Manager{baseDir: baseDir}
}

// AccountDir returns the directory holding an account's snapshot and sync db.
func (m *Manager) AccountDir(account string) string {
	return filepath.Join(m.baseDir, account)
}

// SyncDBPath returns the path of the account's local sync database.
func (m *Manager) SyncDBPath(account string) string {
	return filepath.Join(m.AccountDir(account), SyncDBFile)
}

func (m *Manager) snapshotPath(account string) string {
	return filepath.Join(m.AccountDir(account), SnapshotFile)
}

// Exists reports whether an account snapshot is present.
func (m *Manager) Exists(account string) bool {
	info, err := os.Stat(m.snapshotPath(account))
	return err == nil && info.Mode().IsRegular()
}

// Create generates a fresh mnemonic and writes a new encrypted snapshot.
// Fails when a snapshot already exists for the account name.
func (m *Manager) Create(account, alias, password string) (string, error) {
	if err := validateAccountName(account); err != nil {
		return "", err
	}
	if m.Exists(account) {
		return "", errors.ErrWalletAlreadyExists
	}

	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", err
	}

	if err := m.write(account, alias, password, mnemonic); err != nil {
		return "", err
	}
	return mnemonic, nil
}

// Recover writes a snapshot for a user-supplied mnemonic. Fails when a
// snapshot already exists so an established vault cannot be overwritten.
func (m *Manager) Recover(account, alias, password, mnemonic string) error {
	if err := validateAccountName(account); err != nil {
		return err
	}
	mnemonic = strings.TrimSpace(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return errors.ErrInvalidMnemonic
	}
	if m.Exists(account) {
		return errors.ErrWalletAlreadyExists
	}
	return m.write(account, alias, password, mnemonic)
}

// Open decrypts an account snapshot. A missing snapshot maps to
// ErrWalletNotFound, a failed decrypt to ErrInvalidCredentials.
func (m *Manager) Open(account, password string) (*Secret, error) {
	if err := validateAccountName(account); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(m.snapshotPath(account))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrWalletNotFound
		}
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("corrupted snapshot for %q: %w", account, err)
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("unsupported snapshot version: %d", env.Version)
	}
	if env.KDF != "argon2id" {
		return nil, fmt.Errorf("unsupported kdf: %s", env.KDF)
	}

	key := argon2.IDKey([]byte(password), env.Salt, env.KDFTime, env.KDFMemoryKB, env.KDFThreads, chacha20poly1305.KeySize)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, errors.ErrInvalidCredentials
	}

	mnemonic := strings.TrimSpace(string(plaintext))
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("%w: snapshot holds a corrupted mnemonic", errors.ErrInvalidMnemonic)
	}

	return &Secret{
		Mnemonic: mnemonic,
		Alias:    env.Alias,
		Seed:     bip39.NewSeed(mnemonic, ""),
	}, nil
}

// List returns account names under the base dir that contain a snapshot.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && m.Exists(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (m *Manager) write(account, alias, password, mnemonic string) error {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return err
	}

	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemKB, argonThreads, chacha20poly1305.KeySize)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return err
	}

	env := envelope{
		Version:     envelopeVersion,
		KDF:         "argon2id",
		KDFTime:     argonTime,
		KDFMemoryKB: argonMemKB,
		KDFThreads:  argonThreads,
		Salt:        salt,
		Nonce:       nonce,
		Ciphertext:  aead.Seal(nil, nonce, []byte(mnemonic), nil),
		Alias:       alias,
		CoinType:    shimmerCoinType,
		CreatedAt:   time.Now().UTC(),
	}

	data, err := json.MarshalIndent(&env, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(m.AccountDir(account), 0o700); err != nil {
		return err
	}
	return os.WriteFile(m.snapshotPath(account), data, 0o600)
}

func validateAccountName(account string) error {
	if !accountNameRe.MatchString(account) || account == "." || account == ".." {
		return fmt.Errorf("invalid account name %q", account)
	}
	return nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
