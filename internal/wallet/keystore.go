package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	klog "github.com/DebuggerAu/kin-sdk-core/internal/log"
	"github.com/DebuggerAu/kin-sdk-core/pkg/crypto"
	"github.com/ethereum/go-ethereum/common"
)

// Custody errors. UnlockAndSign returns one of these (possibly wrapped) for
// every refusal to sign.
var (
	ErrWrongPassphrase = errors.New("wrong passphrase")
	ErrAccountNotFound = errors.New("account not found")
	ErrCorruptedKey    = errors.New("corrupted key file")
	ErrAccountExists   = errors.New("account already exists")
)

const (
	keyFileVersion = 1
	keyFileExt     = ".key"
)

// keyFile is the on-disk JSON format for one encrypted account key.
type keyFile struct {
	Version   int        `json:"version"`
	Address   string     `json:"address"`
	Name      string     `json:"name,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	Crypto    *sealedKey `json:"crypto"`
}

// Keystore manages encrypted account keys on disk, one file per account.
//
// The keystore never caches decrypted keys: every UnlockAndSign call reads,
// decrypts, signs and zeroes within the call.
type Keystore struct {
	path string
	mu   sync.RWMutex
}

// NewKeystore creates a keystore that reads/writes to the given directory.
// The directory is created if it doesn't exist.
func NewKeystore(path string) (*Keystore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: path}, nil
}

// Dir returns the keystore directory.
func (ks *Keystore) Dir() string {
	return ks.path
}

func (ks *Keystore) keyPath(ref string) string {
	return filepath.Join(ks.path, ref+keyFileExt)
}

// Create generates a new random key and stores it sealed under passphrase.
func (ks *Keystore) Create(name string, passphrase []byte, params EncryptionParams) (Account, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return Account{}, err
	}
	defer key.Zero()
	return ks.store(name, key, passphrase, params)
}

// Import stores an existing 32-byte private key sealed under passphrase.
func (ks *Keystore) Import(name string, privKey, passphrase []byte, params EncryptionParams) (Account, error) {
	key, err := crypto.PrivateKeyFromBytes(privKey)
	if err != nil {
		return Account{}, fmt.Errorf("import key: %w", err)
	}
	defer key.Zero()
	return ks.store(name, key, passphrase, params)
}

// ImportMnemonic derives the key at m/44'/60'/0'/0/index from a BIP-39
// mnemonic (with optional BIP-39 passphrase) and stores it sealed under
// passphrase. The mnemonic itself is not stored.
func (ks *Keystore) ImportMnemonic(name, mnemonic, mnemonicPass string, index uint32, passphrase []byte, params EncryptionParams) (Account, error) {
	key, err := DeriveFromMnemonic(mnemonic, mnemonicPass, AccountPath(index))
	if err != nil {
		return Account{}, err
	}
	defer key.Zero()
	return ks.store(name, key, passphrase, params)
}

func (ks *Keystore) store(name string, key *crypto.PrivateKey, passphrase []byte, params EncryptionParams) (Account, error) {
	addr := key.Address()
	ref := refFor(addr)

	secret := key.Serialize()
	defer zero(secret)

	sealed, err := seal(secret, passphrase, params)
	if err != nil {
		return Account{}, fmt.Errorf("seal key: %w", err)
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	path := ks.keyPath(ref)
	if _, err := os.Stat(path); err == nil {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountExists, addr.Hex())
	}

	kf := keyFile{
		Version:   keyFileVersion,
		Address:   addr.Hex(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Crypto:    sealed,
	}
	if err := ks.writeFile(path, &kf); err != nil {
		return Account{}, err
	}

	klog.Wallet.Info().Str("address", addr.Hex()).Str("name", name).Msg("Account stored")
	return Account{Address: addr, Ref: ref, Name: name}, nil
}

// Accounts returns every account in the keystore, sorted by address.
// Unreadable files are skipped with a warning.
func (ks *Keystore) Accounts() ([]Account, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	entries, err := os.ReadDir(ks.path)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}

	accounts := make([]Account, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != keyFileExt {
			continue
		}
		ref := strings.TrimSuffix(name, keyFileExt)
		acct, err := ks.account(ref)
		if err != nil {
			klog.Wallet.Warn().Err(err).Str("file", name).Msg("Skipping unreadable key file")
			continue
		}
		accounts = append(accounts, acct)
	}

	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Ref < accounts[j].Ref })
	return accounts, nil
}

// Account resolves a reference or address to its account.
func (ks *Keystore) Account(ref string) (Account, error) {
	r, ok := parseRef(ref)
	if !ok {
		return Account{}, fmt.Errorf("%w: invalid reference %q", ErrAccountNotFound, ref)
	}

	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return ks.account(r)
}

func (ks *Keystore) account(ref string) (Account, error) {
	kf, err := ks.readFile(ks.keyPath(ref))
	if err != nil {
		return Account{}, err
	}
	addr := common.HexToAddress(kf.Address)
	if refFor(addr) != ref {
		return Account{}, fmt.Errorf("%w: file %s holds address %s", ErrCorruptedKey, ref, kf.Address)
	}
	return Account{Address: addr, Ref: ref, Name: kf.Name}, nil
}

// Delete removes an account's key file.
func (ks *Keystore) Delete(ref string) error {
	r, ok := parseRef(ref)
	if !ok {
		return fmt.Errorf("%w: invalid reference %q", ErrAccountNotFound, ref)
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	path := ks.keyPath(r)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, ref)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete key file: %w", err)
	}
	klog.Wallet.Info().Str("ref", r).Msg("Account deleted")
	return nil
}

// UnlockAndSign decrypts the key for ref with passphrase, signs the 32-byte
// digest, and zeroes the key before returning. The result is a 65-byte
// R|S|V signature.
//
// Failures are ErrAccountNotFound, ErrWrongPassphrase or ErrCorruptedKey.
func (ks *Keystore) UnlockAndSign(ref string, passphrase, digest []byte) ([]byte, error) {
	r, ok := parseRef(ref)
	if !ok {
		return nil, fmt.Errorf("%w: invalid reference %q", ErrAccountNotFound, ref)
	}

	ks.mu.RLock()
	kf, err := ks.readFile(ks.keyPath(r))
	ks.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	secret, err := kf.Crypto.open(passphrase)
	if err != nil {
		klog.Wallet.Debug().Str("ref", r).Err(err).Msg("Unlock refused")
		return nil, err
	}
	defer zero(secret)

	key, err := crypto.PrivateKeyFromBytes(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedKey, err)
	}
	defer key.Zero()

	if key.Address() != common.HexToAddress(kf.Address) {
		return nil, fmt.Errorf("%w: key does not match address %s", ErrCorruptedKey, kf.Address)
	}

	sig, err := key.Sign(digest)
	if err != nil {
		return nil, fmt.Errorf("sign digest: %w", err)
	}
	return sig, nil
}

// ChangePassphrase re-seals an account key under a new passphrase.
func (ks *Keystore) ChangePassphrase(ref string, oldPass, newPass []byte, params EncryptionParams) error {
	r, ok := parseRef(ref)
	if !ok {
		return fmt.Errorf("%w: invalid reference %q", ErrAccountNotFound, ref)
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	path := ks.keyPath(r)
	kf, err := ks.readFile(path)
	if err != nil {
		return err
	}

	secret, err := kf.Crypto.open(oldPass)
	if err != nil {
		return err
	}
	defer zero(secret)

	sealed, err := seal(secret, newPass, params)
	if err != nil {
		return fmt.Errorf("seal key: %w", err)
	}
	kf.Crypto = sealed
	return ks.writeFile(path, kf)
}

func (ks *Keystore) writeFile(path string, kf *keyFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal key file: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}

func (ks *Keystore) readFile(path string) (*keyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, filepath.Base(path))
		}
		return nil, fmt.Errorf("read key file: %w", err)
	}
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrCorruptedKey, err)
	}
	if kf.Version != keyFileVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptedKey, kf.Version)
	}
	if kf.Crypto == nil {
		return nil, fmt.Errorf("%w: no sealed key", ErrCorruptedKey)
	}
	if !common.IsHexAddress(kf.Address) {
		return nil, fmt.Errorf("%w: bad address %q", ErrCorruptedKey, kf.Address)
	}
	return &kf, nil
}
