package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-]+$`)

// SealFile seals template and writes it to path. The blob is complete in memory
// before anything touches the disk, and it replaces path atomically.
func SealFile(path string, template, passphrase []byte, opts ...Option) error {
	blob, err := Seal(template, passphrase, opts...)
	if err != nil {
		return err
	}

	if err := writeAtomic(path, blob); err != nil {
		return err
	}
	newOptions(opts...).logger.Info("template sealed", "path", path, "length", len(blob))

	return nil
}

// OpenFile reads and decrypts a file written by SealFile.
func OpenFile(path string, passphrase []byte, opts ...Option) ([]byte, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotEnrolled, path)
		}
		return nil, fmt.Errorf("vault: read %s: %w", path, err)
	}

	template, err := OpenBlob(blob, passphrase, opts...)
	if err != nil {
		newOptions(opts...).logger.Warn("template could not be opened", "path", path, "length", len(blob))
		return nil, err
	}

	return template, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("vault: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("vault: create temporary file: %w", err)
	}
	defer func() {
		// no-op once renamed
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("vault: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("vault: sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("vault: close %s: %w", tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("vault: rename to %s: %w", path, err)
	}

	return nil
}

// Vault maps user identifiers to sealed files under one directory.
type Vault struct {
	dir  string
	opts []Option
}

func New(dir string, opts ...Option) *Vault {
	return &Vault{
		dir:  dir,
		opts: opts,
	}
}

// Path returns <dir>/user_<id>.bin. Identifiers are restricted to letters,
// digits, underscore and dash.
func (v *Vault) Path(id string) (string, error) {
	if !idPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	return filepath.Join(v.dir, "user_"+id+".bin"), nil
}

// Put seals template for id and returns the file path.
func (v *Vault) Put(id string, template, passphrase []byte) (string, error) {
	path, err := v.Path(id)
	if err != nil {
		return "", err
	}

	if err := SealFile(path, template, passphrase, v.opts...); err != nil {
		return "", err
	}

	return path, nil
}

func (v *Vault) Get(id string, passphrase []byte) ([]byte, error) {
	path, err := v.Path(id)
	if err != nil {
		return nil, err
	}

	return OpenFile(path, passphrase, v.opts...)
}

// OpenPath opens a sealed file that may live outside the vault directory,
// using the vault's key derivation settings.
func (v *Vault) OpenPath(path string, passphrase []byte) ([]byte, error) {
	return OpenFile(path, passphrase, v.opts...)
}

func (v *Vault) Exists(id string) (bool, error) {
	path, err := v.Path(id)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("vault: stat %s: %w", path, err)
	}
}

// Dir returns the directory holding the sealed files.
func (v *Vault) Dir() string {
	return v.dir
}
