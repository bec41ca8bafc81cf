package blob

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// LocalFS stores blobs as files under a root directory. Development and
// single-node deployments only; upload authorization uses HMAC-signed
// expiring URLs served back through the daemon's upload endpoint.
type LocalFS struct {
	root    string
	baseURL string
	secret  []byte
}

// NewLocalFS creates the root directory if needed.
func NewLocalFS(root, baseURL, secret string) (*LocalFS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root %s: %w", root, err)
	}
	return &LocalFS{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
	}, nil
}

var _ Store = (*LocalFS)(nil)

func (l *LocalFS) abs(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(l.root, clean), nil
}

// Put writes to a temp file and renames it into place, so concurrent readers
// never observe a partial object.
func (l *LocalFS) Put(ctx context.Context, key string, body []byte, contentType string) error {
	abs, err := l.abs(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(abs), ".put-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), abs)
}

func (l *LocalFS) Get(ctx context.Context, key string) ([]byte, error) {
	abs, err := l.abs(key)
	if err != nil {
		return nil, err
	}
	body, err := os.ReadFile(abs)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return body, err
}

func (l *LocalFS) Exists(ctx context.Context, key string) (bool, error) {
	abs, err := l.abs(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (l *LocalFS) Delete(ctx context.Context, key string) error {
	abs, err := l.abs(key)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (l *LocalFS) List(ctx context.Context, prefix string, max int32) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(filepath.Base(key), ".put-") {
			return nil
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	if int32(len(keys)) > max {
		keys = keys[:max]
	}
	return keys, nil
}

// PresignPut returns a daemon-served upload URL carrying an expiry and an
// HMAC signature over the key and expiry.
func (l *LocalFS) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if _, err := l.abs(key); err != nil {
		return "", err
	}
	exp := time.Now().Add(ttl).Unix()
	sig := l.sign(key, exp)
	return fmt.Sprintf("%s/v1/uploads/%s?exp=%d&sig=%s", l.baseURL, key, exp, sig), nil
}

// VerifyUpload checks an upload URL's signature and expiry.
func (l *LocalFS) VerifyUpload(key string, exp int64, sig string) error {
	if time.Now().Unix() > exp {
		return fmt.Errorf("upload authorization expired")
	}
	want := l.sign(key, exp)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return fmt.Errorf("upload signature mismatch")
	}
	return nil
}

func (l *LocalFS) sign(key string, exp int64) string {
	mac := hmac.New(sha256.New, l.secret)
	mac.Write([]byte(key))
	mac.Write([]byte("\n"))
	mac.Write([]byte(strconv.FormatInt(exp, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

func (l *LocalFS) URI(key string) string {
	return "file://" + filepath.ToSlash(filepath.Join(l.root, filepath.FromSlash(key)))
}
