// Package asset stores binary assets on disk by content address.
//
// Each asset is written once to <dir>/<checksum>.asset, where checksum is
// ir.AssetChecksum of the bytes. The returned wrapper carries a file URL to
// that copy, which is what an asset property converts to.
package asset

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/cloudrec/internal/ir"
	"github.com/roach88/cloudrec/internal/object"
)

// Ext is the file extension of stored assets.
const Ext = ".asset"

// Store is a directory of content-addressed asset files.
type Store struct {
	dir string
}

// NewStore creates the directory if needed and returns a store rooted there.
func NewStore(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("asset store: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("asset store: %w", err)
	}
	return &Store{dir: abs}, nil
}

// Dir returns the absolute directory of the store.
func (s *Store) Dir() string {
	return s.dir
}

// Put writes data and returns its wrapper. Writing the same bytes twice
// yields the same asset and does not rewrite the file.
func (s *Store) Put(data []byte) (*object.Asset, error) {
	sum := ir.AssetChecksum(data)
	path := s.path(sum)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		tmp, err := os.CreateTemp(s.dir, sum+".*.tmp")
		if err != nil {
			return nil, fmt.Errorf("put asset: %w", err)
		}
		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return nil, fmt.Errorf("put asset: %w", err)
		}
		if err := tmp.Close(); err != nil {
			os.Remove(tmp.Name())
			return nil, fmt.Errorf("put asset: %w", err)
		}
		if err := os.Rename(tmp.Name(), path); err != nil {
			os.Remove(tmp.Name())
			return nil, fmt.Errorf("put asset: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("put asset: %w", err)
	}

	return object.NewAsset(ir.IRAsset{
		FileURL:  fileURL(path),
		Checksum: sum,
		Size:     int64(len(data)),
	}), nil
}

// PutFile copies a file into the store.
func (s *Store) PutFile(path string) (*object.Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("put asset file: %w", err)
	}
	return s.Put(data)
}

// Read returns the bytes of an asset held by this store and verifies them
// against the checksum.
func (s *Store) Read(a *object.Asset) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("read asset: nil asset")
	}
	ref := a.Ref()
	data, err := os.ReadFile(s.path(ref.Checksum))
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", ref.Checksum, err)
	}
	if sum := ir.AssetChecksum(data); sum != ref.Checksum {
		return nil, fmt.Errorf("read asset %s: checksum mismatch (got %s)", ref.Checksum, sum)
	}
	return data, nil
}

// Open returns the wrapper of an already stored asset by checksum.
func (s *Store) Open(checksum string) (*object.Asset, error) {
	if strings.ContainsAny(checksum, `/\.`) {
		return nil, fmt.Errorf("open asset: invalid checksum %q", checksum)
	}
	path := s.path(checksum)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open asset %s: %w", checksum, err)
	}
	return object.NewAsset(ir.IRAsset{
		FileURL:  fileURL(path),
		Checksum: checksum,
		Size:     info.Size(),
	}), nil
}

func (s *Store) path(checksum string) string {
	return filepath.Join(s.dir, checksum+Ext)
}

func fileURL(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}
