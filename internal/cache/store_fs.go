package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	dataSuffix = ".blob"
	metaSuffix = ".meta"
)

// FilesystemStore keeps each entry as a data file plus a JSON sidecar
// under root/<year>/<kind>/.
type FilesystemStore struct {
	root string
}

type metaFile struct {
	Key      string    `json:"key"`
	Size     int64     `json:"size"`
	SHA256   string    `json:"sha256"`
	StoredAt time.Time `json:"stored_at"`
}

// NewFilesystemStore creates root when needed.
func NewFilesystemStore(root string) (*FilesystemStore, error) {
	if root == "" {
		return nil, errors.New("cache directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &FilesystemStore{root: root}, nil
}

func (s *FilesystemStore) Driver() Driver { return DriverFilesystem }

// Root returns the directory the store writes under.
func (s *FilesystemStore) Root() string { return s.root }

func (s *FilesystemStore) pathFor(key Key) (dataPath, metaPath string, err error) {
	if err := key.Validate(); err != nil {
		return "", "", err
	}
	name := key.Name
	if name == "" {
		name = "table"
	}
	base := filepath.Join(s.root, fmt.Sprintf("%d", key.EndYear), string(key.Kind), name)
	return base + dataSuffix, base + metaSuffix, nil
}

func (s *FilesystemStore) Read(_ context.Context, key Key) (Entry, bool, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return Entry{}, false, err
	}

	mf, err := readMeta(metaPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	data, err := os.ReadFile(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	if int64(len(data)) != mf.Size || checksum(data) != mf.SHA256 {
		return Entry{}, false, fmt.Errorf("cache entry %s is corrupt", key)
	}

	return Entry{Key: key, Data: data, StoredAt: mf.StoredAt}, true, nil
}

// Write streams the payload to a temp file and renames it into place, then
// writes the sidecar. A crash between the two leaves an entry without a
// sidecar, which reads as absent.
func (s *FilesystemStore) Write(_ context.Context, entry Entry) error {
	dataPath, metaPath, err := s.pathFor(entry.Key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(dataPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	_ = os.Remove(metaPath)
	if err := writeAtomic(dir, dataPath, entry.Data); err != nil {
		return err
	}

	b, err := json.MarshalIndent(metaFile{
		Key:      entry.Key.String(),
		Size:     int64(len(entry.Data)),
		SHA256:   checksum(entry.Data),
		StoredAt: entry.StoredAt.UTC(),
	}, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(dir, metaPath, b)
}

func (s *FilesystemStore) Delete(_ context.Context, key Key) (bool, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return false, err
	}

	_, statErr := os.Stat(metaPath)
	existed := statErr == nil

	for _, p := range []string{metaPath, dataPath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return existed, err
		}
	}
	return existed, nil
}

func (s *FilesystemStore) List(_ context.Context) ([]EntryInfo, error) {
	var infos []EntryInfo
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, metaSuffix) {
			return nil
		}
		mf, err := readMeta(path)
		if err != nil {
			return err
		}
		key, err := ParseKey(mf.Key)
		if err != nil {
			return err
		}
		infos = append(infos, EntryInfo{Key: key, Size: mf.Size, StoredAt: mf.StoredAt})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortInfos(infos)
	return infos, nil
}

func (s *FilesystemStore) Close() error { return nil }

func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func readMeta(path string) (metaFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return metaFile{}, err
	}
	var mf metaFile
	if err := json.Unmarshal(b, &mf); err != nil {
		return metaFile{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return mf, nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func sortInfos(infos []EntryInfo) {
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key.String() < infos[j].Key.String() })
}
