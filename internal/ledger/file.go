package ledger

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lox/blackjack/internal/fileutil"
)

// FileStore writes one JSON document per account into a directory. Writes
// are atomic renames. Adjustments are serialised within the process only, so
// a directory must not be shared by two running processes.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("empty account directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, url.PathEscape(id)+".json")
}

func (s *FileStore) Load(_ context.Context, id string) (Account, error) {
	var acct Account
	if err := fileutil.ReadJSON(s.path(id), &acct); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	return acct, nil
}

func (s *FileStore) Save(_ context.Context, acct Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fileutil.WriteJSONAtomic(s.path(acct.ID), acct)
}

func (s *FileStore) Adjust(ctx context.Context, id string, d Delta) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, err := s.Load(ctx, id)
	if err != nil {
		return Account{}, err
	}
	next, err := d.apply(acct)
	if err != nil {
		return Account{}, err
	}
	if err := fileutil.WriteJSONAtomic(s.path(id), next); err != nil {
		return Account{}, err
	}
	return next, nil
}

func (s *FileStore) List(ctx context.Context) ([]Account, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []Account
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		acct, err := s.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
