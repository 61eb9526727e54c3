package store

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
)

// FileStore persists the whole namespace as one JSON snapshot through the
// viant/afs abstraction, so the location may be a local path or any afs URL.
// It is a lightweight way to survive process restarts for CLI and single-host
// services.
type FileStore struct {
	mux     sync.Mutex
	URL     string
	service afs.Service
	entries map[string]json.RawMessage
}

// NewFileStore creates a store persisted at the given afs URL or local path.
func NewFileStore(URL string) (*FileStore, error) {
	ret := &FileStore{
		URL:     URL,
		service: afs.New(),
		entries: map[string]json.RawMessage{},
	}
	if err := ret.load(context.Background()); err != nil {
		return nil, err
	}
	return ret, nil
}

func (f *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	value, ok := f.entries[key]
	return value, ok, nil
}

func (f *FileStore) Set(ctx context.Context, key string, value []byte) error {
	f.mux.Lock()
	defer f.mux.Unlock()
	f.entries[key] = value
	return f.save(ctx)
}

func (f *FileStore) Delete(ctx context.Context, key string) error {
	f.mux.Lock()
	defer f.mux.Unlock()
	if _, ok := f.entries[key]; !ok {
		return nil
	}
	delete(f.entries, key)
	return f.save(ctx)
}

func (f *FileStore) Consume(ctx context.Context, key string) ([]byte, bool, error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	value, ok := f.entries[key]
	if !ok {
		return nil, false, nil
	}
	delete(f.entries, key)
	return value, true, f.save(ctx)
}

func (f *FileStore) load(ctx context.Context) error {
	exists, err := f.service.Exists(ctx, f.URL)
	if err != nil || !exists {
		return err
	}
	data, err := f.service.DownloadWithURL(ctx, f.URL)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &f.entries)
}

func (f *FileStore) save(ctx context.Context) error {
	data, err := json.MarshalIndent(f.entries, "", "  ")
	if err != nil {
		return err
	}
	return f.service.Upload(ctx, f.URL, file.DefaultFileOsMode, bytes.NewReader(data))
}
