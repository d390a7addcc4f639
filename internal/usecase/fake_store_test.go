package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/semmidev/blobber/internal/domain"
)

// fakeStore is an in-memory BlobStore for one or more containers.
type fakeStore struct {
	mu    sync.Mutex
	blobs map[string]map[string][]byte

	listErr   error
	uploadErr error
	deleteErr map[string]error

	deleteCalls   atomic.Int32
	inFlight      atomic.Int32
	maxInFlight   atomic.Int32
	deleteLatency time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		blobs:     make(map[string]map[string][]byte),
		deleteErr: make(map[string]error),
	}
}

func (f *fakeStore) put(container, name string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.blobs[container] == nil {
		f.blobs[container] = make(map[string][]byte)
	}
	f.blobs[container][name] = data
}

func (f *fakeStore) get(container, name string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[container][name]
	return data, ok
}

func (f *fakeStore) names(container string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for name := range f.blobs[container] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (f *fakeStore) ListContainers(ctx context.Context) ([]domain.Container, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Container
	for name := range f.blobs {
		out = append(out, domain.Container{Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) ListBlobs(ctx context.Context, container string) ([]domain.Blob, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Blob
	for _, name := range f.names(container) {
		out = append(out, domain.Blob{Name: name})
	}
	return out, nil
}

func (f *fakeStore) UploadFile(ctx context.Context, container, blobName, localPath string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	f.put(container, blobName, data)
	return nil
}

func (f *fakeStore) UploadStream(ctx context.Context, container, blobName string, r io.Reader) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.put(container, blobName, data)
	return nil
}

func (f *fakeStore) DeleteBlob(ctx context.Context, container, blobName string) error {
	f.deleteCalls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		max := f.maxInFlight.Load()
		if n <= max || f.maxInFlight.CompareAndSwap(max, n) {
			break
		}
	}
	if f.deleteLatency > 0 {
		time.Sleep(f.deleteLatency)
	}

	if err := f.deleteErr[blobName]; err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.blobs[container][blobName]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, blobName)
	}
	delete(f.blobs[container], blobName)
	return nil
}

func (f *fakeStore) URL(container, blobName string) string {
	return "https://acct.blob.core.windows.net/" + container + "/" + blobName
}

var _ domain.BlobStore = (*fakeStore)(nil)
