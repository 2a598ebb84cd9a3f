package episode

import (
	"context"
	"sync"

	"github.com/Belphemur/ArchiveSync/internal/apperrors"
	"github.com/Belphemur/ArchiveSync/internal/models"
)

// fakeArchive serves videos and thumbnails from memory.
type fakeArchive struct {
	videos       map[string]*models.ArchiveVideo
	thumbnails   map[string][]byte
	thumbnailErr error
}

func (f *fakeArchive) GetVideo(_ context.Context, id string) (*models.ArchiveVideo, error) {
	v, ok := f.videos[id]
	if !ok {
		return nil, apperrors.NewRemoteLookupFailure("archive", "video "+id, apperrors.NewNotFoundError("video", id))
	}
	return v, nil
}

func (f *fakeArchive) GetThumbnail(_ context.Context, reference string) ([]byte, error) {
	if f.thumbnailErr != nil {
		return nil, f.thumbnailErr
	}
	blob, ok := f.thumbnails[reference]
	if !ok {
		return nil, apperrors.NewRemoteLookupFailure("archive", "thumbnail "+reference, apperrors.NewNotFoundError("thumbnail", reference))
	}
	return blob, nil
}

// fakeMediaServer keeps the last written state per path and records call order.
type fakeMediaServer struct {
	mu        sync.Mutex
	items     map[string]*models.ItemUpdate
	images    map[string][]byte
	calls     []string
	itemErr   error
	imageErrs []error
}

func newFakeMediaServer() *fakeMediaServer {
	return &fakeMediaServer{
		items:  make(map[string]*models.ItemUpdate),
		images: make(map[string][]byte),
	}
}

func (f *fakeMediaServer) UpdateItem(_ context.Context, path string, payload *models.ItemUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "item:"+path)
	if f.itemErr != nil {
		return f.itemErr
	}
	f.items[path] = payload
	return nil
}

func (f *fakeMediaServer) UpdateItemImage(_ context.Context, path string, image []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "image:"+path)
	if len(f.imageErrs) > 0 {
		err := f.imageErrs[0]
		f.imageErrs = f.imageErrs[1:]
		if err != nil {
			return err
		}
	}
	f.images[path] = image
	return nil
}
