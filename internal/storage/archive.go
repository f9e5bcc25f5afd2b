package storage

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/stockfloat/internal/domain"
)

const archivePrefix = "uploads/"

// ArchivedUpload is one raw upload kept in object storage.
type ArchivedUpload struct {
	Key        string          `json:"key"`
	Category   domain.Category `json:"category"`
	FileName   string          `json:"fileName"`
	Size       int64           `json:"size"`
	ArchivedAt time.Time       `json:"archivedAt"`
}

// Archive stores raw uploads as uploads/<category>/<yyyymmddThhmmss>-<file>.
type Archive struct {
	objects ObjectStorage
	now     func() time.Time
}

// NewArchive wraps an object store.
func NewArchive(objects ObjectStorage) *Archive {
	return &Archive{objects: objects, now: time.Now}
}

// Put archives data and returns its key.
func (a *Archive) Put(ctx context.Context, category domain.Category, fileName string, data []byte) (string, error) {
	key := archivePrefix + string(category) + "/" + a.now().UTC().Format("20060102T150405") + "-" + path.Base(fileName)
	if err := a.objects.UploadObject(ctx, key, data); err != nil {
		return "", fmt.Errorf("archive %s: %w", fileName, err)
	}
	return key, nil
}

// List returns archived uploads for category (all categories when empty), newest first.
func (a *Archive) List(ctx context.Context, category domain.Category) ([]ArchivedUpload, error) {
	prefix := archivePrefix
	if category != "" {
		prefix += string(category) + "/"
	}
	objects, err := a.objects.ListObjects(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]ArchivedUpload, 0, len(objects))
	for _, o := range objects {
		up, ok := ParseArchiveKey(o.Key)
		if !ok {
			continue
		}
		up.Size = o.Size
		out = append(out, up)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ArchivedAt.Equal(out[j].ArchivedAt) {
			return out[i].ArchivedAt.After(out[j].ArchivedAt)
		}
		return out[i].Key > out[j].Key
	})
	return out, nil
}

// Fetch reads an archived upload back.
func (a *Archive) Fetch(ctx context.Context, key string) (ArchivedUpload, []byte, error) {
	up, ok := ParseArchiveKey(key)
	if !ok {
		return ArchivedUpload{}, nil, fmt.Errorf("not an archive key: %q", key)
	}
	data, err := a.objects.GetObject(ctx, key)
	if err != nil {
		return ArchivedUpload{}, nil, err
	}
	up.Size = int64(len(data))
	return up, data, nil
}

// ParseArchiveKey splits an archive key into its parts.
func ParseArchiveKey(key string) (ArchivedUpload, bool) {
	rest, ok := strings.CutPrefix(key, archivePrefix)
	if !ok {
		return ArchivedUpload{}, false
	}
	cat, file, ok := strings.Cut(rest, "/")
	if !ok {
		return ArchivedUpload{}, false
	}
	category, ok := domain.ParseCategory(cat)
	if !ok {
		return ArchivedUpload{}, false
	}
	stamp, name, ok := strings.Cut(file, "-")
	if !ok || name == "" {
		return ArchivedUpload{}, false
	}
	at, err := time.Parse("20060102T150405", stamp)
	if err != nil {
		return ArchivedUpload{}, false
	}
	return ArchivedUpload{Key: key, Category: category, FileName: name, ArchivedAt: at}, true
}
