package photo

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/constructtrack/internal/kvstore"
	"go.uber.org/fx"
)

var (
	ErrNotFound     = errors.New("photo_not_found")
	ErrInvalidImage = errors.New("invalid_image")
)

const maxImageBytes = 15 << 20

// Image is a decoded attachment.
type Image struct {
	ContentType string
	Data        []byte
}

// DataURL renders the image in the data URL form clients upload.
func (i Image) DataURL() string {
	return "data:" + i.ContentType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// ParseDataURL decodes "data:<mime>;base64,<payload>".
func ParseDataURL(raw string) (Image, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "data:") {
		return Image{}, ErrInvalidImage
	}
	header, payload, ok := strings.Cut(raw[len("data:"):], ",")
	if !ok {
		return Image{}, ErrInvalidImage
	}
	contentType, encoding, ok := strings.Cut(header, ";")
	if !ok || encoding != "base64" || !strings.HasPrefix(contentType, "image/") {
		return Image{}, ErrInvalidImage
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return Image{}, ErrInvalidImage
	}
	img := Image{ContentType: contentType, Data: data}
	if err := img.Validate(); err != nil {
		return Image{}, err
	}
	return img, nil
}

func (i Image) Validate() error {
	if len(i.Data) == 0 || len(i.Data) > maxImageBytes {
		return ErrInvalidImage
	}
	if !strings.HasPrefix(i.ContentType, "image/") {
		return ErrInvalidImage
	}
	return nil
}

func ProjectPhotoKey(projectID, photoID snowflake.ID) string {
	return fmt.Sprintf("proj-%s-%s", projectID, photoID)
}

func PunchListPhotoKey(projectID, itemID, photoID snowflake.ID) string {
	return fmt.Sprintf("punch-%s-%s-%s", projectID, itemID, photoID)
}

func ReceiptKey(receiptID string) string {
	return "receipt-" + receiptID
}

// NewReceiptID allocates a sortable id for a scanned receipt.
func NewReceiptID() string {
	return ulid.Make().String()
}

// Store keeps photo payloads outside the relational rows that describe them.
type Store struct {
	kv kvstore.Store
}

func NewStore(kv kvstore.Store) *Store {
	return &Store{kv: kv}
}

var Module = fx.Module("photo.store",
	fx.Provide(NewStore),
)

func (s *Store) Put(ctx context.Context, key string, img Image) error {
	if err := img.Validate(); err != nil {
		return err
	}
	return s.kv.Put(ctx, key, []byte(img.DataURL()))
}

func (s *Store) Get(ctx context.Context, key string) (Image, error) {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return Image{}, ErrNotFound
	}
	if err != nil {
		return Image{}, err
	}
	return ParseDataURL(string(raw))
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.kv.Delete(ctx, key)
}

// DeleteProject removes every project and punch list photo of a project.
func (s *Store) DeleteProject(ctx context.Context, projectID snowflake.ID) (int64, error) {
	projectPhotos, err := s.kv.DeletePrefix(ctx, fmt.Sprintf("proj-%s-", projectID))
	if err != nil {
		return projectPhotos, err
	}
	punchPhotos, err := s.kv.DeletePrefix(ctx, fmt.Sprintf("punch-%s-", projectID))
	return projectPhotos + punchPhotos, err
}
