package firebase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go"
	"github.com/google/uuid"
)

var ErrNotConfigured = errors.New("firebase storage not configured")

// StoredObject is an uploaded file: its public URL and the path needed to delete it later.
type StoredObject struct {
	URL        string
	ObjectPath string
}

// StorageClient abstracts product image hosting so handlers can be tested without Firebase.
type StorageClient interface {
	UploadProductImage(ctx context.Context, productID uuid.UUID, file io.Reader, filename, contentType string) (StoredObject, error)
	ImportProductImage(ctx context.Context, productID uuid.UUID, imageURL string) (StoredObject, error)
	DeleteObject(ctx context.Context, objectPath string) error
}

// BucketStorage stores objects in one Firebase Storage bucket under products/<id>/.
type BucketStorage struct {
	app        *firebase.App
	bucketName string
	httpClient *http.Client
}

func NewBucketStorage(app *firebase.App, bucketName string) *BucketStorage {
	return &BucketStorage{
		app:        app,
		bucketName: bucketName,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func productObjectPath(productID uuid.UUID, filename string) string {
	return fmt.Sprintf("products/%s/%d_%s", productID, time.Now().UnixNano(), sanitizeFilename(filename))
}

func (s *BucketStorage) bucket(ctx context.Context) (*storage.BucketHandle, error) {
	if s == nil || s.app == nil || s.bucketName == "" {
		return nil, ErrNotConfigured
	}
	client, err := s.app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage client: %w", err)
	}
	return client.Bucket(s.bucketName)
}

func (s *BucketStorage) write(ctx context.Context, objectPath, contentType string, body io.Reader) (StoredObject, error) {
	bucket, err := s.bucket(ctx)
	if err != nil {
		return StoredObject{}, err
	}

	obj := bucket.Object(objectPath)
	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType

	if _, err := io.Copy(wc, body); err != nil {
		wc.Close()
		return StoredObject{}, fmt.Errorf("failed to upload %s: %w", objectPath, err)
	}
	if err := wc.Close(); err != nil {
		return StoredObject{}, fmt.Errorf("failed to finalize upload: %w", err)
	}

	if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		log.Printf("WARNING: failed to set public ACL on %s: %v", objectPath, err)
	}

	return StoredObject{URL: PublicURL(s.bucketName, objectPath), ObjectPath: objectPath}, nil
}

func (s *BucketStorage) UploadProductImage(ctx context.Context, productID uuid.UUID, file io.Reader, filename, contentType string) (StoredObject, error) {
	return s.write(ctx, productObjectPath(productID, filename), contentType, file)
}

// ImportProductImage downloads imageURL and stores it as a product image.
func (s *BucketStorage) ImportProductImage(ctx context.Context, productID uuid.UUID, imageURL string) (StoredObject, error) {
	if err := validateExternalURL(imageURL); err != nil {
		return StoredObject{}, fmt.Errorf("URL validation failed for %s: %w", imageURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return StoredObject{}, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return StoredObject{}, fmt.Errorf("failed to download image from %s: %w", imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return StoredObject{}, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return StoredObject{}, fmt.Errorf("URL %s returned non-image content-type %q", imageURL, contentType)
	}

	filename := uuid.New().String()[:8] + ".jpg"
	return s.write(ctx, productObjectPath(productID, filename), contentType, resp.Body)
}

func (s *BucketStorage) DeleteObject(ctx context.Context, objectPath string) error {
	bucket, err := s.bucket(ctx)
	if err != nil {
		return err
	}

	if err := bucket.Object(objectPath).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", objectPath, err)
	}

	log.Printf("Deleted file %s from bucket %s", objectPath, s.bucketName)
	return nil
}
