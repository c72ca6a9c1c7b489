package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"
	"time"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/dafibh/kitty/kitty-backend/internal/repository/storage"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	MaxReceiptSize       = 5 * 1024 * 1024 // 5MB
	MinReceiptWidth      = 50
	MinReceiptHeight     = 50
	ThumbnailWidth       = 200
	DisplayWidth         = 1200
	JPEGQuality          = 85
	ReceiptURLExpiry     = 15 * time.Minute
	receiptThumbSuffix   = "_thumb.jpg"
	receiptDisplaySuffix = "_display.jpg"
)

var (
	ErrReceiptTooLarge             = errors.New("file too large. Maximum size is 5MB")
	ErrReceiptInvalidFormat        = errors.New("invalid format. Supported: JPEG, PNG")
	ErrReceiptTooSmall             = errors.New("image too small. Minimum 50x50 pixels")
	ErrReceiptInvalidData          = errors.New("invalid image data")
	ErrReceiptStorageNotConfigured = errors.New("receipt storage not configured")
)

// AllowedReceiptExtensions maps extensions to content types
var AllowedReceiptExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// ReceiptURLs are presigned links to a stored receipt
type ReceiptURLs struct {
	ThumbnailURL string    `json:"thumbnailUrl"`
	DisplayURL   string    `json:"displayUrl"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// ReceiptService validates, resizes and stores proof-of-payment images
type ReceiptService struct {
	storage  storage.ReceiptStorage
	payments *PaymentService
}

// NewReceiptService creates a new ReceiptService. storage may be nil when
// receipt storage is not configured.
func NewReceiptService(storage storage.ReceiptStorage, payments *PaymentService) *ReceiptService {
	return &ReceiptService{storage: storage, payments: payments}
}

// IsEnabled indicates whether uploads are supported (storage configured).
func (s *ReceiptService) IsEnabled() bool {
	return s != nil && s.storage != nil
}

// validateAndDecode checks size, extension and dimensions
func (s *ReceiptService) validateAndDecode(data []byte, filename string) (image.Image, error) {
	if len(data) > MaxReceiptSize {
		return nil, ErrReceiptTooLarge
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := AllowedReceiptExtensions[ext]; !ok {
		return nil, ErrReceiptInvalidFormat
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrReceiptInvalidData
	}
	bounds := img.Bounds()
	if bounds.Dx() < MinReceiptWidth || bounds.Dy() < MinReceiptHeight {
		return nil, ErrReceiptTooSmall
	}
	return img, nil
}

// UploadReceipt stores the image variants and attaches the display variant to
// the payment. A previous receipt is removed after the new one is attached.
func (s *ReceiptService) UploadReceipt(ctx context.Context, actor domain.Actor, paymentID uuid.UUID, data []byte, filename string) (*domain.Payment, error) {
	if !s.IsEnabled() {
		return nil, ErrReceiptStorageNotConfigured
	}

	img, err := s.validateAndDecode(data, filename)
	if err != nil {
		return nil, err
	}

	payment, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	previous := payment.ReceiptPath

	base := fmt.Sprintf("%s/%s/%s", payment.PeriodID, payment.ID, uuid.New())
	variants := []struct {
		suffix   string
		maxWidth int
	}{
		{receiptThumbSuffix, ThumbnailWidth},
		{receiptDisplaySuffix, DisplayWidth},
	}

	var uploaded []string
	for _, v := range variants {
		processed := img
		if img.Bounds().Dx() > v.maxWidth {
			processed = imaging.Resize(img, v.maxWidth, 0, imaging.Lanczos)
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, processed, &jpeg.Options{Quality: JPEGQuality}); err != nil {
			s.cleanup(ctx, uploaded)
			return nil, fmt.Errorf("failed to encode receipt: %w", err)
		}

		path, err := s.storage.Upload(ctx, base+v.suffix, bytes.NewReader(buf.Bytes()), "image/jpeg", int64(buf.Len()))
		if err != nil {
			s.cleanup(ctx, uploaded)
			return nil, err
		}
		uploaded = append(uploaded, path)
	}

	updated, err := s.payments.AttachReceipt(ctx, actor, paymentID, base+receiptDisplaySuffix)
	if err != nil {
		s.cleanup(ctx, uploaded)
		return nil, err
	}

	if previous != nil {
		s.cleanup(ctx, variantPaths(*previous))
	}
	return updated, nil
}

// ReceiptURLs presigns both variants of a payment's receipt
func (s *ReceiptService) ReceiptURLs(ctx context.Context, payment *domain.Payment) (*ReceiptURLs, error) {
	if !s.IsEnabled() {
		return nil, ErrReceiptStorageNotConfigured
	}
	if payment.ReceiptPath == nil {
		return nil, nil
	}

	paths := variantPaths(*payment.ReceiptPath)
	thumb, err := s.storage.GeneratePresignedURL(ctx, paths[0], ReceiptURLExpiry)
	if err != nil {
		return nil, err
	}
	display, err := s.storage.GeneratePresignedURL(ctx, paths[1], ReceiptURLExpiry)
	if err != nil {
		return nil, err
	}
	return &ReceiptURLs{
		ThumbnailURL: thumb,
		DisplayURL:   display,
		ExpiresAt:    time.Now().Add(ReceiptURLExpiry),
	}, nil
}

// cleanup deletes objects, best effort
func (s *ReceiptService) cleanup(ctx context.Context, paths []string) {
	for _, p := range paths {
		if err := s.storage.Delete(ctx, p); err != nil {
			log.Warn().Err(err).Str("path", p).Msg("Failed to delete receipt object")
		}
	}
}

// variantPaths returns the thumbnail and display paths for a stored display path
func variantPaths(displayPath string) []string {
	base := strings.TrimSuffix(displayPath, receiptDisplaySuffix)
	return []string{base + receiptThumbSuffix, base + receiptDisplaySuffix}
}

// GetReceiptContentType returns the content type for a file extension
func GetReceiptContentType(filename string) string {
	if ct, ok := AllowedReceiptExtensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}
