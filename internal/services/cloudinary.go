package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// MaxProofSize caps verification photo uploads.
const MaxProofSize = 8 << 20

var (
	ErrProofTooLarge = errors.New("proof image exceeds 8MB")
	ErrProofNotImage = errors.New("proof must be a JPEG, PNG, WebP or HEIC image")
)

var proofContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
}

// CloudinaryService stores photo and selfie task proofs.
type CloudinaryService struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryService(cloudName, apiKey, apiSecret string) (*CloudinaryService, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryService{cld: cld, folder: "civicquest/proofs"}, nil
}

// UploadProof uploads a task proof and returns its HTTPS URL. The public ID
// is the task ID so a retried upload overwrites the earlier one.
func (s *CloudinaryService) UploadProof(ctx context.Context, userID, taskID string, header *multipart.FileHeader) (string, error) {
	if header.Size > MaxProofSize {
		return "", ErrProofTooLarge
	}
	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxProofSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > MaxProofSize {
		return "", ErrProofTooLarge
	}
	if err := CheckProofImage(data); err != nil {
		return "", err
	}

	overwrite := true
	res, err := s.cld.Upload.Upload(ctx, data, uploader.UploadParams{
		Folder:       s.folder + "/" + userID,
		PublicID:     taskID,
		Overwrite:    &overwrite,
		ResourceType: "image",
		Tags:         []string{"proof", "user_" + userID},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	return res.SecureURL, nil
}

// CheckProofImage sniffs the content type of an upload.
func CheckProofImage(data []byte) error {
	ct := http.DetectContentType(data)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	if proofContentTypes[ct] || isHEIC(data) {
		return nil
	}
	return ErrProofNotImage
}

// DetectContentType does not know HEIC; match the ftyp box brand.
func isHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "mif1", "msf1":
		return true
	}
	return false
}
