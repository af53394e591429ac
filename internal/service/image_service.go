package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spilledin/internal/config"
	"spilledin/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageUploadDir       = "uploads/confessions"
	DefaultImageMaxUploadSizeMB = 5
	MaxImageDimension           = 1440
	// MaxImagePixels bounds width*height before decoding allocates the bitmap.
	MaxImagePixels = 40_000_000
	WebPQuality                 = 75
	// ImageURLPrefix is where stored confession images are served.
	ImageURLPrefix = "/media/confessions/"
)

type UploadImageInput struct {
	UserID      uint
	Filename    string
	ContentType string
	Content     []byte
}

// UploadedImage is the result of a successful upload.
type UploadedImage struct {
	URL  string `json:"url"`
	Name string `json:"-"`
}

type ImageService struct {
	uploadDir          string
	publicBaseURL      string
	maxUploadSizeBytes int64
	now                func() time.Time
}

func NewImageService(cfg *config.Config) *ImageService {
	uploadDir := DefaultImageUploadDir
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	var baseURL string

	if cfg != nil {
		if cfg.ImageUploadDir != "" {
			uploadDir = cfg.ImageUploadDir
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
		baseURL = cfg.PublicBaseURL
	}

	return &ImageService{
		uploadDir:          uploadDir,
		publicBaseURL:      baseURL,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
		now:                time.Now,
	}
}

// UploadDir is the directory served under ImageURLPrefix.
func (s *ImageService) UploadDir() string {
	return s.uploadDir
}

// MaxUploadSizeBytes bounds the accepted upload.
func (s *ImageService) MaxUploadSizeBytes() int64 {
	return s.maxUploadSizeBytes
}

// Upload validates, scales and re-encodes an image as WebP and stores it as
// <user_id>-<unix_ms>.webp.
func (s *ImageService) Upload(ctx context.Context, in UploadImageInput) (*UploadedImage, error) {
	if in.UserID == 0 {
		return nil, models.NewValidationError("Invalid user")
	}
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return nil, models.NewValidationError("Invalid image type")
	}

	header, _, err := image.DecodeConfig(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if header.Width <= 0 || header.Height <= 0 || int64(header.Width)*int64(header.Height) > MaxImagePixels {
		return nil, models.NewValidationError("Image dimensions too large")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if !isSupportedDecodedFormat(format) {
		return nil, models.NewValidationError("Unsupported image format")
	}

	sourceMimeType := decodedFormatToMime(format)
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, sourceMimeType) {
		return nil, models.NewValidationError("Image content type mismatch")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scaled := resizeToFit(decoded, MaxImageDimension, MaxImageDimension)
	encoded, err := encodeWebP(scaled, WebPQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	name := fmt.Sprintf("%d-%d.webp", in.UserID, s.now().UnixMilli())
	if err := writeBytesToFile(filepath.Join(s.uploadDir, name), encoded); err != nil {
		return nil, models.NewInternalError(err)
	}

	return &UploadedImage{URL: s.publicBaseURL + ImageURLPrefix + name, Name: name}, nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func writeBytesToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
