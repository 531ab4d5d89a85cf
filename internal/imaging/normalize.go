// Package imaging turns an uploaded photo into the JPEG stored with a post.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"mime"
	"net/http"
	"strings"

	"pulasafe/internal/models"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	MaxDimension = 2048
	// MaxPixels caps the decoded size of an upload. The header is checked
	// before any pixel data is allocated.
	MaxPixels    = 40_000_000
	JPEGQuality  = 82
	ContentType  = "image/jpeg"
)

// Photo is a normalized JPEG ready for upload.
type Photo struct {
	Data   []byte
	Width  int
	Height int
}

// Normalize validates content, scales it to fit MaxDimension on both sides
// and re-encodes it as JPEG. contentType is the client's claim and may be
// empty; when set it must agree with the sniffed type.
func Normalize(content []byte, contentType string, maxBytes int64) (*Photo, error) {
	if len(content) == 0 {
		return nil, models.NewValidationError("No photo uploaded")
	}
	if maxBytes > 0 && int64(len(content)) > maxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("Photo too large (max %dMB)", maxBytes>>20))
	}

	detected := normalizeContentType(http.DetectContentType(content))
	if !isAllowedImageMIME(detected) {
		return nil, models.NewValidationError("Invalid image type")
	}

	header, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if header.Width <= 0 || header.Height <= 0 || int64(header.Width)*int64(header.Height) > MaxPixels {
		return nil, models.NewValidationError(fmt.Sprintf("Photo dimensions too large (max %d megapixels)", MaxPixels/1_000_000))
	}

	decoded, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}

	if provided := normalizeContentType(contentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, formatToMIME(format)) {
		return nil, models.NewValidationError("Image content type mismatch")
	}

	out := resizeToFit(decoded, MaxDimension, MaxDimension)
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, flatten(out), &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, models.NewInternalError(err)
	}

	b := out.Bounds()
	return &Photo{Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

// flatten paints transparent areas white; JPEG has no alpha channel.
func flatten(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

func isAllowedImageMIME(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
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
	mediaType = strings.ToLower(mediaType)
	if mediaType == "image/jpg" {
		return "image/jpeg"
	}
	return mediaType
}

func isMatchingContentType(provided, detected string) bool {
	return normalizeContentType(provided) == normalizeContentType(detected)
}

func formatToMIME(format string) string {
	switch strings.ToLower(format) {
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
