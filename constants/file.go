package constants

import "strings"

// Source formats understood by the OCR stage.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// UploadExtensions are the receipt photo extensions the HTTP boundary accepts.
var UploadExtensions = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
}

// AllowedExtensions holds the file extensions batch ingestion picks up.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// UploadMIMETypes are the content types accepted alongside UploadExtensions.
var UploadMIMETypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/jpg":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns PDF or IMAGE for a normalized extension, "" otherwise.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "png", "jpg", "jpeg":
		return IMAGE
	default:
		return ""
	}
}

// IsUploadExt reports whether ext is accepted by the HTTP boundary.
func IsUploadExt(ext string) bool {
	_, ok := UploadExtensions[NormalizeExt(ext)]
	return ok
}
