package constants

import "strings"

// MaxUploadBytes is the declared-size cap for intake (10 MiB).
const MaxUploadBytes = 10 * 1024 * 1024

// AllowedContentTypes holds the MIME types accepted at intake.
var AllowedContentTypes = map[string]struct{}{
	"image/png":       {},
	"image/jpeg":      {},
	"image/jpg":       {},
	"application/pdf": {},
}

// contentTypeExt maps an allowed MIME type to its canonical file extension,
// used when the uploaded file name carries none.
var contentTypeExt = map[string]string{
	"image/png":       "png",
	"image/jpeg":      "jpg",
	"image/jpg":       "jpg",
	"application/pdf": "pdf",
}

// ContentTypeAllowed reports whether a MIME type is on the intake allow-list.
func ContentTypeAllowed(contentType string) bool {
	_, ok := AllowedContentTypes[contentType]
	return ok
}

// ExtForContentType returns the canonical extension for an allowed MIME type.
func ExtForContentType(contentType string) string {
	return contentTypeExt[contentType]
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
