package fs

import (
	"mime"
	"path/filepath"
	"strings"
)

// fallbackTypes covers common extensions missing from the platform MIME
// table, which on minimal systems is only Go's small built-in list.
var fallbackTypes = map[string]string{
	".txt":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".csv":      "text/csv",
	".log":      "text/plain",
	".epub":     "application/epub+zip",
	".rtf":      "application/rtf",
	".zip":      "application/zip",
	".gz":       "application/gzip",
	".tar":      "application/x-tar",
	".7z":       "application/x-7z-compressed",
	".rar":      "application/vnd.rar",
	".iso":      "application/x-iso9660-image",
	".doc":      "application/msword",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".heic":     "image/heic",
	".heif":     "image/heic",
	".tif":      "image/tiff",
	".tiff":     "image/tiff",
	".bmp":      "image/bmp",
	".mp3":      "audio/mpeg",
	".flac":     "audio/flac",
	".ogg":      "audio/ogg",
	".m4a":      "audio/mp4",
	".wav":      "audio/wav",
	".mp4":      "video/mp4",
	".mkv":      "video/x-matroska",
	".mov":      "video/quicktime",
	".avi":      "video/x-msvideo",
	".webm":     "video/webm",
	".dcm":      "application/dicom",
	".dicom":    "application/dicom",
}

// MIMEClassifier derives a file type from the file name's extension.
type MIMEClassifier struct{}

// NewMIMEClassifier creates a classifier backed by the platform MIME table.
func NewMIMEClassifier() *MIMEClassifier {
	return &MIMEClassifier{}
}

// Classify returns the lower-cased MIME type for name without parameters, or
// "" when the extension is unknown.
func (c *MIMEClassifier) Classify(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
		mt, _, _ := strings.Cut(t, ";")
		return strings.ToLower(strings.TrimSpace(mt))
	}
	return fallbackTypes[ext]
}
