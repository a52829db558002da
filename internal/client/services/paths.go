package services

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophdiary/internal/common"
	"github.com/dmitrijs2005/gophdiary/internal/remote/blobstore"
)

// ImagePath derives the blob key of a newly selected image:
// images/<uid>/<name>-<unixMillis>.<ext>, where name is the last segment of
// contentRef without its extension.
func ImagePath(userID, contentRef string, at time.Time) string {
	local, err := blobstore.LocalPath(contentRef)
	if err != nil {
		local = contentRef
	}
	base := filepath.Base(local)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "image"
	}
	file := fmt.Sprintf("%s-%d.%s", name, at.UnixMilli(), imageExt(local))
	return path.Join(common.ImagesPrefix, userID, file)
}

// imageExt picks the extension from the file name's mime type, then from
// the content itself, and falls back to jpg.
func imageExt(local string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(local))); t != "" {
		if ext, ok := mimeTypeToExt(t); ok {
			return ext
		}
	}
	if t, ok := sniffMimeType(local); ok {
		if ext, ok := mimeTypeToExt(t); ok {
			return ext
		}
	}
	return "jpg"
}

func sniffMimeType(local string) (string, bool) {
	f, err := os.Open(local)
	if err != nil {
		return "", false
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if n == 0 && err != nil {
		return "", false
	}
	return http.DetectContentType(buf[:n]), true
}

func mimeTypeToExt(mimeType string) (string, bool) {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	switch strings.TrimSpace(mimeType) {
	case "image/jpeg":
		return "jpg", true
	case "image/png":
		return "png", true
	case "image/gif":
		return "gif", true
	case "image/webp":
		return "webp", true
	case "image/heic":
		return "heic", true
	case "image/bmp":
		return "bmp", true
	default:
		return "", false
	}
}
