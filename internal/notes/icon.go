package notes

import (
	"path/filepath"
	"strings"

	"github.com/enescakir/emoji"
)

// Icon picks a file-type icon from the filename extension.
func Icon(filename string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "pdf":
		return emoji.PageFacingUp.String()
	case "doc", "docx":
		return emoji.Memo.String()
	case "png", "jpg", "jpeg":
		return emoji.FramedPicture.String()
	case "txt":
		return emoji.PageWithCurl.String()
	default:
		return emoji.FileFolder.String()
	}
}
