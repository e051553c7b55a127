package storage

import (
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// SanitizeName returns a storage-safe version of name. Path separators and
// parent references are removed so a key can never leave its claim folder.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "")
	name = strings.ReplaceAll(name, "\\", "")
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, ".")
	if name == "" {
		return "file"
	}
	return name
}

// documentKey lays blobs out as claims/<claim>/<document id>-<file name>
func documentKey(claimID, documentID, fileName string) string {
	return path.Join("claims", SanitizeName(claimID), documentID+"-"+SanitizeName(fileName))
}

func newDocumentID() string {
	return uuid.NewString()
}
