package service

import (
	"crypto/sha1" //nolint:gosec // git object ids are SHA-1 by definition
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/target/codegen-api/internal/domain/model"
)

// BuildGitDiff renders files as a patch that adds each one as a new file.
// The index line carries the abbreviated git blob id of the content, so the
// same files always produce the same diff.
func BuildGitDiff(files []model.GeneratedFile) string {
	var b strings.Builder
	for _, f := range files {
		b.WriteString("diff --git a/" + f.Path + " b/" + f.Path + "\n")
		b.WriteString("new file mode 100644\n")
		b.WriteString("index 0000000.." + blobHash(f.Content)[:7] + "\n")
		b.WriteString("--- /dev/null\n")
		b.WriteString("+++ b/" + f.Path + "\n")
		for _, line := range strings.Split(f.Content, "\n") {
			b.WriteString("+" + line + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// blobHash returns the hex object id git assigns to content stored as a blob.
func blobHash(content string) string {
	h := sha1.New() //nolint:gosec // see import
	h.Write([]byte("blob " + strconv.Itoa(len(content)) + "\x00"))
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}
