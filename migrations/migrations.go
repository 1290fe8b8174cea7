// Package migrations embeds the per-dialect SQL schema files.
package migrations

import (
	"embed"
	"io/fs"
	"os"
)

// FS holds sqlite/, postgres/ and mysql/ migration directories.
//
//go:embed sqlite/*.sql postgres/*.sql mysql/*.sql
var FS embed.FS

// Source returns the migrations under dir, or the embedded set when dir is empty.
func Source(dir string) fs.FS {
	if dir == "" {
		return FS
	}
	return os.DirFS(dir)
}
