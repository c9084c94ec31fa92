// Package migrations embeds SQL migration files into the binary.
//
// The files are passed to database.DB.Migrate at startup, so no SQL needs
// to be present on the filesystem.
package migrations

import "embed"

// FS holds every *.sql migration at its root.
//
//go:embed *.sql
var FS embed.FS
