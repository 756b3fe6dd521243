// Package appfs embeds the files the binaries need at runtime: DB migrations and assets.
package appfs

import "embed"

//go:embed migrations/*.sql all:assets
var FS embed.FS
