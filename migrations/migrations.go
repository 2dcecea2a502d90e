package migrations

import "embed"

// Embedded migration files bundled at compile time.
// The cache schema ships inside the binary; no external files at runtime.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
