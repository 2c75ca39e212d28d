// Package cue provides the embedded CUE component definition catalog.
package cue

import "embed"

// CatalogFS contains the embedded builtin catalog.
// This embeds all .cue files from the catalog directory.
//
//go:embed catalog/*.cue
var CatalogFS embed.FS

// CatalogDir is the root directory within the embedded filesystem.
const CatalogDir = "catalog"
