//go:build mage

package main

import (
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Index namespaces the catalog targets.
type Index mg.Namespace

// Import embeds catalog/modules.yaml (or $CATALOG) into the configured index.
func (Index) Import() error {
	mg.Deps(Build)
	catalog := os.Getenv("CATALOG")
	if catalog == "" {
		catalog = "catalog/modules.yaml"
	}
	return sh.RunV(binPath(), "index", "import", catalog)
}

// Count prints the number of indexed modules.
func (Index) Count() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "index", "count")
}

// Serve builds the binary and starts the HTTP API.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "serve")
}
