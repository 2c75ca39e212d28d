// Package catalog loads component definition catalogs written in CUE
// and decodes them into the registry form the graph store consumes.
//
// The builtin catalog ships embedded in the binary; additional
// catalogs can be loaded from a directory or from an inline CUE
// source. Every source is validated against the catalog schema before
// decoding, and decoded catalogs are cached by content digest so
// reloading identical content is free.
package catalog
