// Package dirspace computes disk usage per directory.
//
// It runs one of the traversal engines of package walk over a set of
// roots, rolls the size of every regular file up into its ancestor
// directories and optionally reports the capacity of each root's volume.
package dirspace
