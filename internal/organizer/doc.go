// Package organizer applies approved proposals to the filesystem.
//
// Apply is the single move primitive: it verifies the source still exists,
// creates the destination directories, and performs one os.Rename. Name
// collisions are not resolved; the platform's rename semantics decide, and
// FindConflicts lets callers see collisions before they approve anything.
//
// The package also plans destinations (<folder>/<category>/<name>) and
// tidies category layouts by folding sparsely populated categories and
// subfolders into broader ones.
package organizer
