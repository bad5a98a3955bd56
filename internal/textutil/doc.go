// Package textutil provides small text helpers for building safe filesystem
// names from untrusted input such as model-proposed filenames and categories.
package textutil
