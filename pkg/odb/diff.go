package odb

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Diff reports structural differences between two snapshots in a
// human-readable form. An empty string means the snapshots are equal.
// Record identities are compared too, so two independent reads of the same
// files differ only in their ids.
func Diff(a, b *Snapshot) string {
	return cmp.Diff(a, b, cmpopts.EquateEmpty())
}

// DiffContent is like Diff but ignores record identities
func DiffContent(a, b *Snapshot) string {
	return cmp.Diff(a, b,
		cmpopts.EquateEmpty(),
		cmpopts.IgnoreFields(Tech{}, "ID"),
		cmpopts.IgnoreFields(Lib{}, "ID"),
		cmpopts.IgnoreFields(Block{}, "ID"),
	)
}
