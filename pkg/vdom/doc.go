// Package vdom provides the virtual DOM model and the differ.
//
// A render pass produces an immutable tree of VNode values. Elements carry
// attributes, declarative JS hooks and event handler descriptors; text nodes
// carry literal content; placeholders stand in for a nested component whose
// subtree is rendered and stored separately.
//
// # Diffing
//
// Diff walks two trees in lock-step by position and emits a Patch: an
// ordered list of cursor-relative edit operations plus a translation table
// mapping each retained element's new identifier to the identifier the
// frontend knows it by.
//
//	patch := vdom.Diff(prev, prevTranslations, next)
//	if patch.IsEmpty() {
//	    // nothing to send
//	}
//
// Any structural mismatch degrades to Replace, which is always correct.
package vdom
