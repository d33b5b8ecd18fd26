// Package render collects application trees into vdom trees plus the
// side-tables the runtime needs to route frontend input: listeners,
// subscriptions, RPC handlers, blobs and rendered component subtrees.
//
// FromRoot renders everything. FromFrame re-renders only the invalidated
// components and carries every other component's subtree and side-tables
// forward by reference.
package render
