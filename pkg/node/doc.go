// Package node defines the application-facing tree that render functions
// return, and the fluent builder used to assemble it.
//
// A Node[M] is generic over the application's message type M. Elements may
// carry listeners and RPC handlers that turn frontend input into messages,
// subscriptions to cross-component events, binary blobs and nested
// components. The render collector strips these side-tables out and leaves a
// pure vdom tree behind.
//
//	html := node.HTML[Msg](ids)
//	return html.Elem("button").
//	    Class("primary").
//	    On("click", func(protocol.DomEvent) Msg { return Clicked{} }).
//	    Text("Go").
//	    Build()
package node
