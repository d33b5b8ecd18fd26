// Package services contains ready-made services: a Ticker driving periodic
// updates and ElementSize reporting the geometry of a DOM element.
package services
