// Package wire implements the tagged value ADT and the schema-driven,
// length-prefixed wire encoding that crosses the host/guest boundary.
//
// Everything in this package is pure translation: it knows nothing about
// sandboxes, vCPUs, or wazero. The only state it touches is the byte slices
// handed to it by the caller (the mailbox buffers in package mailbox).
package wire
