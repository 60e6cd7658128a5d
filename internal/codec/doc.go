// Package codec is the binary encoding of exploration exports.
//
// Exports are CBOR with Core Deterministic Encoding (RFC 8949 §4.2), so
// the same exploration always produces identical bytes. Types carrying
// only json tags encode under those names.
package codec
