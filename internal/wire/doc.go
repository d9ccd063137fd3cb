// Package wire decodes HTTP/1.x response heads: the status line, header lines,
// and the blank-line-terminated block they form on a connection.
//
// ParseStatusLine and ParseHeader are pure functions and safe for concurrent use.
package wire
