// Package domain contains the core model for headline.
//
// The domain is transport- and persistence-agnostic: it does not depend on YAML parsing,
// sockets, or the filesystem. The wire package decodes into these types and infra adapters
// map into/from them.
package domain
