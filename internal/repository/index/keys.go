package index

import (
	"fmt"
	"strings"
)

// Keys derives remote names for one index identity.
// Layout: index <prefix><name>:idx, documents <prefix><name>:<id>.
type Keys struct {
	prefix string
	name   string
}

// NewKeys creates a Keys for the given key prefix and index name.
func NewKeys(prefix, name string) Keys {
	return Keys{prefix: prefix, name: name}
}

// IndexName returns the FT index name.
func (k Keys) IndexName() string {
	return fmt.Sprintf("%s%s:idx", k.prefix, k.name)
}

// DocPrefix returns the key prefix shared by all documents.
func (k Keys) DocPrefix() string {
	return fmt.Sprintf("%s%s:", k.prefix, k.name)
}

// Key returns the hash key of document id.
func (k Keys) Key(id string) string {
	return k.DocPrefix() + id
}

// ID strips the document prefix from key.
func (k Keys) ID(key string) (string, bool) {
	return strings.CutPrefix(key, k.DocPrefix())
}
