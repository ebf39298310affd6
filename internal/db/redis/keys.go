package redis

import "strings"

// Every key of an index shares the {index} hash tag so the Lua scripts
// touching doc, meta and sequence keys stay within one cluster slot.
//
//	<prefix>:{<index>}:doc:<id>   JSON document
//	<prefix>:{<index>}:meta:<id>  hash: version, seq_no, primary_term
//	<prefix>:{<index>}:seq        sequence counter

func (s *Store) indexBase(index string) string {
	return s.prefix + ":{" + index + "}:"
}

func (s *Store) docPrefix(index string) string { return s.indexBase(index) + "doc:" }

func (s *Store) metaPrefix(index string) string { return s.indexBase(index) + "meta:" }

func (s *Store) docKey(index, id string) string { return s.docPrefix(index) + id }

func (s *Store) metaKey(index, id string) string { return s.metaPrefix(index) + id }

func (s *Store) seqKey(index string) string { return s.indexBase(index) + "seq" }

func (s *Store) idFromDocKey(index, key string) string {
	return strings.TrimPrefix(key, s.docPrefix(index))
}
