/*
Package store is a heterogeneous key/value store kept in a single ZIP
archive.

Values are one of four kinds: Structured (maps and sequences, encoded as
JSON), Text, Image and Config (INI). The kind is never recorded in the
archive. On read it is recovered from the key's extension (.json,
.config, .dat, .png, .jpg, .jpeg) or, failing that, by sniffing the entry
bytes: image signatures first, then a structured parse, then text.

Quick start:

	s := store.New("/data/box.zip")

	s.Put("settings.json", map[string]any{"theme": "dark"})
	s.Put("notes/today", "buy milk")

	v, ok, err := s.Read("settings.json")

Lookup misses are not errors: Read reports ok=false, Contains reports
false and Remove does nothing when the archive or the key is absent.

ZIP members cannot be replaced in place, so Remove and every overwrite
rewrite the whole archive. A rewrite goes through a temp file but is not
protected against crashes; WithBeforeRewrite can snapshot the file first.

A Store is not safe for concurrent use, and nothing prevents two stores
or processes from mutating the same archive at once.
*/
package store
