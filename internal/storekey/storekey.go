// Package storekey builds the flat row keys used by the persistent backends.
package storekey

import "strings"

var escaper = strings.NewReplacer(`\`, `\\`, `:`, `\:`)

// Build joins namespace, prefix and the caller's key with ':' separators:
//
//	<namespace>:<prefix>:<key>
//
// ':' and '\' inside namespace or prefix are backslash-escaped, so distinct
// namespace/prefix pairs never produce the same row key: ("a", "b:c") and
// ("a:b", "c") stay apart. The key itself is the final segment and passes
// through untouched.
func Build(namespace, prefix, key string) string {
	return escape(namespace) + ":" + escape(prefix) + ":" + key
}

func escape(part string) string {
	if !strings.ContainsAny(part, `\:`) {
		return part
	}
	return escaper.Replace(part)
}
