package cloudstorage

import (
	"net/http"
	"net/textproto"
	"slices"
	"strings"
)

const (
	containerMetaPrefix = "X-Container-Meta-"

	// typeMetaName holds the container visibility.
	typeMetaName = "Type"
)

// metaName returns the bare, canonical metadata name for name, which may be
// given with or without the header prefix in any case.
func metaName(prefix, name string) string {
	return strings.TrimPrefix(textproto.CanonicalMIMEHeaderKey(name), prefix)
}

// extractMeta collects every prefix-ed header of h, keyed by bare name.
// Names listed in skip are left out.
func extractMeta(prefix string, h http.Header, skip ...string) map[string]string {
	meta := make(map[string]string)
	for k := range h {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		name := strings.TrimPrefix(k, prefix)
		if name == "" || slices.Contains(skip, name) {
			continue
		}
		meta[name] = h.Get(k)
	}
	return meta
}

// metaHeaders turns a user metadata map into request headers.
func metaHeaders(prefix string, meta map[string]string) http.Header {
	h := make(http.Header, len(meta))
	for name, value := range meta {
		h.Set(prefix+metaName(prefix, name), value)
	}
	return h
}
