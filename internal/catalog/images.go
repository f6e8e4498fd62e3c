package catalog

import (
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// imageTags are element names that carry image URLs. They are skipped by the
// field passes and read only by harvestImages.
var imageTags = map[string]struct{}{
	"picture":        {},
	"photo":          {},
	"optionalImages": {},
	"image":          {},
	"images":         {},
	"img":            {},
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".svg"}

func isImageTag(tag string) bool {
	_, ok := imageTags[tag]
	return ok
}

func hasImageExtension(s string) bool {
	lower := strings.ToLower(s)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// looksLikeImageText reports whether element text is accepted as an image URL.
func looksLikeImageText(s string) bool {
	return hasImageExtension(s) ||
		strings.Contains(strings.ToLower(s), "img/") ||
		strings.HasPrefix(s, "http")
}

// looksLikeImageAttr reports whether an image/photo attribute value is
// accepted as an image URL.
func looksLikeImageAttr(s string) bool {
	return hasImageExtension(s) || strings.HasPrefix(s, "http")
}

// harvestImages collects image URLs from image-bearing descendants and from
// any attribute whose name mentions image or photo, on el or below it.
// The result is de-duplicated and sorted.
func harvestImages(el *etree.Element) []string {
	set := make(map[string]struct{})

	all := append([]*etree.Element{el}, descendants(el)...)
	for i, n := range all {
		if i > 0 && isImageTag(n.Tag) {
			if url := text(n); url != "" && looksLikeImageText(url) {
				set[url] = struct{}{}
			}
		}
		for _, a := range n.Attr {
			name := strings.ToLower(a.Key)
			if !strings.Contains(name, "image") && !strings.Contains(name, "photo") {
				continue
			}
			if a.Value != "" && looksLikeImageAttr(a.Value) {
				set[a.Value] = struct{}{}
			}
		}
	}

	urls := make([]string, 0, len(set))
	for u := range set {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}
