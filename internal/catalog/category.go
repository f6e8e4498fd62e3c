package catalog

import (
	"strings"

	"github.com/beevik/etree"
)

// Undefined is the placeholder written when a value cannot be resolved.
const Undefined = "Undefined"

// CategoryTree holds the id→name and id→parent maps of one document.
// It is read-only after construction and safe for concurrent use.
type CategoryTree struct {
	names   map[string]string
	parents map[string]string
}

// NewCategoryTree creates an empty tree.
func NewCategoryTree() *CategoryTree {
	return &CategoryTree{
		names:   make(map[string]string),
		parents: make(map[string]string),
	}
}

// Add registers a category. An empty name is stored as Undefined and an
// empty parentID means the category is a root.
func (t *CategoryTree) Add(id, name, parentID string) {
	if name == "" {
		name = Undefined
	}
	t.names[id] = name
	if parentID != "" {
		t.parents[id] = parentID
	}
}

// Len returns the number of categories.
func (t *CategoryTree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}

// buildCategoryTree collects every category element below root.
func buildCategoryTree(root *etree.Element) *CategoryTree {
	tree := NewCategoryTree()
	for _, cat := range root.FindElements(".//category") {
		id := cat.SelectAttrValue("id", "")
		tree.Add(id, strings.TrimSpace(cat.Text()), cat.SelectAttrValue("parentId", ""))
	}
	return tree
}

// Resolve returns the root-to-leaf path of category names for id joined
// with Delimiter. Unknown ids resolve to Undefined. A parent cycle stops the
// walk at the first revisited id.
func (t *CategoryTree) Resolve(id string) string {
	if t == nil || id == "" || id == Undefined {
		return Undefined
	}

	var path []string
	visited := make(map[string]struct{})
	for cur := id; cur != ""; cur = t.parents[cur] {
		name, ok := t.names[cur]
		if !ok {
			break
		}
		if _, seen := visited[cur]; seen {
			break
		}
		visited[cur] = struct{}{}
		if name != Undefined {
			path = append(path, name)
		}
	}

	if len(path) == 0 {
		if name, ok := t.names[id]; ok {
			return name
		}
		return Undefined
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return strings.Join(path, Delimiter)
}
