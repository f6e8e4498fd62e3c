package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryTreeResolve(t *testing.T) {
	tree := NewCategoryTree()
	tree.Add("1", "Furniture", "")
	tree.Add("2", "Sofas", "1")
	tree.Add("3", "Corner", "2")
	tree.Add("4", "", "2")
	tree.Add("5", "Orphan", "99")

	tests := []struct {
		id   string
		want string
	}{
		{"1", "Furniture"},
		{"2", "Furniture///Sofas"},
		{"3", "Furniture///Sofas///Corner"},
		{"4", "Furniture///Sofas"},
		{"5", "Orphan"},
		{"42", Undefined},
		{"", Undefined},
		{Undefined, Undefined},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, tree.Resolve(tt.id))
		})
	}
}

func TestCategoryTreeResolveCycle(t *testing.T) {
	tree := NewCategoryTree()
	tree.Add("a", "A", "b")
	tree.Add("b", "B", "a")
	tree.Add("self", "Self", "self")

	assert.Equal(t, "B///A", tree.Resolve("a"))
	assert.Equal(t, "A///B", tree.Resolve("b"))
	assert.Equal(t, "Self", tree.Resolve("self"))
}

func TestCategoryTreeUndefinedOnly(t *testing.T) {
	tree := NewCategoryTree()
	tree.Add("1", "", "")
	assert.Equal(t, Undefined, tree.Resolve("1"))
}

func TestCategoryTreeNil(t *testing.T) {
	var tree *CategoryTree
	assert.Equal(t, Undefined, tree.Resolve("1"))
	assert.Zero(t, tree.Len())
}

func TestBuildCategoryTree(t *testing.T) {
	root := parseRoot(t, `<yml_catalog><shop><categories>
		<category id="1">Furniture</category>
		<category id="2" parentId="1"> Sofas </category>
	</categories></shop></yml_catalog>`)

	tree := buildCategoryTree(root)
	require.Equal(t, 2, tree.Len())
	assert.Equal(t, "Furniture///Sofas", tree.Resolve("2"))
}
