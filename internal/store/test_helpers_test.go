package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/cloudrec/internal/catalog"
	"github.com/roach88/cloudrec/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestCatalog registers Dog, Person and Ticket.
func createTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]ir.ObjectSchema{
		{
			Name:       "Dog",
			PrimaryKey: "id",
			References: []string{"Person", "Dog"},
			Properties: []ir.Property{
				{Name: "id", Type: ir.TypeString},
				{Name: "name", Type: ir.TypeString},
				{Name: "age", Type: ir.TypeInt},
				{Name: "good", Type: ir.TypeBool},
				{Name: "born", Type: ir.TypeDate},
				{Name: "weight", Type: ir.TypeDouble},
				{Name: "photo", Type: ir.TypeData},
				{Name: "avatar", Type: ir.TypeObject, ObjectType: "Asset"},
				{Name: "owner", Type: ir.TypeObject, ObjectType: "Person"},
				{Name: "friends", Type: ir.TypeList, ObjectType: "Dog"},
			},
		},
		{
			Name:       "Person",
			PrimaryKey: "id",
			Properties: []ir.Property{{Name: "id", Type: ir.TypeString}},
		},
		{
			Name:       "Ticket",
			PrimaryKey: "number",
			Properties: []ir.Property{{Name: "number", Type: ir.TypeInt}},
		},
	})
	if err != nil {
		t.Fatalf("catalog.New() failed: %v", err)
	}
	return cat
}
