package ledger

import (
	"errors"
	"testing"
)

func TestRegistryLookup(t *testing.T) {
	r := MustRegistry(DefaultAssets)
	id, err := r.Lookup("rna")
	if err != nil || id != 1 {
		t.Fatalf("lookup rna = %v, %v", id, err)
	}
	if _, err := r.Lookup("doge"); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("unknown asset lookup = %v", err)
	}
	if r.Name(1) != "rna" || r.Name(99) != "" {
		t.Fatalf("name resolution broken")
	}
	if !r.Valid(7) || r.Valid(8) {
		t.Fatalf("validity bounds broken")
	}
}

func TestRegistryConstraints(t *testing.T) {
	if _, err := NewRegistry(nil); err == nil {
		t.Fatalf("empty registry accepted")
	}
	if _, err := NewRegistry([]string{"a", "a"}); err == nil {
		t.Fatalf("duplicate names accepted")
	}
	if _, err := NewRegistry([]string{"a", ""}); err == nil {
		t.Fatalf("empty name accepted")
	}
	if _, err := NewRegistry([]string{"1", "2", "3", "4", "5", "6", "7", "8", "9"}); err == nil {
		t.Fatalf("more than AssetCount names accepted")
	}
}
