package id_test

import (
	"testing"

	"github.com/taskq-dev/taskq/id"
)

func TestGenerateIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		got := id.Generate()
		if seen[got] {
			t.Fatalf("Generate produced a duplicate id: %s", got)
		}
		seen[got] = true
	}
}

func TestGenerateIsNonEmpty(t *testing.T) {
	if id.Generate() == "" {
		t.Fatal("Generate returned an empty id")
	}
}
