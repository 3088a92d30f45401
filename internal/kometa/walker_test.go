package kometa

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestGatherPaths(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want [][]string
	}{
		{
			name: "root and nested mappings",
			yaml: "metadata:\n  100:\n    title: Show\n    seasons:\n      1:\n        title: S1\n",
			want: [][]string{
				{},
				{"metadata"},
				{"metadata", "100"},
				{"metadata", "100", "seasons"},
				{"metadata", "100", "seasons", "1"},
			},
		},
		{
			name: "lists are not descended",
			yaml: "metadata:\n  100:\n    collections:\n      - name: A\n      - name: B\n",
			want: [][]string{
				{},
				{"metadata"},
				{"metadata", "100"},
			},
		},
		{
			name: "scalar only document",
			yaml: "title: hello\n",
			want: [][]string{{}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := Parse("t.yml", []byte(tc.yaml))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}

			got := doc.GatherPaths()
			if diff := cmp.Diff(tc.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("GatherPaths() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGatherPathsDeterministic(t *testing.T) {
	doc, err := Parse("t.yml", []byte("metadata:\n  b: {title: B}\n  a: {title: A}\n  c: {title: C}\n"))
	if err != nil {
		t.Fatal(err)
	}

	want := doc.GatherPaths()
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(want, doc.GatherPaths(), cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("GatherPaths() varied between runs (-want +got):\n%s", diff)
		}
	}
}
