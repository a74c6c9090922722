package fsutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// buildTree creates the fixture layout used by the collection tests: four
// files with mixed suffix chains at the root and the same four in a
// subfolder.
func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	names := []string{
		"file123.abc",
		"file234.xyz",
		"file345.abc.xyz",
		"file456.xyz.abc",
	}
	dirs := []string{root, filepath.Join(root, "subfolder")}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}
	return root
}

func TestCollectPathsFromExtensions(t *testing.T) {
	cases := []struct {
		name      string
		recursive bool
		strict    bool
		want      []string
	}{
		{
			name: "flat strict", strict: true,
			want: []string{"file234.xyz", "file345.abc.xyz"},
		},
		{
			name: "flat loose",
			want: []string{"file234.xyz", "file345.abc.xyz", "file456.xyz.abc"},
		},
		{
			name: "recursive strict", recursive: true, strict: true,
			want: []string{
				"file234.xyz", "file345.abc.xyz",
				"subfolder/file234.xyz", "subfolder/file345.abc.xyz",
			},
		},
		{
			name: "recursive loose", recursive: true,
			want: []string{
				"file234.xyz", "file345.abc.xyz", "file456.xyz.abc",
				"subfolder/file234.xyz", "subfolder/file345.abc.xyz", "subfolder/file456.xyz.abc",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			root := buildTree(t)

			got, err := CollectPathsFromExtensions(root, []string{".xyz"}, tc.recursive, tc.strict)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			want := make([]string, len(tc.want))
			for i, rel := range tc.want {
				want[i] = filepath.Join(root, filepath.FromSlash(rel))
			}
			sort.Strings(got)
			sort.Strings(want)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("collected paths mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCollectPathsFileRoot(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "session.raw")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := CollectPathsFromExtensions(path, []string{".raw"}, false, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != path {
		t.Fatalf("expected the file itself, got %v", got)
	}

	got, err = CollectPathsFromExtensions(path, []string{".h5"}, false, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no match for .h5, got %v", got)
	}
}

func TestFilterPaths(t *testing.T) {
	paths := []string{
		"file123.abc",
		"file234.xyz",
		"file345.abc.xyz",
		"file456.xyz.abc",
	}

	cases := []struct {
		name    string
		include []string
		exclude []string
		want    []string
	}{
		{name: "no filters", want: paths},
		{
			name:    "include only",
			include: []string{"1", "2", "3"},
			want:    []string{"file123.abc", "file234.xyz", "file345.abc.xyz"},
		},
		{
			name:    "exclude only",
			exclude: []string{"34"},
			want:    []string{"file123.abc", "file456.xyz.abc"},
		},
		{
			name:    "include then exclude",
			include: []string{"1", "2", "3"},
			exclude: []string{"34"},
			want:    []string{"file123.abc"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FilterPaths(paths, tc.include, tc.exclude)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("filtered paths mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilterPathsBadPattern(t *testing.T) {
	if _, err := FilterPaths([]string{"a"}, []string{"("}, nil); err == nil {
		t.Fatal("expected error for invalid include pattern")
	}
	if _, err := FilterPaths([]string{"a"}, nil, []string{"("}); err == nil {
		t.Fatal("expected error for invalid exclude pattern")
	}
}
