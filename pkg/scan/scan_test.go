package scan

import (
	"reflect"
	"strings"
	"testing"
	"testing/fstest"
)

func TestScan_MaxDepth(t *testing.T) {
	fsys := fstest.MapFS{
		"root/a.jpg":             &fstest.MapFile{Data: []byte("a")},
		"root/b.JPEG":            &fstest.MapFile{Data: []byte("b")},
		"root/c.txt":             &fstest.MapFile{Data: []byte("c")},
		"root/sub/d.png":         &fstest.MapFile{Data: []byte("d")},
		"root/sub/nested/e.Png":  &fstest.MapFile{Data: []byte("e")},
		"root/sub/nested/f.heic": &fstest.MapFile{Data: []byte("f")},
	}

	testCases := []struct {
		name     string
		maxDepth int
		want     []string
	}{
		{
			name:     "depth 0 includes only top-level",
			maxDepth: 0,
			want:     []string{"a.jpg", "b.JPEG"},
		},
		{
			name:     "depth 1 includes one subdirectory",
			maxDepth: 1,
			want:     []string{"a.jpg", "b.JPEG", "sub/d.png"},
		},
		{
			name:     "unlimited includes nested subdirectories",
			maxDepth: -1,
			want:     []string{"a.jpg", "b.JPEG", "sub/d.png", "sub/nested/e.Png"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.MaxDepth = tc.maxDepth

			got, err := Scan(fsys, "root", opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("unexpected result\n got: %#v\nwant: %#v", got, tc.want)
			}
		})
	}
}

func TestScan_IgnoresNonImages(t *testing.T) {
	fsys := fstest.MapFS{
		"root/a.txt": &fstest.MapFile{Data: []byte("a")},
		"root/b.mp4": &fstest.MapFile{Data: []byte("b")},
	}

	got, err := Scan(fsys, "root", DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 0 {
		t.Fatalf("expected no image files, got %#v", got)
	}
}

func TestScan_Skip(t *testing.T) {
	fsys := fstest.MapFS{
		"a.jpg":                &fstest.MapFile{Data: []byte("a")},
		"a_with_timestamp.jpg": &fstest.MapFile{Data: []byte("a")},
	}

	opts := DefaultOptions()
	opts.Skip = func(rel string) bool { return strings.Contains(rel, "_with_timestamp") }

	got, err := Scan(fsys, ".", opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a.jpg"}) {
		t.Fatalf("unexpected result %#v", got)
	}
}

func TestScanRecords_SizeAndModTime(t *testing.T) {
	fsys := fstest.MapFS{
		"a.jpg": &fstest.MapFile{Data: []byte("abcd")},
	}

	records, err := ScanRecords(fsys, ".", DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Path != "a.jpg" || records[0].FileSizeBytes != 4 {
		t.Fatalf("unexpected records %#v", records)
	}
}

func TestScan_InvalidMaxDepth(t *testing.T) {
	fsys := fstest.MapFS{}

	opts := DefaultOptions()
	opts.MaxDepth = -2

	_, err := Scan(fsys, "root", opts)
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
}
