package database

import (
	"testing"
	"time"

	"katalog/internal/database/migrations"
	"katalog/internal/katalog"
)

func TestMatchExpression(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		wantFTS4 string
		wantFTS5 string
	}{
		{"", "", ""},
		{"   ", "", ""},
		{"report", `"report*"`, `"report"*`},
		{"beach photo", `"beach*" "photo*"`, `"beach"* "photo"*`},
		{`say "hi"`, `"say*" "hi*"`, `"say"* "hi"*`},
		{"report.txt", `"report.txt*"`, `"report.txt"*`},
		{"- * ()", "", ""},
		{"ÉTÉ", `"ÉTÉ*"`, `"ÉTÉ"*`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := MatchExpression(migrations.ModuleFTS4, tt.in); got != tt.wantFTS4 {
				t.Errorf("MatchExpression(fts4, %q) = %q, want %q", tt.in, got, tt.wantFTS4)
			}
			if got := MatchExpression(migrations.ModuleFTS5, tt.in); got != tt.wantFTS5 {
				t.Errorf("MatchExpression(fts5, %q) = %q, want %q", tt.in, got, tt.wantFTS5)
			}
		})
	}
}

func TestFileTypeClause(t *testing.T) {
	t.Parallel()

	if clause, args := fileTypeClause("  "); clause != "" || args != nil {
		t.Errorf("blank type = %q, %v; want no clause", clause, args)
	}
	if clause, args := fileTypeClause("image/*"); clause != `f.file_type LIKE ?` || args[0] != "image/%" {
		t.Errorf("image/* = %q, %v", clause, args)
	}
	if clause, args := fileTypeClause("Image/JPEG"); clause != `lower(f.file_type) = ?` || args[0] != "image/jpeg" {
		t.Errorf("Image/JPEG = %q, %v", clause, args)
	}
	if _, args := fileTypeClause("pdf"); len(args) < 3 {
		t.Errorf("bare value args = %v, want at least 3", args)
	}
}

// searchFixture catalogs two volumes:
//
//	Disk A: /docs/report-2023.pdf, /docs/notes.txt, /photos/beach.jpg
//	Disk B: /report-draft.txt
func searchFixture(t *testing.T, driver string) (c *Catalog, volA, volB int64) {
	t.Helper()

	c, _ = newTestCatalogWith(t, driver)
	volA, rootA := seedVolume(t, c, "Disk A", "A")
	volB, rootB := seedVolume(t, c, "Disk B", "B")
	docs := seedDir(t, c, volA, rootA, "/docs")
	photos := seedDir(t, c, volA, rootA, "/photos")

	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	seedFile(t, c, docs, "report-2023.pdf", "application/pdf", base.Add(3*time.Hour))
	seedFile(t, c, docs, "notes.txt", "text/plain", base.Add(2*time.Hour))
	seedFile(t, c, photos, "beach.jpg", "image/jpeg", base.Add(1*time.Hour))
	seedFile(t, c, rootB, "report-draft.txt", "text/plain", base.Add(4*time.Hour))
	return c, volA, volB
}

func names(entries []*katalog.FileEntry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func equalNames(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestCatalog_Search(t *testing.T) {
	for _, driver := range testDrivers {
		t.Run(driver, func(t *testing.T) {
			testSearch(t, driver)
		})
	}
}

func testSearch(t *testing.T, driver string) {
	c, volA, volB := searchFixture(t, driver)

	tests := []struct {
		name    string
		query   string
		filters katalog.SearchFilters
		want    []string
	}{
		{"name prefix newest first", "rep", katalog.SearchFilters{}, []string{"report-draft.txt", "report-2023.pdf"}},
		{"whole word", "beach", katalog.SearchFilters{}, []string{"beach.jpg"}},
		{"directory in path", "photos", katalog.SearchFilters{}, []string{"beach.jpg"}},
		{"all tokens must match", "report draft", katalog.SearchFilters{}, []string{"report-draft.txt"}},
		{"case insensitive", "BEACH", katalog.SearchFilters{}, []string{"beach.jpg"}},
		{"volume filter", "report", katalog.SearchFilters{VolumeID: volA}, []string{"report-2023.pdf"}},
		{"other volume", "report", katalog.SearchFilters{VolumeID: volB}, []string{"report-draft.txt"}},
		{"exact type", "report", katalog.SearchFilters{FileType: "application/pdf"}, []string{"report-2023.pdf"}},
		{"tokens never combine across files", "docs photos", katalog.SearchFilters{}, nil},
		{"major type", "beach", katalog.SearchFilters{FileType: "image/*"}, []string{"beach.jpg"}},
		{"major type excludes", "report", katalog.SearchFilters{FileType: "image/*"}, nil},
		{"bare minor type", "report", katalog.SearchFilters{FileType: "pdf"}, []string{"report-2023.pdf"}},
		{"bare major type", "notes", katalog.SearchFilters{FileType: "text"}, []string{"notes.txt"}},
		{"extension", "beach", katalog.SearchFilters{FileType: "jpg"}, []string{"beach.jpg"}},
		{"no match", "zebra", katalog.SearchFilters{}, nil},
		{"blank query", "   ", katalog.SearchFilters{}, nil},
		{"punctuation only", "**", katalog.SearchFilters{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Search(tt.query, tt.filters, 0, 0)
			if err != nil {
				t.Fatalf("Search(%q) error = %v", tt.query, err)
			}
			if !equalNames(names(got), tt.want) {
				t.Errorf("Search(%q) = %v, want %v", tt.query, names(got), tt.want)
			}
		})
	}
}

func TestCatalog_SearchEntries(t *testing.T) {
	c, volA, _ := searchFixture(t, DriverCgo)

	got, err := c.Search("beach", katalog.SearchFilters{}, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("Search() = %d entries, want 1", len(got))
	}
	e := got[0]
	if e.FullPath != "/photos/beach.jpg" {
		t.Errorf("FullPath = %q, want /photos/beach.jpg", e.FullPath)
	}
	if e.VolumeLabel != "Disk A" || e.VolumeID != volA {
		t.Errorf("volume = %q/%d, want Disk A/%d", e.VolumeLabel, e.VolumeID, volA)
	}
	if e.FileType != "image/jpeg" || e.Size != 10 {
		t.Errorf("entry = %+v", e)
	}
}

func TestCatalog_SearchPagination(t *testing.T) {
	c, _ := newTestCatalog(t)
	_, rootID := seedVolume(t, c, "Disk", "")
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"img-1.png", "img-2.png", "img-3.png", "img-4.png", "img-5.png"} {
		seedFile(t, c, rootID, name, "image/png", base.Add(time.Duration(i)*time.Minute))
	}

	page1, err := c.Search("img", katalog.SearchFilters{}, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	page2, _ := c.Search("img", katalog.SearchFilters{}, 2, 2)
	page3, _ := c.Search("img", katalog.SearchFilters{}, 2, 4)

	if want := []string{"img-5.png", "img-4.png"}; !equalNames(names(page1), want) {
		t.Errorf("page 1 = %v, want %v", names(page1), want)
	}
	if want := []string{"img-3.png", "img-2.png"}; !equalNames(names(page2), want) {
		t.Errorf("page 2 = %v, want %v", names(page2), want)
	}
	if want := []string{"img-1.png"}; !equalNames(names(page3), want) {
		t.Errorf("page 3 = %v, want %v", names(page3), want)
	}

	all, _ := c.Search("img", katalog.SearchFilters{}, -1, -5)
	if len(all) != 5 {
		t.Errorf("default limit returned %d entries, want 5", len(all))
	}
}

func TestCatalog_SearchTieBreak(t *testing.T) {
	c, _ := newTestCatalog(t)
	_, rootID := seedVolume(t, c, "Disk", "")
	first := seedFile(t, c, rootID, "same-a.txt", "", testNow)
	second := seedFile(t, c, rootID, "same-b.txt", "", testNow)

	got, err := c.Search("same", katalog.SearchFilters{}, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].FileID != second || got[1].FileID != first {
		t.Errorf("equal mtimes should order by id descending, got %v", names(got))
	}
}
