package dashboard

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobboard/dashboard/internal/catalog"
	"github.com/jobboard/dashboard/internal/export"
	"github.com/jobboard/dashboard/internal/status"
)

var engineerAtAcme = catalog.Job{
	ID:          "a",
	Title:       "Engineer",
	Company:     "Acme",
	Location:    "NYC",
	URL:         "http://x",
	Source:      "ycomb",
	ScrapedDate: "2024-01-10T00:00:00Z",
}

func loadedViewModel(t *testing.T, jobs []catalog.Job) (*ViewModel, *fakeSurface, *status.Store) {
	t.Helper()
	surface := newFakeSurface()
	store := newStatusStore(t, newKV(t))
	vm := NewViewModel(surface, store, testOptions())
	require.NoError(t, vm.CatalogLoaded(jobs))
	return vm, surface, store
}

func TestViewModel_FreshRender(t *testing.T) {
	_, surface, _ := loadedViewModel(t, []catalog.Job{engineerAtAcme})

	doc := parse(t, surface.HTML(AnchorJobsList))
	require.Equal(t, 1, doc.Find(".job-card").Length())
	assert.Equal(t, "Not Applied", strings.TrimSpace(doc.Find(".status-badge").Text()))
	assert.Equal(t, "Engineer", doc.Find(".job-title").Text())
	assert.Equal(t, "Acme", doc.Find(".job-company").Text())
	assert.Equal(t, "5 days ago", doc.Find(".job-date").Text())

	requireText(t, surface, AnchorTotalJobs, "Total: 1")
	requireText(t, surface, AnchorAppliedCount, "Applied: 0")
	requireText(t, surface, AnchorNewJobs, "New: 0")
	requireText(t, surface, AnchorLastUpdated, "1/10/2024, 12:00:00 AM")
}

func TestViewModel_CardLinkAndActions(t *testing.T) {
	_, surface, _ := loadedViewModel(t, []catalog.Job{engineerAtAcme})

	card := parse(t, surface.HTML(AnchorJobsList)).Find(".job-card")
	link := card.Find("a")
	href, _ := link.Attr("href")
	target, _ := link.Attr("target")
	rel, _ := link.Attr("rel")
	assert.Equal(t, "http://x", href)
	assert.Equal(t, "_blank", target)
	assert.Equal(t, "noopener noreferrer", rel)
	assert.Equal(t, "View Job", link.Text())

	buttons := card.Find("button")
	require.Equal(t, 1, buttons.Length())
	to, _ := buttons.Attr("data-status")
	assert.Equal(t, "applied", to)
	assert.Equal(t, "Mark Applied", buttons.Text())
}

func TestViewModel_TransitionAppliedToInterviewing(t *testing.T) {
	vm, surface, store := loadedViewModel(t, []catalog.Job{engineerAtAcme})

	require.NoError(t, vm.Transition("a", status.Applied))
	assert.Equal(t, status.Applied, store.Get("a"))

	buttons := parse(t, surface.HTML(AnchorJobsList)).Find(".job-card button")
	require.Equal(t, 2, buttons.Length())
	assert.Equal(t, "Mark Interviewing", buttons.Eq(0).Text())
	assert.Equal(t, "Reset", buttons.Eq(1).Text())

	require.NoError(t, vm.Transition("a", status.Interviewing))
	assert.Equal(t, status.Interviewing, store.Get("a"))

	doc := parse(t, surface.HTML(AnchorJobsList))
	assert.Equal(t, "Interviewing", strings.TrimSpace(doc.Find(".status-badge").Text()))
	assert.True(t, doc.Find(".job-card").HasClass("interviewing"))
	assert.Equal(t, "Back to Applied", doc.Find(".job-card button").Text())
	requireText(t, surface, AnchorAppliedCount, "Applied: 1")
}

func TestViewModel_TransitionIsPersistedBeforeRender(t *testing.T) {
	surface := newFakeSurface()
	kv := newKV(t)
	vm := NewViewModel(surface, newStatusStore(t, kv), testOptions())
	require.NoError(t, vm.CatalogLoaded([]catalog.Job{engineerAtAcme}))

	require.NoError(t, vm.Transition("a", status.Applied))

	reloaded := newStatusStore(t, kv)
	assert.Equal(t, status.Applied, reloaded.Get("a"))
}

func TestViewModel_RejectsInvalidTransitions(t *testing.T) {
	vm, _, store := loadedViewModel(t, []catalog.Job{engineerAtAcme})

	err := vm.Transition("a", status.Interviewing)
	require.ErrorIs(t, err, ErrInvalidTransition)

	err = vm.Transition("a", status.Status("rejected"))
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.ErrorIs(t, err, status.ErrUnknownStatus)

	assert.Equal(t, 0, store.Len())
}

func TestViewModel_Search(t *testing.T) {
	jobs := []catalog.Job{
		{ID: "1", Title: "Backend Engineer", Company: "Acme", ScrapedDate: "2024-01-10"},
		{ID: "2", Title: "Sales Manager", Company: "Beta", ScrapedDate: "2024-01-09"},
	}
	vm, surface, _ := loadedViewModel(t, jobs)

	require.NoError(t, vm.SetSearch("engineer"))
	assert.Equal(t, []string{"1"}, cardIDs(t, surface.HTML(AnchorJobsList)))

	require.NoError(t, vm.SetSearch("ENGINEER"))
	assert.Equal(t, []string{"1"}, cardIDs(t, surface.HTML(AnchorJobsList)))

	require.NoError(t, vm.SetSearch(""))
	assert.Equal(t, []string{"1", "2"}, cardIDs(t, surface.HTML(AnchorJobsList)))

	requireText(t, surface, AnchorTotalJobs, "Total: 2")
}

func TestViewModel_SourceFilter(t *testing.T) {
	jobs := []catalog.Job{
		{ID: "1", Title: "One", Source: "ycomb", ScrapedDate: "2024-01-10"},
		{ID: "2", Title: "Two", Source: "other", ScrapedDate: "2024-01-09"},
		{ID: "3", Title: "Three", Source: "ycomb", ScrapedDate: "2024-01-08"},
	}
	vm, surface, _ := loadedViewModel(t, jobs)

	require.NoError(t, vm.SetSource("ycomb"))
	assert.Equal(t, []string{"1", "3"}, cardIDs(t, surface.HTML(AnchorJobsList)))
	assert.Len(t, vm.Visible(), 2)

	require.NoError(t, vm.SetSource(""))
	assert.Equal(t, []string{"1", "2", "3"}, cardIDs(t, surface.HTML(AnchorJobsList)))
}

func TestViewModel_EscapesCatalogText(t *testing.T) {
	hostile := catalog.Job{
		ID:          `x" onclick="alert(1)`,
		Title:       "<img src=x onerror=alert(1)>",
		Company:     "<script>alert(1)</script>",
		Location:    "NYC",
		URL:         "javascript:alert(1)",
		Source:      "<b>src</b>",
		Description: "<img src=y>",
		ScrapedDate: "2024-01-10T00:00:00Z",
	}
	_, surface, _ := loadedViewModel(t, []catalog.Job{hostile})

	doc := parse(t, surface.HTML(AnchorJobsList))
	assert.Equal(t, 0, doc.Find("img").Length())
	assert.Equal(t, 0, doc.Find("script").Length())
	assert.Equal(t, 0, doc.Find("b").Length())
	assert.Equal(t, hostile.Title, doc.Find(".job-title").Text())
	assert.Equal(t, hostile.Company, doc.Find(".job-company").Text())

	card := doc.Find(".job-card")
	id, _ := card.Attr("data-job-id")
	assert.Equal(t, hostile.ID, id)
	_, hasOnclick := card.Attr("onclick")
	assert.False(t, hasOnclick)

	href, _ := card.Find("a").Attr("href")
	assert.NotContains(t, href, "javascript:")
}

func TestViewModel_DescriptionPreview(t *testing.T) {
	long := strings.Repeat("é", 250)
	jobs := []catalog.Job{
		{ID: "long", Title: "Long", Description: long, ScrapedDate: "2024-01-10"},
		{ID: "short", Title: "Short", Description: "brief", ScrapedDate: "2024-01-10"},
		{ID: "none", Title: "None", ScrapedDate: "2024-01-10"},
	}
	_, surface, _ := loadedViewModel(t, jobs)

	doc := parse(t, surface.HTML(AnchorJobsList))
	assert.Equal(t, strings.Repeat("é", 200)+"...", doc.Find(`[data-job-id="long"] .job-description`).Text())
	assert.Equal(t, "brief", doc.Find(`[data-job-id="short"] .job-description`).Text())
	assert.Equal(t, 0, doc.Find(`[data-job-id="none"] .job-description`).Length())
}

func TestViewModel_EmptyStates(t *testing.T) {
	surface := newFakeSurface()
	vm := NewViewModel(surface, newStatusStore(t, newKV(t)), testOptions())

	require.NoError(t, vm.SetSearch("anything"))
	assert.Contains(t, surface.HTML(AnchorJobsList), "Loading jobs...")
	_, written := surface.Text(AnchorTotalJobs)
	assert.False(t, written)

	require.NoError(t, vm.CatalogLoaded([]catalog.Job{engineerAtAcme}))
	assert.Contains(t, surface.HTML(AnchorJobsList), "No jobs match your current filters.")

	require.NoError(t, vm.SetSearch(""))
	require.NoError(t, vm.SetStatusFilter(status.NotApplied, false))
	assert.Contains(t, surface.HTML(AnchorJobsList), "No jobs match your current filters.")
	assert.Empty(t, vm.Visible())
}

func TestViewModel_SetStatusFilterRejectsUnknownStatus(t *testing.T) {
	vm, _, _ := loadedViewModel(t, []catalog.Job{engineerAtAcme})
	require.ErrorIs(t, vm.SetStatusFilter("archived", false), status.ErrUnknownStatus)
}

func TestViewModel_FailedCatalogIsSticky(t *testing.T) {
	surface := newFakeSurface()
	vm := NewViewModel(surface, newStatusStore(t, newKV(t)), testOptions())

	require.NoError(t, vm.CatalogFailed(catalog.ErrCatalogUnavailable))
	assert.Equal(t, StateFailed, vm.State())
	assert.Contains(t, surface.HTML(AnchorJobsList), "No jobs available yet")

	require.NoError(t, vm.SetSearch("engineer"))
	assert.Contains(t, surface.HTML(AnchorJobsList), "No jobs available yet")

	for _, anchor := range []string{AnchorTotalJobs, AnchorAppliedCount, AnchorNewJobs, AnchorLastUpdated} {
		_, written := surface.Text(anchor)
		assert.False(t, written, "%s should keep its initial value", anchor)
	}
}

func TestViewModel_StatsIdentities(t *testing.T) {
	jobs := []catalog.Job{
		{ID: "1", Title: "Fresh", ScrapedDate: fixedNow.Add(-time.Hour).Format(time.RFC3339)},
		{ID: "2", Title: "Boundary", ScrapedDate: fixedNow.Add(-24 * time.Hour).Format(time.RFC3339)},
		{ID: "3", Title: "Old", ScrapedDate: "2024-01-01T00:00:00Z"},
	}
	vm, surface, store := loadedViewModel(t, jobs)

	require.NoError(t, vm.Transition("1", status.Applied))
	require.NoError(t, vm.Transition("3", status.Applied))
	require.NoError(t, vm.Transition("3", status.Interviewing))
	require.NoError(t, store.Set("gone-from-catalog", status.Applied))
	require.NoError(t, vm.Refresh())

	assert.Equal(t, Stats{Total: 3, Applied: 3, New: 1}, vm.Stats())
	requireText(t, surface, AnchorTotalJobs, "Total: 3")
	requireText(t, surface, AnchorAppliedCount, "Applied: 3")
	requireText(t, surface, AnchorNewJobs, "New: 1")
}

func TestViewModel_SourceOptions(t *testing.T) {
	surface := newFakeSurface()
	opts := testOptions()
	opts.KnownSources = []string{"LinkedIn", "Indeed", "ycomb"}
	vm := NewViewModel(surface, newStatusStore(t, newKV(t)), opts)

	require.NoError(t, vm.SetSource("ycomb"))
	require.NoError(t, vm.CatalogLoaded([]catalog.Job{engineerAtAcme, {ID: "b", Source: "Acme Careers", ScrapedDate: "2024-01-09"}}))

	doc := parse(t, "<select>"+surface.HTML(AnchorSourceFilter)+"</select>")
	var values []string
	doc.Find("option").Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("value")
		values = append(values, v)
	})
	assert.Equal(t, []string{"all", "Acme Careers", "Indeed", "LinkedIn", "ycomb"}, values)

	selected, _ := doc.Find("option[selected]").Attr("value")
	assert.Equal(t, "ycomb", selected)
	assert.Equal(t, []string{"a"}, cardIDs(t, surface.HTML(AnchorJobsList)))
}

func TestViewModel_Export(t *testing.T) {
	vm, surface, _ := loadedViewModel(t, []catalog.Job{engineerAtAcme})
	require.NoError(t, vm.Transition("a", status.Applied))

	require.NoError(t, vm.Export())
	require.Len(t, surface.downloads, 1)

	d := surface.downloads[0]
	assert.Equal(t, export.Filename, d.filename)
	assert.Equal(t, export.ContentType, d.contentType)

	lines := strings.Split(string(d.data), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(export.Header, ","), lines[0])
	assert.Contains(t, lines[1], `"applied","2024-01-15T12:00:00Z"`)
}

func TestViewModel_ExportBeforeLoadIsHeaderOnly(t *testing.T) {
	surface := newFakeSurface()
	vm := NewViewModel(surface, newStatusStore(t, newKV(t)), testOptions())

	require.NoError(t, vm.Export())
	require.Len(t, surface.downloads, 1)
	assert.Equal(t, strings.Join(export.Header, ","), string(surface.downloads[0].data))
}

func TestRelativeDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", "Unknown"},
		{"not a date", "Unknown"},
		{"2024-01-15T08:00:00Z", "Today"},
		{"2024-01-16T00:00:00Z", "Today"},
		{"2024-01-14T11:00:00Z", "Yesterday"},
		{"2024-01-12T12:00:00Z", "3 days ago"},
		{"2024-01-09 00:00:00", "6 days ago"},
		{"2024-01-08T12:00:00Z", "1/8/2024"},
		{"2023-12-25", "12/25/2023"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, RelativeDate(tt.raw, fixedNow, DefaultDateLayout, time.UTC))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab...", truncate("abc", 2))
	assert.Equal(t, "", truncate("", 200))
}
