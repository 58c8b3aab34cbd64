package dashboard

// Named anchors on the dashboard page.
const (
	AnchorSearchInput        = "searchInput"
	AnchorFilterNotApplied   = "filterNotApplied"
	AnchorFilterApplied      = "filterApplied"
	AnchorFilterInterviewing = "filterInterviewing"
	AnchorSourceFilter       = "sourceFilter"
	AnchorExportBtn          = "exportBtn"
	AnchorJobsList           = "jobsList"
	AnchorTotalJobs          = "totalJobs"
	AnchorAppliedCount       = "appliedCount"
	AnchorNewJobs            = "newJobs"
	AnchorLastUpdated        = "lastUpdated"
)

// Surface is the presentation the view model writes to. Implementations
// address elements by anchor name; a missing anchor is a programming error and
// is not detected.
type Surface interface {
	SetHTML(anchor, html string) error
	SetText(anchor, text string) error
	Download(filename, contentType string, data []byte) error
}

// ErrorReporter is implemented by surfaces that can show a rejected event to
// the user without interrupting the session.
type ErrorReporter interface {
	ReportError(message string) error
}
