package archive

import (
	"sort"
	"time"
)

// ReportMeta is one entry in the archive index. The report body itself lives
// in the blob store under ContentKey; the index only carries metadata.
type ReportMeta struct {
	ID             string    `json:"id"`
	DateRangeStart string    `json:"date_range_start"`
	DateRangeEnd   string    `json:"date_range_end"`
	GeneratedAt    time.Time `json:"generated_at"`
	Title          string    `json:"title"`
	Summary        string    `json:"summary"`
	ContentKey     string    `json:"content_key"`
	Days           int       `json:"days"`
	TotalItems     int       `json:"total_items"`
}

// Index is the single mutable archive record: every report's metadata in
// newest-first order.
type Index struct {
	Reports   []ReportMeta `json:"reports"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func emptyIndex() *Index {
	return &Index{Reports: []ReportMeta{}}
}

// sortReports orders the index by date_range_end descending. Dates are ISO
// strings, so lexicographic comparison is chronological; equal ranges fall
// back to id so the order is fully determined by the data, never by
// insertion order.
func sortReports(reports []ReportMeta) {
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].DateRangeEnd != reports[j].DateRangeEnd {
			return reports[i].DateRangeEnd > reports[j].DateRangeEnd
		}
		return reports[i].ID < reports[j].ID
	})
}

// find returns the position of id in reports, or -1.
func find(reports []ReportMeta, id string) int {
	for i := range reports {
		if reports[i].ID == id {
			return i
		}
	}
	return -1
}
