package views

// ReportLine is one expense inside a report
type ReportLine struct {
	ID          int64
	Date        string
	Description string
	Notes       string
	Amount      float64
}

// Report is an expense report
type Report struct {
	ID          int64
	Title       string
	Duration    string
	Lines       []ReportLine
	TotalAmount float64
	Status      string
}

// Stat is one summary figure
type Stat struct {
	Label string
	Value string
}

// ReportsView is what the reports page shows
type ReportsView struct {
	Reports []Report
	Stats   []Stat
}

// ReportsPage shows expense reports. The backend has no report endpoints
// yet, so it renders a fixed sample.
// TODO: load reports from the API once /reports exists on the backend.
type ReportsPage struct{}

// NewReportsPage creates the reports page
func NewReportsPage() *ReportsPage { return &ReportsPage{} }

// Load returns the sample report and zeroed stats
func (p *ReportsPage) Load() ReportsView {
	return ReportsView{
		Reports: []Report{{
			ID:       1,
			Title:    "Monthly Report (John)",
			Duration: "1/02/2025 - 07/02/2025",
			Lines: []ReportLine{{
				ID:          1,
				Date:        "1/02/2025",
				Description: "Food Expense",
				Notes:       "Meeting with Client Mr.Jankar at his place",
				Amount:      15.00,
			}},
			TotalAmount: 15.00,
			Status:      "DRAFT",
		}},
		Stats: []Stat{
			{Label: "Most Recent Reports", Value: "0"},
			{Label: "Unsubmitted Reports", Value: "0"},
			{Label: "Awaiting Approval", Value: "0"},
			{Label: "Awaiting Reimbursement", Value: "0 (Rs 0.00)"},
		},
	}
}
