package entity

// Report type identifiers
const (
	ReportTypeWeekly    ReportType = "weekly"
	ReportTypeMeeting   ReportType = "meeting"
	ReportTypeEducation ReportType = "education"
	ReportTypeCell      ReportType = "cell" // cell-leader report, carries attendance
)

// Attendance provenance values (checked_via)
const (
	CheckedViaCellReport = "cell_report"
	CheckedViaManualGrid = "manual_grid"
)

// AttendanceTypeCellMeeting is the attendance category recorded by cell reports
const AttendanceTypeCellMeeting = "cell_meeting"

// AttendanceDateLayout is the layout of attendance dates
const AttendanceDateLayout = "2006-01-02"

// ReportLinkPrefix prefixes every link this service produces
const ReportLinkPrefix = "/reports/"
