package submissions

import "time"

// TimeLayout renders timestamps as UTC ISO-8601 with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

type Submission struct {
	Name        string `json:"name"`
	SubmittedAt string `json:"submittedAt"`
}

func NewSubmission(name string, at time.Time) Submission {
	return Submission{
		Name:        name,
		SubmittedAt: at.UTC().Format(TimeLayout),
	}
}
