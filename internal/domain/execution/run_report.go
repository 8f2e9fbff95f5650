package execution

// RunReport pairs a queued request with its outcome. Exactly one of Report
// and Err is set.
type RunReport struct {
	Request JobRequest
	Report  *Report
	Err     error
}

// JobID returns the identifier of the job, falling back to the request ID
// when the job never got far enough to be built.
func (r RunReport) JobID() string {
	if r.Report != nil && r.Report.JobID != "" {
		return r.Report.JobID
	}
	return r.Request.ID
}
