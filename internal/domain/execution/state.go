package execution

// JobState tracks the progress of a single job.
//
//	pending -> provisioning -> compiling -> running -> classifying -> done
//
// Failed is reachable from every state. Done and Failed are only entered once
// the sandbox has been torn down.
type JobState string

const (
	JobPending      JobState = "pending"
	JobProvisioning JobState = "provisioning"
	JobCompiling    JobState = "compiling"
	JobRunning      JobState = "running"
	JobClassifying  JobState = "classifying"
	JobDone         JobState = "done"
	JobFailed       JobState = "failed"
)

// Terminal reports whether no further transition can happen.
func (s JobState) Terminal() bool {
	return s == JobDone || s == JobFailed
}
