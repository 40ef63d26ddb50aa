package models

// CourseOutcome defines the recorded result of one course attempt
type CourseOutcome string

const (
	OutcomePassed    CourseOutcome = "PASSED"
	OutcomeFailed    CourseOutcome = "FAILED"
	OutcomeWithdrawn CourseOutcome = "WITHDRAWN"
)

// Valid reports whether the outcome is one of the known values
func (o CourseOutcome) Valid() bool {
	switch o {
	case OutcomePassed, OutcomeFailed, OutcomeWithdrawn:
		return true
	}
	return false
}

// BlockReason explains why a course is not eligible for a student
type BlockReason string

const (
	BlockNone                 BlockReason = ""
	BlockPrereqUnmet          BlockReason = "PREREQ_UNMET"
	BlockAlreadyPassed        BlockReason = "ALREADY_PASSED"
	BlockProgramSequenceLimit BlockReason = "PROGRAM_SEQUENCE_LIMIT"
	BlockCapacityOnly         BlockReason = "CAPACITY_ONLY"
)

// RunStatus defines the lifecycle state of a progression run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusPartial   RunStatus = "PARTIAL" // soft time budget exhausted before all courses were processed
	RunStatusFailed    RunStatus = "FAILED"
)
