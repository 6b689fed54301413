// Package webhook defines the typed pull-request and review events accepted
// from the source-control host, and the parser that turns a raw delivery into
// one of them.
package webhook

import "time"

// EventType is the value of the X-GitHub-Event header.
type EventType string

const (
	EventPullRequest       EventType = "pull_request"
	EventPullRequestReview EventType = "pull_request_review"
)

// Pull request actions.
const (
	ActionOpened           = "opened"
	ActionClosed           = "closed"
	ActionConvertedToDraft = "converted_to_draft"
	ActionReadyForReview   = "ready_for_review"
	ActionSynchronize      = "synchronize"
	ActionEdited           = "edited"
)

// ActionSubmitted is the only accepted pull_request_review action.
const ActionSubmitted = "submitted"

// Unknown is substituted for absent names.
const Unknown = "Unknown"

// ReviewState is the outcome of a submitted review.
type ReviewState string

const (
	ReviewApproved         ReviewState = "approved"
	ReviewChangesRequested ReviewState = "changes_requested"
	ReviewCommented        ReviewState = "commented"
)

// User is an account on the source-control host.
type User struct {
	Login     string
	AvatarURL string
	URL       string
}

// Repository names the repository an event belongs to.
type Repository struct {
	Name     string
	FullName string
}

// PullRequest holds the pull request fields used for notifications.
type PullRequest struct {
	Number         int
	Title          string
	HTMLURL        string
	User           User
	Body           string
	Draft          bool
	Merged         bool
	MergedBy       *User
	MergeCommitSHA string
	ClosedAt       time.Time // zero when absent
}

// Review holds the fields of a submitted review.
type Review struct {
	ID          int64
	State       ReviewState
	Body        string
	HTMLURL     string
	User        User
	SubmittedAt time.Time // zero when absent
}

// Variant is one of the accepted event shapes. The set is closed: only types
// in this package implement it.
type Variant interface {
	EventType() EventType
	Action() string
	isVariant()
}

// PullRequestOpened is pull_request/opened.
type PullRequestOpened struct {
	Repository  Repository
	PullRequest PullRequest
}

// PullRequestClosed is pull_request/closed, merged or not.
type PullRequestClosed struct {
	Repository  Repository
	PullRequest PullRequest
}

// PullRequestConvertedToDraft is pull_request/converted_to_draft.
type PullRequestConvertedToDraft struct {
	Repository  Repository
	PullRequest PullRequest
}

// PullRequestReadyForReview is pull_request/ready_for_review.
type PullRequestReadyForReview struct {
	Repository  Repository
	PullRequest PullRequest
}

// PullRequestSynchronize is pull_request/synchronize. It carries no data and
// is never relayed.
type PullRequestSynchronize struct{}

// PullRequestEdited is pull_request/edited. It carries no data and is never
// relayed.
type PullRequestEdited struct{}

// ReviewSubmitted is pull_request_review/submitted.
type ReviewSubmitted struct {
	Repository  Repository
	PullRequest PullRequest
	Review      Review
}

func (PullRequestOpened) EventType() EventType           { return EventPullRequest }
func (PullRequestClosed) EventType() EventType           { return EventPullRequest }
func (PullRequestConvertedToDraft) EventType() EventType { return EventPullRequest }
func (PullRequestReadyForReview) EventType() EventType   { return EventPullRequest }
func (PullRequestSynchronize) EventType() EventType      { return EventPullRequest }
func (PullRequestEdited) EventType() EventType           { return EventPullRequest }
func (ReviewSubmitted) EventType() EventType             { return EventPullRequestReview }

func (PullRequestOpened) Action() string           { return ActionOpened }
func (PullRequestClosed) Action() string           { return ActionClosed }
func (PullRequestConvertedToDraft) Action() string { return ActionConvertedToDraft }
func (PullRequestReadyForReview) Action() string   { return ActionReadyForReview }
func (PullRequestSynchronize) Action() string      { return ActionSynchronize }
func (PullRequestEdited) Action() string           { return ActionEdited }
func (ReviewSubmitted) Action() string             { return ActionSubmitted }

func (PullRequestOpened) isVariant()           {}
func (PullRequestClosed) isVariant()           {}
func (PullRequestConvertedToDraft) isVariant() {}
func (PullRequestReadyForReview) isVariant()   {}
func (PullRequestSynchronize) isVariant()      {}
func (PullRequestEdited) isVariant()           {}
func (ReviewSubmitted) isVariant()             {}
