package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Strob0t/hookrelay/internal/domain"
)

// ErrUnhandled matches every UnhandledError.
var ErrUnhandled = errors.New("event not handled")

// UnhandledError reports a well-formed delivery the relay deliberately ignores.
type UnhandledError struct {
	Reason string
}

func (e *UnhandledError) Error() string { return e.Reason }

// Is makes errors.Is(err, ErrUnhandled) hold.
func (e *UnhandledError) Is(target error) bool { return target == ErrUnhandled }

// InvalidError reports a delivery that does not match any accepted shape.
type InvalidError struct {
	Reason string
}

func (e *InvalidError) Error() string { return "invalid payload: " + e.Reason }

// Unwrap ties payload rejections to domain.ErrValidation.
func (e *InvalidError) Unwrap() error { return domain.ErrValidation }

func unhandled(format string, args ...any) error {
	return &UnhandledError{Reason: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...any) error {
	return &InvalidError{Reason: fmt.Sprintf(format, args...)}
}

// Supported reports whether the event type is one the relay accepts.
func Supported(eventType string) bool {
	switch EventType(eventType) {
	case EventPullRequest, EventPullRequestReview:
		return true
	default:
		return false
	}
}

// Parse validates body against the shape declared for (eventType, action)
// and returns the matching variant. It returns an *UnhandledError for event
// types or actions the relay ignores and an *InvalidError for anything that
// does not match a declared shape. Nothing is coerced.
func Parse(eventType string, body []byte) (Variant, error) {
	if !Supported(eventType) {
		return nil, unhandled("Event type '%s' not handled", eventType)
	}
	if !json.Valid(body) {
		return nil, invalid("malformed json")
	}

	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil || envelope == nil {
		return nil, invalid("payload must be a JSON object")
	}
	action, ok := envelope["action"].(string)
	if !ok {
		return nil, invalid("missing or non-string action")
	}

	schema, ok := schemas[schemaKey{EventType(eventType), action}]
	if !ok {
		return nil, unhandled("Event type '%s:%s' not handled", eventType, action)
	}

	res, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, invalid("%v", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, desc := range res.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, invalid("%s", strings.Join(msgs, "; "))
	}

	return decode(EventType(eventType), action, body)
}

type rawUser struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	URL       string `json:"url"`
	HTMLURL   string `json:"html_url"`
}

type rawRepository struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
}

// rawPullRequest carries the fields every pull request shape declares.
type rawPullRequest struct {
	Number  int     `json:"number"`
	Title   string  `json:"title"`
	HTMLURL string  `json:"html_url"`
	User    rawUser `json:"user"`
	Body    string  `json:"body"`
}

type rawDraft struct {
	Draft bool `json:"draft"`
}

type rawMerge struct {
	Merged         bool     `json:"merged"`
	MergedBy       *rawUser `json:"merged_by"`
	MergeCommitSHA string   `json:"merge_commit_sha"`
	ClosedAt       string   `json:"closed_at"`
}

type rawReview struct {
	ID          int64   `json:"id"`
	State       string  `json:"state"`
	Body        string  `json:"body"`
	HTMLURL     string  `json:"html_url"`
	User        rawUser `json:"user"`
	SubmittedAt string  `json:"submitted_at"`
}

// rawEnvelope defers every sub-object so that only the parts a variant's
// schema declares are ever decoded.
type rawEnvelope struct {
	Repository  json.RawMessage `json:"repository"`
	PullRequest json.RawMessage `json:"pull_request"`
	Review      json.RawMessage `json:"review"`
}

func decode(eventType EventType, action string, body []byte) (Variant, error) {
	switch {
	case eventType == EventPullRequest && action == ActionSynchronize:
		return PullRequestSynchronize{}, nil
	case eventType == EventPullRequest && action == ActionEdited:
		return PullRequestEdited{}, nil
	}

	var env rawEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, invalid("%v", err)
	}

	var repo rawRepository
	if err := decodePart("repository", env.Repository, &repo); err != nil {
		return nil, err
	}
	var core rawPullRequest
	if err := decodePart("pull_request", env.PullRequest, &core); err != nil {
		return nil, err
	}
	pr := core.toDomain()

	switch action {
	case ActionOpened, ActionConvertedToDraft, ActionReadyForReview:
		var d rawDraft
		if err := decodePart("pull_request", env.PullRequest, &d); err != nil {
			return nil, err
		}
		pr.Draft = d.Draft
	case ActionClosed:
		var m rawMerge
		if err := decodePart("pull_request", env.PullRequest, &m); err != nil {
			return nil, err
		}
		if err := m.apply(&pr); err != nil {
			return nil, err
		}
	}

	switch action {
	case ActionOpened:
		return PullRequestOpened{Repository: repo.toDomain(), PullRequest: pr}, nil
	case ActionClosed:
		return PullRequestClosed{Repository: repo.toDomain(), PullRequest: pr}, nil
	case ActionConvertedToDraft:
		return PullRequestConvertedToDraft{Repository: repo.toDomain(), PullRequest: pr}, nil
	case ActionReadyForReview:
		return PullRequestReadyForReview{Repository: repo.toDomain(), PullRequest: pr}, nil
	case ActionSubmitted:
		var rr rawReview
		if err := decodePart("review", env.Review, &rr); err != nil {
			return nil, err
		}
		review, err := rr.toDomain()
		if err != nil {
			return nil, err
		}
		return ReviewSubmitted{Repository: repo.toDomain(), PullRequest: pr, Review: review}, nil
	default:
		return nil, unhandled("Event type '%s:%s' not handled", eventType, action)
	}
}

// decodePart unmarshals one sub-object. An absent part leaves v zeroed.
func decodePart(name string, raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return invalid("%s: %v", name, err)
	}
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}

func (u rawUser) toDomain() User {
	url := u.HTMLURL
	if url == "" {
		url = u.URL
	}
	return User{Login: orUnknown(u.Login), AvatarURL: u.AvatarURL, URL: url}
}

func (r rawRepository) toDomain() Repository {
	return Repository{Name: orUnknown(r.Name), FullName: orUnknown(r.FullName)}
}

func (p rawPullRequest) toDomain() PullRequest {
	return PullRequest{
		Number:  p.Number,
		Title:   p.Title,
		HTMLURL: p.HTMLURL,
		User:    p.User.toDomain(),
		Body:    p.Body,
	}
}

func (m rawMerge) apply(pr *PullRequest) error {
	closedAt, err := parseTime("closed_at", m.ClosedAt)
	if err != nil {
		return err
	}
	pr.Merged = m.Merged
	pr.MergeCommitSHA = m.MergeCommitSHA
	pr.ClosedAt = closedAt
	if m.MergedBy != nil {
		u := m.MergedBy.toDomain()
		pr.MergedBy = &u
	}
	return nil
}

func (r rawReview) toDomain() (Review, error) {
	submittedAt, err := parseTime("submitted_at", r.SubmittedAt)
	if err != nil {
		return Review{}, err
	}
	return Review{
		ID:          r.ID,
		State:       ReviewState(r.State),
		Body:        r.Body,
		HTMLURL:     r.HTMLURL,
		User:        r.User.toDomain(),
		SubmittedAt: submittedAt,
	}, nil
}

func parseTime(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, invalid("%s: not an ISO-8601 timestamp", field)
	}
	return t, nil
}
