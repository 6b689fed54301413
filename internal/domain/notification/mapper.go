package notification

import (
	"fmt"
	"time"

	"github.com/Strob0t/hookrelay/internal/domain/mention"
	"github.com/Strob0t/hookrelay/internal/domain/webhook"
)

const (
	noDescription = "No description"
	noComment     = "No comment"
)

// Mapped is the result of mapping a variant.
type Mapped struct {
	Key      mention.EventKey
	Document Document
	// Actor is the login of the user who caused the event. It is the
	// candidate for a mention.
	Actor string
}

// Map translates a variant into its event key and document. now is used as
// the timestamp when the event carries none. Variants that are never relayed
// return an *webhook.UnhandledError.
func Map(v webhook.Variant, now time.Time) (Mapped, error) {
	now = now.UTC()

	switch ev := v.(type) {
	case webhook.PullRequestOpened:
		pr := ev.PullRequest
		doc := pullRequestDocument(ev.Repository, pr, "Opened", ColorGreen, now)
		if pr.Draft {
			doc.Title = title(ev.Repository, fmt.Sprintf("Draft PR #%d Opened: %s", pr.Number, pr.Title))
			doc.Color = ColorGray
		}
		return Mapped{Key: mention.KeyPROpened, Document: doc, Actor: pr.User.Login}, nil

	case webhook.PullRequestClosed:
		pr := ev.PullRequest
		ts := now
		if !pr.ClosedAt.IsZero() {
			ts = pr.ClosedAt.UTC()
		}
		if !pr.Merged {
			doc := pullRequestDocument(ev.Repository, pr, "Closed", ColorRed, ts)
			return Mapped{Key: mention.KeyPRClosed, Document: doc, Actor: pr.User.Login}, nil
		}
		doc := pullRequestDocument(ev.Repository, pr, "Merged", ColorPurple, ts)
		if pr.MergeCommitSHA != "" {
			mergedBy := "unknown"
			if pr.MergedBy != nil {
				mergedBy = pr.MergedBy.Login
			}
			doc.Fields = append(doc.Fields,
				Field{Name: "Merged By", Value: mergedBy, Inline: true},
				Field{Name: "Merge Commit", Value: shortSHA(pr.MergeCommitSHA), Inline: true},
			)
		}
		return Mapped{Key: mention.KeyPRMerged, Document: doc, Actor: pr.User.Login}, nil

	case webhook.PullRequestConvertedToDraft:
		pr := ev.PullRequest
		doc := pullRequestDocument(ev.Repository, pr, "Converted to Draft", ColorGray, now)
		return Mapped{Key: mention.KeyPRConvertedToDraft, Document: doc, Actor: pr.User.Login}, nil

	case webhook.PullRequestReadyForReview:
		pr := ev.PullRequest
		doc := pullRequestDocument(ev.Repository, pr, "Ready for Review", ColorGreen, now)
		return Mapped{Key: mention.KeyPRReadyForReview, Document: doc, Actor: pr.User.Login}, nil

	case webhook.ReviewSubmitted:
		return mapReview(ev, now)

	default:
		return Mapped{}, &webhook.UnhandledError{
			Reason: fmt.Sprintf("Event type '%s:%s' not handled", v.EventType(), v.Action()),
		}
	}
}

func mapReview(ev webhook.ReviewSubmitted, now time.Time) (Mapped, error) {
	var (
		key   mention.EventKey
		label string
		color int
	)
	switch ev.Review.State {
	case webhook.ReviewApproved:
		key, label, color = mention.KeyReviewApproved, "Approved", ColorGreen
	case webhook.ReviewChangesRequested:
		key, label, color = mention.KeyReviewChangesRequested, "Changes Requested", ColorAmber
	case webhook.ReviewCommented:
		key, label, color = mention.KeyReviewCommented, "Commented", ColorGray
	default:
		return Mapped{}, &webhook.UnhandledError{
			Reason: fmt.Sprintf("Review state '%s' not handled", ev.Review.State),
		}
	}

	ts := now
	if !ev.Review.SubmittedAt.IsZero() {
		ts = ev.Review.SubmittedAt.UTC()
	}

	pr, reviewer := ev.PullRequest, ev.Review.User
	doc := Document{
		Title:       title(ev.Repository, fmt.Sprintf("PR #%d Review: %s", pr.Number, label)),
		Description: truncate(Sanitize(ev.Review.Body, noComment), MaxDescriptionLen),
		URL:         ev.Review.HTMLURL,
		Color:       color,
		Timestamp:   ts,
		Footer:      &Footer{Text: ev.Repository.FullName},
		Author:      author(reviewer),
		Fields: []Field{
			{Name: "PR Title", Value: truncate(pr.Title, MaxFieldValueLen)},
			{Name: "Reviewer", Value: reviewer.Login, Inline: true},
			{Name: "PR Author", Value: pr.User.Login, Inline: true},
		},
	}
	return Mapped{Key: key, Document: doc, Actor: reviewer.Login}, nil
}

func pullRequestDocument(repo webhook.Repository, pr webhook.PullRequest, verb string, color int, ts time.Time) Document {
	return Document{
		Title:       title(repo, fmt.Sprintf("PR #%d %s: %s", pr.Number, verb, pr.Title)),
		Description: truncate(Sanitize(pr.Body, noDescription), MaxDescriptionLen),
		URL:         pr.HTMLURL,
		Color:       color,
		Timestamp:   ts,
		Footer:      &Footer{Text: repo.FullName},
		Author:      author(pr.User),
		Fields: []Field{
			{Name: "Author", Value: pr.User.Login},
		},
	}
}

func title(repo webhook.Repository, s string) string {
	return truncate("["+repo.Name+"]: "+s, MaxTitleLen)
}

func author(u webhook.User) *Author {
	return &Author{Name: u.Login, URL: u.URL, IconURL: u.AvatarURL}
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
