package webhook

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// schemaKey selects the schema for one (event, action) pair.
type schemaKey struct {
	event  EventType
	action string
}

// schemas holds every accepted shape, compiled once. A pair missing from the
// map is an action the relay does not handle.
var schemas = mustCompileSchemas()

func mustCompileSchemas() map[schemaKey]*gojsonschema.Schema {
	defs := map[schemaKey]map[string]any{
		{EventPullRequest, ActionOpened}:           pullRequestSchema(ActionOpened, prOptional()),
		{EventPullRequest, ActionClosed}:           pullRequestSchema(ActionClosed, prClosedOptional()),
		{EventPullRequest, ActionConvertedToDraft}: pullRequestSchema(ActionConvertedToDraft, prDraftPinned(true)),
		{EventPullRequest, ActionReadyForReview}:   pullRequestSchema(ActionReadyForReview, prDraftPinned(false)),
		{EventPullRequest, ActionSynchronize}:      actionOnlySchema(ActionSynchronize),
		{EventPullRequest, ActionEdited}:           actionOnlySchema(ActionEdited),
		{EventPullRequestReview, ActionSubmitted}:  reviewSubmittedSchema(),
	}

	out := make(map[schemaKey]*gojsonschema.Schema, len(defs))
	for k, def := range defs {
		s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def))
		if err != nil {
			panic(fmt.Sprintf("compile schema %s/%s: %v", k.event, k.action, err))
		}
		out[k] = s
	}
	return out
}

func str() map[string]any { return map[string]any{"type": "string"} }

func nullable(t string) map[string]any {
	return map[string]any{"type": []any{t, "null"}}
}

func nullableDateTime() map[string]any {
	return map[string]any{"type": []any{"string", "null"}, "format": "date-time"}
}

func object(required []string, props map[string]any) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		req := make([]any, len(required))
		for i, r := range required {
			req[i] = r
		}
		s["required"] = req
	}
	return s
}

func userSchema() map[string]any {
	return object([]string{"login"}, map[string]any{
		"login":      str(),
		"avatar_url": nullable("string"),
		"url":        nullable("string"),
		"html_url":   nullable("string"),
	})
}

func repositorySchema() map[string]any {
	return object(nil, map[string]any{
		"name":      nullable("string"),
		"full_name": nullable("string"),
	})
}

// pullRequestCore lists the fields every pull request shape requires.
func pullRequestCore() (required []string, props map[string]any) {
	return []string{"number", "title", "html_url", "user"}, map[string]any{
		"number":   map[string]any{"type": "integer"},
		"title":    str(),
		"html_url": str(),
		"user":     userSchema(),
		"body":     nullable("string"),
	}
}

func prOptional() map[string]any {
	return map[string]any{"draft": nullable("boolean")}
}

func prClosedOptional() map[string]any {
	merged := userSchema()
	merged["type"] = []any{"object", "null"}
	return map[string]any{
		"merged":           nullable("boolean"),
		"merged_by":        merged,
		"merge_commit_sha": nullable("string"),
		"closed_at":        nullableDateTime(),
		"merged_at":        nullableDateTime(),
	}
}

// prDraftPinned constrains draft to the only value consistent with the action.
func prDraftPinned(draft bool) map[string]any {
	return map[string]any{"draft": map[string]any{"enum": []any{draft}}}
}

func pullRequestSchema(action string, extra map[string]any) map[string]any {
	required, props := pullRequestCore()
	for k, v := range extra {
		props[k] = v
	}
	return object([]string{"action", "pull_request"}, map[string]any{
		"action":       map[string]any{"const": action},
		"repository":   repositorySchema(),
		"pull_request": object(required, props),
	})
}

func actionOnlySchema(action string) map[string]any {
	return object([]string{"action"}, map[string]any{
		"action": map[string]any{"const": action},
	})
}

func reviewSubmittedSchema() map[string]any {
	prRequired, prProps := pullRequestCore()
	return object([]string{"action", "review", "pull_request"}, map[string]any{
		"action":     map[string]any{"const": ActionSubmitted},
		"repository": repositorySchema(),
		"review": object([]string{"state", "html_url", "user"}, map[string]any{
			"id": map[string]any{"type": "integer"},
			"state": map[string]any{
				"enum": []any{string(ReviewApproved), string(ReviewChangesRequested), string(ReviewCommented)},
			},
			"body":         nullable("string"),
			"html_url":     str(),
			"user":         userSchema(),
			"submitted_at": nullableDateTime(),
		}),
		"pull_request": object(prRequired, prProps),
	})
}
