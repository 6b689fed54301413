package messagequeue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects only need to be valid
// JSON.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	if subject != SubjectRelayOutcome && !strings.HasPrefix(subject, SubjectRelayOutcome+".") {
		return nil
	}

	var p RelayOutcomePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, err)
	}
	if p.Stage == "" {
		return fmt.Errorf("schema validation failed for %s: %w", subject, errors.New("stage is required"))
	}
	return nil
}
