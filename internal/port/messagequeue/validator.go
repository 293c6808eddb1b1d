package messagequeue

import (
	"encoding/json"
	"fmt"
)

// Validate checks that data is valid JSON and, for known subjects, that the
// payload decodes against its schema and carries the fields consumers cannot
// work without. The queue adapter dead-letters messages that fail here rather
// than redelivering them, since a malformed payload never improves with
// retries. Unknown subjects only need to be valid JSON.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	switch subject {
	case SubjectDecisionQueued:
		var p DecisionQueuedPayload
		if err := decode(subject, data, &p); err != nil {
			return err
		}
		return requireFields(subject,
			field{"decision_id", p.DecisionID},
			field{"review_level", p.ReviewLevel},
		)
	case SubjectDecisionResolved:
		var p DecisionResolvedPayload
		if err := decode(subject, data, &p); err != nil {
			return err
		}
		return requireFields(subject,
			field{"decision_id", p.DecisionID},
			field{"status", p.Status},
		)
	case SubjectDecisionEscalated:
		var p DecisionEscalatedPayload
		if err := decode(subject, data, &p); err != nil {
			return err
		}
		return requireFields(subject,
			field{"decision_id", p.DecisionID},
			field{"review_level", p.ReviewLevel},
		)
	}
	return nil
}

func decode(subject string, data []byte, target any) error {
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, err)
	}
	return nil
}

type field struct {
	name  string
	value string
}

func requireFields(subject string, fields ...field) error {
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("subject %s: missing required field %s", subject, f.name)
		}
	}
	return nil
}
