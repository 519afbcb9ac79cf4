package content

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	pkgerrors "portfolio/pkg/errors"
)

const (
	minSkillLevel = 1
	maxSkillLevel = 5
)

// requiredFields lists the presence checks applied per collection kind.
var requiredFields = map[Kind][]string{
	KindProject: {"name", "description"},
}

// ItemFields interprets caller data for a collection kind. The data must be
// a JSON object; any "id" it carries is discarded.
func ItemFields(k Kind, data json.RawMessage) (Fields, error) {
	fields, err := ParseFields(data)
	if err != nil {
		return nil, pkgerrors.NewValidationErrorf("data for %s must be a JSON object", k)
	}

	for _, key := range requiredFields[k] {
		if s, ok := fields.String(key); !ok || strings.TrimSpace(s) == "" {
			return nil, pkgerrors.NewValidationErrorf("%s %s is required", k, key)
		}
	}

	if k == KindSkill {
		if raw, ok := fields.Get("level"); ok {
			if err := checkSkillLevel(raw); err != nil {
				return nil, err
			}
		}
	}

	return fields.Without("id"), nil
}

// ContactFields interprets caller data for the contact singleton.
func ContactFields(data json.RawMessage) (Fields, error) {
	fields, err := ParseFields(data)
	if err != nil {
		return nil, pkgerrors.NewValidationError("data for contact must be a JSON object")
	}
	return fields, nil
}

// AboutText interprets caller data for the about singleton: either a bare
// JSON string or an object whose "text" field is a string.
func AboutText(data json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s, nil
		}
	}

	fields, err := ParseFields(trimmed)
	if err == nil {
		if s, ok := fields.String("text"); ok {
			return s, nil
		}
	}
	return "", pkgerrors.NewValidationError(`data for about must be a string or an object with a "text" string`)
}

// checkSkillLevel accepts integers 1..5 sent as numbers or, as HTML forms
// submit them, numeric strings.
func checkSkillLevel(raw json.RawMessage) error {
	text := strings.TrimSpace(string(raw))
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		text = strings.TrimSpace(s)
	}

	level, err := strconv.Atoi(text)
	if err != nil || level < minSkillLevel || level > maxSkillLevel {
		return pkgerrors.NewValidationErrorf("skill level must be an integer between %d and %d", minSkillLevel, maxSkillLevel)
	}
	return nil
}
