package handlers

import (
	"strings"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/errs"
)

func parseEntityType(s string) (entities.EntityType, error) {
	t, err := entities.ParseEntityType(s)
	if err != nil {
		return "", errs.Validation("%v", err)
	}
	return t, nil
}

// ParseEntityKey parses a "type/id" argument into a key. An id of 0 names
// a new entity.
func ParseEntityKey(s string) (entities.EntityKey, error) {
	key, err := entities.ParseEntityKey(s)
	if err != nil {
		return entities.EntityKey{}, errs.Validation("%v", err)
	}
	return key, nil
}

// ParseAssignments turns "field=value" arguments into a field patch for an
// entity of type t. Values are converted to the field's type.
func ParseAssignments(t entities.EntityType, assignments []string) (entities.FieldValues, error) {
	if len(assignments) == 0 {
		return nil, errs.Validation("at least one field=value assignment is required")
	}

	patch := make(entities.FieldValues, len(assignments))
	for _, a := range assignments {
		name, raw, ok := strings.Cut(a, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errs.Validation("invalid assignment %q: expected field=value", a)
		}
		if _, dup := patch[name]; dup {
			return nil, errs.Validation("field %q assigned more than once", name)
		}
		v, err := entities.ParseFieldString(t, name, raw)
		if err != nil {
			return nil, errs.Validation("%v", err)
		}
		patch[name] = v
	}
	return patch, nil
}

// ParseAction maps a command or route name to a review action. Both
// "request-changes" and "request_changes" are accepted.
func ParseAction(s string) (entities.MergeRequestAction, error) {
	a := entities.MergeRequestAction(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	switch a {
	case entities.ActionSubmit, entities.ActionApprove, entities.ActionReject,
		entities.ActionRequestChanges, entities.ActionReopen, entities.ActionClose,
		entities.ActionRebase, entities.ActionComment, entities.ActionMerge:
		return a, nil
	}
	return "", errs.Validation("unknown merge request action %q", s)
}
