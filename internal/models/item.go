package models

import (
	"strconv"
	"strings"

	appErrors "github.com/campus-insights/engagement-api/pkg/errors"
)

// ItemKind classifies the unit a report row describes.
type ItemKind string

const (
	ItemActivity      ItemKind = "activity"
	ItemActivityClass ItemKind = "activity_class"
	ItemSection       ItemKind = "section"
)

// ItemRef is a tagged reference to a reportable item. Exactly one of the
// value fields is meaningful, selected by Kind. References are classified
// once at the API boundary; downstream code dispatches on Kind only and
// never re-inspects the raw string.
type ItemRef struct {
	Kind       ItemKind `json:"kind"`
	ActivityID int64    `json:"activityId,omitempty"`
	Component  string   `json:"component,omitempty"`
	Section    int      `json:"section,omitempty"`
}

// ClassifyItem turns a raw item identifier into an ItemRef. An all-digit
// identifier names an activity, a marker-prefixed number names a course
// section, anything else names an activity class (component).
func ClassifyItem(raw, sectionMarker string) (ItemRef, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ItemRef{}, appErrors.Clone(appErrors.ErrValidation, "item identifier must not be empty")
	}

	if id, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return ItemRef{Kind: ItemActivity, ActivityID: id}, nil
	}

	if sectionMarker != "" && strings.HasPrefix(trimmed, sectionMarker) {
		if num, err := strconv.Atoi(trimmed[len(sectionMarker):]); err == nil {
			return ItemRef{Kind: ItemSection, Section: num}, nil
		}
	}

	return ItemRef{Kind: ItemActivityClass, Component: trimmed}, nil
}

// UserRef identifies either a single user or a whole group.
type UserRef struct {
	Group bool  `json:"group"`
	ID    int64 `json:"id"`
}

// GroupMarker prefixes a raw student identifier that refers to a group.
const GroupMarker = "g"

// ParseUserRef decodes a raw student identifier ("g<id>" for a group,
// a bare id for a user).
func ParseUserRef(raw string) (UserRef, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, GroupMarker) {
		id, err := strconv.ParseInt(trimmed[len(GroupMarker):], 10, 64)
		if err != nil {
			return UserRef{}, appErrors.Clone(appErrors.ErrValidation, "invalid group identifier: "+raw)
		}
		return UserRef{Group: true, ID: id}, nil
	}

	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return UserRef{}, appErrors.Clone(appErrors.ErrValidation, "invalid user identifier: "+raw)
	}
	return UserRef{ID: id}, nil
}
