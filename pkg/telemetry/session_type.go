package telemetry

import (
	"strings"

	"github.com/pkg/errors"
)

type SessionType string

const (
	SessionTypePractice1        SessionType = "FP1"
	SessionTypePractice2        SessionType = "FP2"
	SessionTypePractice3        SessionType = "FP3"
	SessionTypeQualifying       SessionType = "Q"
	SessionTypeSprintQualifying SessionType = "SQ"
	SessionTypeSprint           SessionType = "S"
	SessionTypeRace             SessionType = "R"
)

var ErrUnknownSessionType = errors.New("telemetry: unknown session type")

var sessionTypeNames = map[SessionType][]string{
	SessionTypePractice1:        {"Practice 1", "FP1"},
	SessionTypePractice2:        {"Practice 2", "FP2"},
	SessionTypePractice3:        {"Practice 3", "FP3"},
	SessionTypeQualifying:       {"Qualifying", "Q"},
	SessionTypeSprintQualifying: {"Sprint Qualifying", "Sprint Shootout", "SQ", "SS"},
	SessionTypeSprint:           {"Sprint", "S"},
	SessionTypeRace:             {"Race", "R"},
}

// ParseSessionType accepts either a session code (FP1, Q, R...) or a session name
// ("Practice 1", "Qualifying"...), case insensitively.
func ParseSessionType(s string) (SessionType, error) {
	s = strings.TrimSpace(s)

	for sessionType, names := range sessionTypeNames {
		for _, name := range names {
			if strings.EqualFold(name, s) {
				return sessionType, nil
			}
		}
	}

	return "", errors.Wrapf(ErrUnknownSessionType, "%q", s)
}

// Name is the display name of the session, e.g. "Practice 1".
func (t SessionType) Name() string {
	if names, ok := sessionTypeNames[t]; ok {
		return names[0]
	}

	return string(t)
}

// Matches reports whether a provider's session name refers to this session type.
func (t SessionType) Matches(name string) bool {
	for _, candidate := range sessionTypeNames[t] {
		if strings.EqualFold(candidate, strings.TrimSpace(name)) {
			return true
		}
	}

	return false
}
