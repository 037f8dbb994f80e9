package models

import "strings"

// PresenceIDPrefix is the key prefix of instance_presence records.
const PresenceIDPrefix = TypeInstancePresence + ":"

// Значения по умолчанию для пользовательских настроек
const (
	DefaultUserName  = "New User"
	DefaultUserColor = "#FF802B"
)

// PresenceID derives the presence record id of a connection.
func PresenceID(clientID string) string {
	return PresenceIDPrefix + clientID
}

// IsPresenceID reports whether id names a presence record.
func IsPresenceID(id string) bool {
	return strings.HasPrefix(id, PresenceIDPrefix)
}

// UserPreferences is the user state presence is derived from.
type UserPreferences struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// WithDefaults fills empty name and color.
func (p UserPreferences) WithDefaults() UserPreferences {
	if p.Name == "" {
		p.Name = DefaultUserName
	}
	if p.Color == "" {
		p.Color = DefaultUserColor
	}
	return p
}

// NewPresence builds the presence record of a connection from user preferences.
func NewPresence(presenceID string, prefs UserPreferences) Record {
	prefs = prefs.WithDefaults()
	return Record{
		FieldID:       presenceID,
		FieldTypeName: TypeInstancePresence,
		"userId":      prefs.ID,
		"userName":    prefs.Name,
		"color":       prefs.Color,
	}
}
