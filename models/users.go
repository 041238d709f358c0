package models

// UserRecord is a directory user as seen by the matrix builder.
type UserRecord struct {
	Username   string            `json:"username" yaml:"-"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Groups     []string          `json:"grps,omitempty" yaml:"grps,omitempty"`
}

// Attribute returns the named attribute or an empty string.
func (u UserRecord) Attribute(name string) string {
	if u.Attributes == nil {
		return ""
	}
	return u.Attributes[name]
}

// InGroup reports whether the record lists the given group.
func (u UserRecord) InGroup(group string) bool {
	for _, g := range u.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// User represents a user in Keycloak.
type User struct {
	ID         string              `json:"id"`
	Username   string              `json:"username"`
	FirstName  string              `json:"firstName"`
	LastName   string              `json:"lastName"`
	Email      string              `json:"email"`
	Enabled    bool                `json:"enabled"`
	Attributes map[string][]string `json:"attributes,omitempty"`
}

// Group represents a group in Keycloak.
type Group struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Path      string  `json:"path"`
	SubGroups []Group `json:"subGroups,omitempty"`
}
