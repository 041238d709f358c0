package directory

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/EO-DataHub/eodhp-groupmatrix/models"
	"gopkg.in/yaml.v2"
)

// Static is a directory read from a YAML file of the form
//
//	users:
//	  alice:
//	    name: Alice Liddell
//	    mail: alice@example.com
//	    grps: [editors, admins]
//	    attributes:
//	      phone: "123"
type Static struct {
	users map[string]models.UserRecord
}

type staticFile struct {
	Users map[string]staticUser `yaml:"users"`
}

type staticUser struct {
	Name       string            `yaml:"name"`
	Mail       string            `yaml:"mail"`
	Groups     []string          `yaml:"grps"`
	Attributes map[string]string `yaml:"attributes"`
}

// LoadStatic reads a static directory from path.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}
	return ParseStatic(data)
}

// ParseStatic reads a static directory from YAML.
func ParseStatic(data []byte) (*Static, error) {
	var file staticFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal directory YAML: %w", err)
	}

	users := make(map[string]models.UserRecord, len(file.Users))
	for username, u := range file.Users {
		attributes := make(map[string]string, len(u.Attributes)+2)
		for key, value := range u.Attributes {
			attributes[key] = value
		}
		if u.Name != "" {
			attributes["name"] = u.Name
		}
		if u.Mail != "" {
			attributes["mail"] = u.Mail
		}

		users[username] = models.UserRecord{
			Username:   username,
			Attributes: attributes,
			Groups:     u.Groups,
		}
	}

	return &Static{users: users}, nil
}

// UsersInGroup returns the users listing group among their groups.
func (s *Static) UsersInGroup(_ context.Context, group string) (map[string]models.UserRecord, error) {
	users := make(map[string]models.UserRecord)
	for username, user := range s.users {
		if user.InGroup(group) {
			users[username] = user
		}
	}
	return users, nil
}

// Records returns every user sorted by username.
func (s *Static) Records() []models.UserRecord {
	records := make([]models.UserRecord, 0, len(s.users))
	for _, user := range s.users {
		records = append(records, user)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Username < records[j].Username
	})
	return records
}
