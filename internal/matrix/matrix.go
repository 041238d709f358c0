package matrix

import (
	"context"
	"sort"

	"github.com/EO-DataHub/eodhp-groupmatrix/internal/directive"
	"github.com/EO-DataHub/eodhp-groupmatrix/models"
	"github.com/rs/zerolog"
)

// Mark is placed in a group column when the row's user belongs to that group.
const Mark = "x"

// Directory looks up the members of a group, keyed by username.
type Directory interface {
	UsersInGroup(ctx context.Context, group string) (map[string]models.UserRecord, error)
}

// Row holds one user's attribute values and group flags. Both maps contain
// exactly one entry per configured attribute and group.
type Row struct {
	Username   string            `json:"username"`
	Attributes map[string]string `json:"attributes"`
	Groups     map[string]string `json:"groups"`
}

// Matrix is the table shown for one directive. The zero Matrix has neither
// headers nor rows.
type Matrix struct {
	Headers    []string `json:"headers"`
	Attributes []string `json:"attributes"`
	Groups     []string `json:"groups"`
	Rows       []Row    `json:"rows"`
}

// Build fetches every configured group in order and merges its members into
// one row per username. A failed lookup counts as a group without members.
func Build(ctx context.Context, dir Directory, cfg directive.Config) Matrix {
	logger := zerolog.Ctx(ctx)

	rows := make(map[string]Row)
	for _, group := range cfg.Groups {
		users, err := dir.UsersInGroup(ctx, group)
		if err != nil {
			logger.Warn().Err(err).Str("group", group).Msg("directory lookup failed")
			continue
		}

		logger.Debug().Str("group", group).Int("members", len(users)).Msg("fetched group members")

		for username, record := range users {
			rows = Upsert(rows, group, username, record, cfg.Attributes, cfg.Groups)
		}
	}

	return Matrix{
		Headers:    cfg.Headers,
		Attributes: cfg.Attributes,
		Groups:     cfg.Groups,
		Rows:       Rows(rows),
	}
}

// Upsert adds the membership of username in group to rows and returns the
// updated mapping. The row is created on first sight with every column empty
// and the record's attribute values filled in.
func Upsert(rows map[string]Row, group, username string, record models.UserRecord, attributes, groups []string) map[string]Row {
	if rows == nil {
		rows = make(map[string]Row)
	}

	row, ok := rows[username]
	if !ok {
		row = newRow(username, record, attributes, groups)
	}
	row.Groups[group] = Mark
	rows[username] = row

	return rows
}

// Rows returns the rows sorted by username.
func Rows(rows map[string]Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Username < out[j].Username
	})
	return out
}

func newRow(username string, record models.UserRecord, attributes, groups []string) Row {
	row := Row{
		Username:   username,
		Attributes: make(map[string]string, len(attributes)),
		Groups:     make(map[string]string, len(groups)),
	}

	for _, attribute := range attributes {
		if attribute == directive.UserAttribute {
			row.Attributes[attribute] = username
			continue
		}
		row.Attributes[attribute] = record.Attribute(attribute)
	}
	for _, group := range groups {
		row.Groups[group] = ""
	}

	return row
}
