package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/EO-DataHub/eodhp-groupmatrix/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Attributes stored in columns of the users table rather than user_attributes.
const (
	attributeName = "name"
	attributeMail = "mail"
)

// UsersInGroup returns the members of group keyed by username, each with
// their attributes and the full list of groups they belong to.
func (d *DirectoryDB) UsersInGroup(ctx context.Context, group string) (map[string]models.UserRecord, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT u.id, u.username, u.name, u.mail,
			ARRAY(
				SELECT g2.name FROM group_members m2
				JOIN groups g2 ON g2.id = m2.group_id
				WHERE m2.user_id = u.id
				ORDER BY g2.name
			)
		FROM users u
		JOIN group_members gm ON gm.user_id = u.id
		JOIN groups g ON g.id = gm.group_id
		WHERE g.name = $1`, group)
	if err != nil {
		return nil, fmt.Errorf("error querying group members: %w", err)
	}
	defer rows.Close()

	users := make(map[string]models.UserRecord)
	byID := make(map[uuid.UUID]string)
	for rows.Next() {
		var (
			id         uuid.UUID
			username   string
			name, mail string
			groups     []string
		)
		if err := rows.Scan(&id, &username, &name, &mail, pq.Array(&groups)); err != nil {
			return nil, fmt.Errorf("error scanning group member: %w", err)
		}

		attributes := make(map[string]string)
		if name != "" {
			attributes[attributeName] = name
		}
		if mail != "" {
			attributes[attributeMail] = mail
		}

		users[username] = models.UserRecord{
			Username:   username,
			Attributes: attributes,
			Groups:     groups,
		}
		byID[id] = username
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading group members: %w", err)
	}

	if len(byID) == 0 {
		return users, nil
	}

	if err := d.loadAttributes(ctx, users, byID); err != nil {
		return nil, err
	}
	return users, nil
}

func (d *DirectoryDB) loadAttributes(ctx context.Context, users map[string]models.UserRecord, byID map[uuid.UUID]string) error {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id.String())
	}

	rows, err := d.DB.QueryContext(ctx, `
		SELECT user_id, attribute, value FROM user_attributes
		WHERE user_id = ANY($1::uuid[])`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("error querying user attributes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id               uuid.UUID
			attribute, value string
		)
		if err := rows.Scan(&id, &attribute, &value); err != nil {
			return fmt.Errorf("error scanning user attribute: %w", err)
		}

		user := users[byID[id]]
		// name and mail columns win over attributes of the same name
		if _, ok := user.Attributes[attribute]; !ok {
			user.Attributes[attribute] = value
		}
	}
	return rows.Err()
}

// ImportUsers creates or updates the given users, their attributes and group
// memberships in a single transaction. Existing attributes and memberships of
// an imported user are replaced.
func (d *DirectoryDB) ImportUsers(ctx context.Context, records []models.UserRecord) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		d.Log.Error().Err(err).Msg("error starting transaction")
		return fmt.Errorf("error starting transaction: %w", err)
	}

	groupIDs := make(map[string]uuid.UUID)
	for _, record := range records {
		if err := importUser(ctx, tx, record, groupIDs); err != nil {
			d.Log.Error().Err(err).Str("user", record.Username).Msg("error importing user")
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	d.Log.Info().Int("users", len(records)).Int("groups", len(groupIDs)).Msg("Users imported successfully")
	return nil
}

func importUser(ctx context.Context, tx *sql.Tx, record models.UserRecord, groupIDs map[string]uuid.UUID) error {
	var userID uuid.UUID
	err := tx.QueryRowContext(ctx, `
		INSERT INTO users (id, username, name, mail) VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO UPDATE SET name = EXCLUDED.name, mail = EXCLUDED.mail
		RETURNING id`,
		uuid.New(), record.Username, record.Attribute(attributeName), record.Attribute(attributeMail)).Scan(&userID)
	if err != nil {
		return fmt.Errorf("error upserting user %s: %w", record.Username, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_attributes WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("error clearing attributes of %s: %w", record.Username, err)
	}
	for attribute, value := range record.Attributes {
		if attribute == attributeName || attribute == attributeMail {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_attributes (user_id, attribute, value) VALUES ($1, $2, $3)`,
			userID, attribute, value); err != nil {
			return fmt.Errorf("error inserting attribute %s of %s: %w", attribute, record.Username, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM group_members WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("error clearing groups of %s: %w", record.Username, err)
	}
	for _, group := range record.Groups {
		groupID, ok := groupIDs[group]
		if !ok {
			err := tx.QueryRowContext(ctx, `
				INSERT INTO groups (id, name) VALUES ($1, $2)
				ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
				RETURNING id`, uuid.New(), group).Scan(&groupID)
			if err != nil {
				return fmt.Errorf("error upserting group %s: %w", group, err)
			}
			groupIDs[group] = groupID
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO group_members (user_id, group_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, userID, groupID); err != nil {
			return fmt.Errorf("error adding %s to group %s: %w", record.Username, group, err)
		}
	}

	return nil
}
