package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tartampluch/birthday-manager/internal/config"
)

// SeedGroups creates the given groups when missing.
func (db *DB) SeedGroups(ctx context.Context, names []string) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, name := range names {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO groups (name) VALUES (?)`, name); err != nil {
				return fmt.Errorf("seed group %q: %w", name, err)
			}
		}
		return nil
	})
}

// CreateGroup adds a group. A taken name yields ErrDuplicate.
func (db *DB) CreateGroup(ctx context.Context, name string) (*Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, config.ErrGroupRequired)
	}

	res, err := db.ExecContext(ctx, `INSERT INTO groups (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("create group: %w", translateErr(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return &Group{ID: id, Name: name}, nil
}

// ListGroups returns every group by name with its member count.
func (db *DB) ListGroups(ctx context.Context) ([]Group, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT g.id, g.name, COUNT(pg.person_id)
		FROM groups g
		LEFT JOIN person_groups pg ON pg.group_id = g.id
		GROUP BY g.id, g.name
		ORDER BY g.name`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrDBQuery, err)
	}
	defer func() { _ = rows.Close() }()

	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name, &g.MemberCount); err != nil {
			return nil, fmt.Errorf("scan group row: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// DeleteGroup removes the group, its memberships and its channel settings.
// People stay.
func (db *DB) DeleteGroup(ctx context.Context, id int64) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		var name string
		if err := tx.QueryRowContext(ctx, `SELECT name FROM groups WHERE id = ?`, id).Scan(&name); err != nil {
			return fmt.Errorf("delete group: %w", translateErr(err))
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete group: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM group_channels WHERE group_name = ?`, name); err != nil {
			return fmt.Errorf("delete group channels: %w", err)
		}
		return nil
	})
}
