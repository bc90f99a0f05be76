package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tartampluch/birthday-manager/internal/config"
)

const personColumns = `id, first_name, last_name, birthday, email, phone, notes, created_at, updated_at`

// CreatePerson inserts p, assigning a new ID and timestamps.
// Unknown group names are created on the fly.
func (db *DB) CreatePerson(ctx context.Context, p *Person) error {
	if strings.TrimSpace(p.FirstName) == "" && strings.TrimSpace(p.LastName) == "" {
		return fmt.Errorf("%w: %s", ErrInvalid, config.ErrNameRequired)
	}

	return db.WithTx(ctx, func(tx *sql.Tx) error {
		return db.insertPerson(ctx, tx, p)
	})
}

// CreatePeople inserts all people in one transaction and returns how many were stored.
func (db *DB) CreatePeople(ctx context.Context, people []Person) (int, error) {
	count := 0
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		for i := range people {
			if strings.TrimSpace(people[i].FirstName) == "" && strings.TrimSpace(people[i].LastName) == "" {
				continue
			}
			if err := db.insertPerson(ctx, tx, &people[i]); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (db *DB) insertPerson(ctx context.Context, tx *sql.Tx, p *Person) error {
	p.ID = uuid.NewString()
	now := db.timestamp()

	_, err := tx.ExecContext(ctx, `
		INSERT INTO people (`+personColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.FirstName, p.LastName, p.Birthday, p.Email, p.Phone, p.Notes, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert person: %w", translateErr(err))
	}

	p.CreatedAt = parseTimestamp(now)
	p.UpdatedAt = p.CreatedAt
	return setMemberships(ctx, tx, p.ID, p.Groups)
}

// GetPerson returns the person with id, or ErrNotFound.
func (db *DB) GetPerson(ctx context.Context, id string) (*Person, error) {
	row := db.QueryRowContext(ctx, `SELECT `+personColumns+` FROM people WHERE id = ?`, id)
	p, err := scanPerson(row)
	if err != nil {
		return nil, fmt.Errorf("get person: %w", translateErr(err))
	}

	groups, err := db.groupsOf(ctx, []string{p.ID})
	if err != nil {
		return nil, err
	}
	p.Groups = groups[p.ID]
	return &p, nil
}

// UpdatePerson overwrites every field of the stored person, including memberships.
func (db *DB) UpdatePerson(ctx context.Context, p *Person) error {
	if strings.TrimSpace(p.FirstName) == "" && strings.TrimSpace(p.LastName) == "" {
		return fmt.Errorf("%w: %s", ErrInvalid, config.ErrNameRequired)
	}

	return db.WithTx(ctx, func(tx *sql.Tx) error {
		now := db.timestamp()
		res, err := tx.ExecContext(ctx, `
			UPDATE people
			SET first_name = ?, last_name = ?, birthday = ?, email = ?, phone = ?, notes = ?, updated_at = ?
			WHERE id = ?`,
			p.FirstName, p.LastName, p.Birthday, p.Email, p.Phone, p.Notes, now, p.ID,
		)
		if err != nil {
			return fmt.Errorf("update person: %w", translateErr(err))
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM person_groups WHERE person_id = ?`, p.ID); err != nil {
			return fmt.Errorf("clear memberships: %w", err)
		}
		p.UpdatedAt = parseTimestamp(now)
		return setMemberships(ctx, tx, p.ID, p.Groups)
	})
}

// DeletePerson removes the person and its memberships.
func (db *DB) DeletePerson(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM people WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPeople returns everyone in insertion order.
func (db *DB) ListPeople(ctx context.Context) ([]Person, error) {
	return db.queryPeople(ctx, `SELECT `+personColumns+` FROM people ORDER BY rowid`)
}

// ListPeopleByGroup returns the members of group in insertion order.
func (db *DB) ListPeopleByGroup(ctx context.Context, group string) ([]Person, error) {
	return db.queryPeople(ctx, `
		SELECT p.id, p.first_name, p.last_name, p.birthday, p.email, p.phone, p.notes, p.created_at, p.updated_at
		FROM people p
		JOIN person_groups pg ON pg.person_id = p.id
		JOIN groups g ON g.id = pg.group_id
		WHERE g.name = ?
		ORDER BY p.rowid`, group)
}

func (db *DB) queryPeople(ctx context.Context, query string, args ...any) ([]Person, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrDBQuery, err)
	}
	defer func() { _ = rows.Close() }()

	var people []Person
	var ids []string
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person row: %w", err)
		}
		people = append(people, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate people: %w", err)
	}

	groups, err := db.groupsOf(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range people {
		people[i].Groups = groups[people[i].ID]
	}
	return people, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(r rowScanner) (Person, error) {
	var p Person
	var createdAt, updatedAt string
	err := r.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Birthday, &p.Email, &p.Phone, &p.Notes, &createdAt, &updatedAt)
	if err != nil {
		return Person{}, err
	}
	p.CreatedAt = parseTimestamp(createdAt)
	p.UpdatedAt = parseTimestamp(updatedAt)
	return p, nil
}

// groupsOf loads group names for the given person ids, sorted by name.
func (db *DB) groupsOf(ctx context.Context, ids []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.QueryContext(ctx, `
		SELECT pg.person_id, g.name
		FROM person_groups pg
		JOIN groups g ON g.id = pg.group_id
		WHERE pg.person_id IN (`+placeholders+`)
		ORDER BY g.name`, args...)
	if err != nil {
		return nil, fmt.Errorf("query memberships: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var personID, name string
		if err := rows.Scan(&personID, &name); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		out[personID] = append(out[personID], name)
	}
	return out, rows.Err()
}

func setMemberships(ctx context.Context, tx *sql.Tx, personID string, groups []string) error {
	for _, name := range groups {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO groups (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("ensure group %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO person_groups (person_id, group_id)
			SELECT ?, id FROM groups WHERE name = ?`, personID, name); err != nil {
			return fmt.Errorf("add membership %q: %w", name, err)
		}
	}
	return nil
}
