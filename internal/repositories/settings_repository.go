package repositories

import (
	"database/sql"
	"fmt"

	"github.com/teamprs/prtracker/internal/models"
)

// SettingsRepository persists the per-client dashboard settings: team
// members, selected repositories and custom Slack link overrides.
type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetTeamMembers returns the configured team member logins.
func (r *SettingsRepository) GetTeamMembers() ([]string, error) {
	rows, err := r.db.Query("SELECT login FROM team_members ORDER BY created_at, login")
	if err != nil {
		return nil, fmt.Errorf("failed to query team members: %w", err)
	}
	defer rows.Close()

	return scanStrings(rows)
}

// AddTeamMember adds a login to the team; duplicates are ignored.
func (r *SettingsRepository) AddTeamMember(login string) error {
	_, err := r.db.Exec("INSERT OR IGNORE INTO team_members (login) VALUES (?)", login)
	if err != nil {
		return fmt.Errorf("failed to add team member: %w", err)
	}
	return nil
}

// RemoveTeamMember removes a login from the team.
func (r *SettingsRepository) RemoveTeamMember(login string) error {
	_, err := r.db.Exec("DELETE FROM team_members WHERE login = ?", login)
	if err != nil {
		return fmt.Errorf("failed to remove team member: %w", err)
	}
	return nil
}

// GetSelectedRepos returns the selected repository names.
func (r *SettingsRepository) GetSelectedRepos() ([]string, error) {
	rows, err := r.db.Query("SELECT name FROM selected_repositories ORDER BY created_at, name")
	if err != nil {
		return nil, fmt.Errorf("failed to query selected repositories: %w", err)
	}
	defer rows.Close()

	return scanStrings(rows)
}

// SetRepoSelected adds or removes a repository from the selection.
func (r *SettingsRepository) SetRepoSelected(name string, selected bool) error {
	var err error
	if selected {
		_, err = r.db.Exec("INSERT OR IGNORE INTO selected_repositories (name) VALUES (?)", name)
	} else {
		_, err = r.db.Exec("DELETE FROM selected_repositories WHERE name = ?", name)
	}
	if err != nil {
		return fmt.Errorf("failed to update repository selection: %w", err)
	}
	return nil
}

// SeedDefaults populates empty team and repository selections with the
// configured defaults. Existing settings are left untouched.
func (r *SettingsRepository) SeedDefaults(team, repos []string) error {
	members, err := r.GetTeamMembers()
	if err != nil {
		return err
	}
	if len(members) == 0 {
		for _, login := range team {
			if err := r.AddTeamMember(login); err != nil {
				return err
			}
		}
	}

	selected, err := r.GetSelectedRepos()
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		for _, name := range repos {
			if err := r.SetRepoSelected(name, true); err != nil {
				return err
			}
		}
	}

	return nil
}

// GetSlackLinks returns the custom Slack link overrides keyed by pull
// request.
func (r *SettingsRepository) GetSlackLinks() (map[models.PRKey]string, error) {
	rows, err := r.db.Query("SELECT repository, pr_number, url FROM slack_links")
	if err != nil {
		return nil, fmt.Errorf("failed to query slack links: %w", err)
	}
	defer rows.Close()

	links := make(map[models.PRKey]string)
	for rows.Next() {
		var key models.PRKey
		var url string
		if err := rows.Scan(&key.Repository, &key.Number, &url); err != nil {
			return nil, fmt.Errorf("failed to scan slack link: %w", err)
		}
		links[key] = url
	}
	return links, rows.Err()
}

// SetSlackLink upserts the override for a pull request.
func (r *SettingsRepository) SetSlackLink(key models.PRKey, url string) error {
	_, err := r.db.Exec(
		"INSERT INTO slack_links (repository, pr_number, url, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP) "+
			"ON CONFLICT(repository, pr_number) DO UPDATE SET url = excluded.url, updated_at = CURRENT_TIMESTAMP",
		key.Repository, key.Number, url,
	)
	if err != nil {
		return fmt.Errorf("failed to save slack link: %w", err)
	}
	return nil
}

// DeleteSlackLink removes the override for a pull request.
func (r *SettingsRepository) DeleteSlackLink(key models.PRKey) error {
	_, err := r.db.Exec("DELETE FROM slack_links WHERE repository = ? AND pr_number = ?", key.Repository, key.Number)
	if err != nil {
		return fmt.Errorf("failed to delete slack link: %w", err)
	}
	return nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	values := []string{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		values = append(values, value)
	}
	return values, rows.Err()
}
