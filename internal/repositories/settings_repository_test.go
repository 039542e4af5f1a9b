package repositories

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teamprs/prtracker/internal/models"
)

func newMockRepo(t *testing.T) (*SettingsRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewSettingsRepository(db), mock
}

func TestGetTeamMembers(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT login FROM team_members ORDER BY created_at, login").
		WillReturnRows(sqlmock.NewRows([]string{"login"}).AddRow("alice").AddRow("bob"))

	members, err := repo.GetTeamMembers()

	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, members)
}

func TestAddTeamMember(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT OR IGNORE INTO team_members (login) VALUES (?)").
		WithArgs("alice").
		WillReturnResult(sqlmock.NewResult(1, 1))

	assert.NoError(t, repo.AddTeamMember("alice"))
}

func TestRemoveTeamMember(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM team_members WHERE login = ?").
		WithArgs("alice").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.RemoveTeamMember("alice"))
}

func TestSetRepoSelected(t *testing.T) {
	t.Run("Select inserts", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec("INSERT OR IGNORE INTO selected_repositories (name) VALUES (?)").
			WithArgs("svc-a").
			WillReturnResult(sqlmock.NewResult(1, 1))

		assert.NoError(t, repo.SetRepoSelected("svc-a", true))
	})

	t.Run("Deselect deletes", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec("DELETE FROM selected_repositories WHERE name = ?").
			WithArgs("svc-a").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.SetRepoSelected("svc-a", false))
	})
}

func TestSeedDefaults(t *testing.T) {
	t.Run("Empty settings are seeded", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery("SELECT login FROM team_members ORDER BY created_at, login").
			WillReturnRows(sqlmock.NewRows([]string{"login"}))
		mock.ExpectExec("INSERT OR IGNORE INTO team_members (login) VALUES (?)").
			WithArgs("alice").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery("SELECT name FROM selected_repositories ORDER BY created_at, name").
			WillReturnRows(sqlmock.NewRows([]string{"name"}))
		mock.ExpectExec("INSERT OR IGNORE INTO selected_repositories (name) VALUES (?)").
			WithArgs("svc-a").
			WillReturnResult(sqlmock.NewResult(1, 1))

		assert.NoError(t, repo.SeedDefaults([]string{"alice"}, []string{"svc-a"}))
	})

	t.Run("Existing settings are untouched", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery("SELECT login FROM team_members ORDER BY created_at, login").
			WillReturnRows(sqlmock.NewRows([]string{"login"}).AddRow("carol"))
		mock.ExpectQuery("SELECT name FROM selected_repositories ORDER BY created_at, name").
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("svc-z"))

		assert.NoError(t, repo.SeedDefaults([]string{"alice"}, []string{"svc-a"}))
	})
}

func TestGetSlackLinks(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT repository, pr_number, url FROM slack_links").
		WillReturnRows(sqlmock.NewRows([]string{"repository", "pr_number", "url"}).
			AddRow("svc-a", 7, "https://acme.slack.com/archives/C1/p123"))

	links, err := repo.GetSlackLinks()

	require.NoError(t, err)
	assert.Equal(t, map[models.PRKey]string{
		{Repository: "svc-a", Number: 7}: "https://acme.slack.com/archives/C1/p123",
	}, links)
}

func TestSetSlackLink(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO slack_links (repository, pr_number, url, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP) ON CONFLICT(repository, pr_number) DO UPDATE SET url = excluded.url, updated_at = CURRENT_TIMESTAMP").
		WithArgs("svc-a", 7, "https://acme.slack.com/archives/C1/p123").
		WillReturnResult(sqlmock.NewResult(1, 1))

	key := models.PRKey{Repository: "svc-a", Number: 7}
	assert.NoError(t, repo.SetSlackLink(key, "https://acme.slack.com/archives/C1/p123"))
}

func TestDeleteSlackLink(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM slack_links WHERE repository = ? AND pr_number = ?").
		WithArgs("svc-a", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.DeleteSlackLink(models.PRKey{Repository: "svc-a", Number: 7}))
}

func TestQueryErrorsAreWrapped(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT login FROM team_members ORDER BY created_at, login").
		WillReturnError(errors.New("database is locked"))

	_, err := repo.GetTeamMembers()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query team members")
}
