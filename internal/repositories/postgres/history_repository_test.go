package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regwatch/internal/model"
	"regwatch/internal/repositories"
)

var _ repositories.HistoryRepository = (*HistoryRepository)(nil)

func newMock(t *testing.T) (*HistoryRepository, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewHistoryRepository(conn), mock
}

func TestEnsureExists_AppliesSchema(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS history")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureExists(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadKnownURLs(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT link FROM history")).
		WillReturnRows(sqlmock.NewRows([]string{"link"}).AddRow("https://a/1").AddRow("https://a/2"))

	known, err := repo.LoadKnownURLs(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]struct{}{"https://a/1": {}, "https://a/2": {}}, known)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_CommitsAllRows(t *testing.T) {
	repo, mock := newMock(t)
	insert := regexp.QuoteMeta("INSERT INTO history (title, link, source) VALUES ($1, $2, $3)")

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(insert)
	prep.ExpectExec().WithArgs("Rule X", "https://a/1", "OCC").WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("Rule Y", "https://a/2", "OCC").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := repo.Append(context.Background(), []model.HistoryRecord{
		{Title: "Rule X", URL: "https://a/1", Source: "OCC"},
		{Title: "Rule Y", URL: "https://a/2", Source: "OCC"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_RollsBackOnFailure(t *testing.T) {
	repo, mock := newMock(t)
	insert := regexp.QuoteMeta("INSERT INTO history (title, link, source) VALUES ($1, $2, $3)")

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(insert)
	prep.ExpectExec().WithArgs("Rule X", "https://a/1", "OCC").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.Append(context.Background(), []model.HistoryRecord{{Title: "Rule X", URL: "https://a/1", Source: "OCC"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_EmptyIsNoop(t *testing.T) {
	repo, mock := newMock(t)

	require.NoError(t, repo.Append(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT title, link, source FROM history ORDER BY id")).
		WillReturnRows(sqlmock.NewRows([]string{"title", "link", "source"}).
			AddRow("Rule X", "https://a/1", "OCC").
			AddRow("Speech", "https://f/1", "Federal Reserve"))

	records, err := repo.List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []model.HistoryRecord{
		{Title: "Rule X", URL: "https://a/1", Source: "OCC"},
		{Title: "Speech", URL: "https://f/1", Source: "Federal Reserve"},
	}, records)
}
