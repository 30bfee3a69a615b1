package tokens

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/classmint/internal/common"
	"github.com/dmitrijs2005/classmint/internal/server/models"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var tokenCols = []string{"id", "token", "amount", "one_time", "expires_at", "issued_by", "status", "created_at", "description"}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+tokens\s*\(token,\s*amount,\s*one_time,\s*expires_at,\s*issued_by,\s*status,\s*created_at,\s*description\)\s*VALUES\s*\(\$1,.*\$8\)\s*RETURNING\s+id\s*$`

	exp := time.Unix(1700000060, 0)
	created := time.Unix(1700000000, 0)
	mock.ExpectQuery(q).
		WithArgs("CM1.a.b", int64(500), true, exp.Unix(), "teacher", "ACTIVE", created.Unix(), "gold star").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	got, err := repo.Create(context.Background(), &models.Token{
		Token: "CM1.a.b", Amount: 500, OneTime: true, ExpiresAt: exp,
		IssuedBy: "teacher", CreatedAt: created, Description: "gold star",
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), got.ID)
	require.Equal(t, models.TokenActive, got.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+tokens`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Token{Token: "x", Amount: 1})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFindByToken_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*token,.*FROM\s+tokens\s+WHERE\s+token\s*=\s*\$1\s*$`
	mock.ExpectQuery(q).WithArgs("CM1.a.b").
		WillReturnRows(sqlmock.NewRows(tokenCols).
			AddRow(int64(3), "CM1.a.b", int64(500), true, int64(1700000060), "teacher", "USED", int64(1700000000), "d"))

	got, err := repo.FindByToken(context.Background(), "CM1.a.b")
	require.NoError(t, err)
	require.Equal(t, int64(3), got.ID)
	require.Equal(t, models.TokenUsed, got.Status)
	require.True(t, got.OneTime)
	require.Equal(t, int64(1700000060), got.ExpiresAt.Unix())
}

func TestFindByToken_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+tokens\s+WHERE\s+token`).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByToken(context.Background(), "ghost")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestFindByIDForUpdate_LocksRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)FROM\s+tokens\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE\s*$`
	mock.ExpectQuery(q).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(tokenCols).
			AddRow(int64(3), "t", int64(1), false, int64(1), "", "ACTIVE", int64(1), ""))

	got, err := repo.FindByIDForUpdate(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, models.TokenActive, got.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkUsed(t *testing.T) {
	q := `(?s)^UPDATE\s+tokens\s+SET\s+status\s*=\s*'USED'\s+WHERE\s+id\s*=\s*\$1\s+AND\s+status\s*=\s*'ACTIVE'\s*$`

	t.Run("active", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectExec(q).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.MarkUsed(context.Background(), 3))
	})

	t.Run("not active", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectExec(q).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))
		require.ErrorIs(t, repo.MarkUsed(context.Background(), 3), common.ErrTokenInactive)
	})

	t.Run("rows affected error", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()
		mock.ExpectExec(q).WithArgs(int64(3)).WillReturnResult(sqlmock.NewErrorResult(errors.New("ra")))
		require.ErrorContains(t, repo.MarkUsed(context.Background(), 3), "rows affected error")
	})
}

func TestVoid(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+tokens\s+SET\s+status\s*=\s*'VOID'\s+WHERE\s+id\s*=\s*\$1\s+AND\s+status\s*=\s*'ACTIVE'\s*$`
	mock.ExpectExec(q).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.Void(context.Background(), 3)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = repo.Void(context.Background(), 3)
	require.NoError(t, err)
	require.False(t, changed)
}

func TestListRecent(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)FROM\s+tokens\s+ORDER\s+BY\s+id\s+DESC\s+LIMIT\s+\$1\s*$`
	mock.ExpectQuery(q).WithArgs(2).
		WillReturnRows(sqlmock.NewRows(tokenCols).
			AddRow(int64(2), "b", int64(2), false, int64(1), "", "ACTIVE", int64(1), "").
			AddRow(int64(1), "a", int64(1), true, int64(1), "", "VOID", int64(1), ""))

	got, err := repo.ListRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, int64(2), got[0].ID)
	require.Equal(t, models.TokenVoid, got[1].Status)
}

func TestStats(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT\s+COUNT\(\*\),\s*COALESCE\(SUM\(CASE\s+WHEN\s+status\s*=\s*'ACTIVE'`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum"}).AddRow(int64(4), int64(1500)))

	got, err := repo.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, &models.TokenStats{TotalTokens: 4, ActiveAmount: 1500}, got)
}
