package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familytree/internal/database"
)

func TestGetActiveFamilyIDsBindsActiveFlag(t *testing.T) {
	dialects := []struct {
		name    string
		dialect database.Dialect
		query   string
	}{
		{"sqlite", database.NewSQLiteDialect(), `WHERE member_id = \? AND is_active = \? ORDER BY family_id`},
		{"postgres", database.NewPostgresDialect(), `WHERE member_id = \$1 AND is_active = \$2 ORDER BY family_id`},
		{"mysql", database.NewMySQLDialect(), `WHERE member_id = \? AND is_active = \? ORDER BY family_id`},
	}

	for _, tt := range dialects {
		t.Run(tt.name, func(t *testing.T) {
			sqlDB, mock, err := sqlmock.New()
			require.NoError(t, err)
			t.Cleanup(func() { sqlDB.Close() })

			mock.ExpectQuery(tt.query).
				WithArgs(int64(5), true).
				WillReturnRows(sqlmock.NewRows([]string{"family_id"}).AddRow(2).AddRow(9))

			repo := NewMembershipRepository(&database.DB{DB: sqlDB, Dialect: tt.dialect})
			ids, err := repo.GetActiveFamilyIDs(5)
			require.NoError(t, err)
			assert.Equal(t, []int64{2, 9}, ids)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
