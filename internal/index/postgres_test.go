package index

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planwise/plan-advisor/internal/model"
)

func newMockPostgresIndex(t *testing.T) (*PostgresIndex, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresIndex{pool: mock}, mock
}

func TestPostgresIndex_Upsert(t *testing.T) {
	idx, mock := newMockPostgresIndex(t)

	mock.ExpectExec(`INSERT INTO plan_documents`).
		WithArgs("a1", "Verizon", "5G Get More", "Plan Name: 5G Get More",
			pgxmock.AnyArg(), encodeVector([]float32{1, 0}), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := idx.Upsert(context.Background(), []model.EmbeddingDocument{
		doc("a1", "Verizon", "5G Get More", []float32{1, 0}),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresIndex_SearchEmpty(t *testing.T) {
	idx, mock := newMockPostgresIndex(t)

	mock.ExpectQuery(`SELECT id, provider, name, body, plan, vector FROM plan_documents`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "provider", "name", "body", "plan", "vector"}))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM plan_documents`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

	_, err := idx.Search(context.Background(), []float32{1, 0}, Filter{}, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrEmptyIndex)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresIndex_SearchRanks(t *testing.T) {
	idx, mock := newMockPostgresIndex(t)

	mock.ExpectQuery(`SELECT id, provider, name, body, plan, vector FROM plan_documents`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "provider", "name", "body", "plan", "vector"}).
			AddRow("a1", "Verizon", "5G Get More", "body", []byte(`{}`), encodeVector([]float32{1, 0})).
			AddRow("b1", "T-Mobile", "Go5G Plus", "body", []byte(`{}`), encodeVector([]float32{0, 1})))

	results, err := idx.Search(context.Background(), []float32{1, 0}, Filter{}, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a1", results[0].Document.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresIndex_Stats(t *testing.T) {
	idx, mock := newMockPostgresIndex(t)

	mock.ExpectQuery(`SELECT provider, COUNT\(\*\) FROM plan_documents GROUP BY provider`).
		WillReturnRows(pgxmock.NewRows([]string{"provider", "count"}).
			AddRow("Verizon", 2).
			AddRow("T-Mobile", 1))

	stats, err := idx.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Documents)
	assert.Equal(t, 2, stats.Providers["Verizon"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
