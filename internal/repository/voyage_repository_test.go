package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kedesh11/oka-transport-api/internal/models"
)

func TestVoyageRepositoryFindByID(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewVoyageRepository(db)

	departure := time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "bus_id", "route_id", "departure_date", "status", "created_at"}).
		AddRow(1, 10, 5, departure, "SCHEDULED", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, bus_id, route_id, departure_date, status, created_at FROM voyages WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	voyage, err := repo.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), voyage.BusID)
	assert.Equal(t, models.VoyageStatusScheduled, voyage.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVoyageRepositoryFindByIDMissingReturnsRawErrNoRows(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewVoyageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, bus_id, route_id, departure_date, status, created_at FROM voyages WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), 99)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVoyageRepositoryCreateDefaultsStatus(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewVoyageRepository(db)

	departure := time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO voyages")).
		WithArgs(int64(10), int64(5), departure, "SCHEDULED", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	voyage := &models.Voyage{BusID: 10, RouteID: 5, DepartureDate: departure}
	require.NoError(t, repo.Create(context.Background(), voyage))
	assert.Equal(t, int64(42), voyage.ID)
	assert.Equal(t, models.VoyageStatusScheduled, voyage.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("create seat assignment: %w", &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(sql.ErrNoRows))
}
