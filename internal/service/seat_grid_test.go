package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kedesh11/oka-transport-api/internal/models"
)

func gridSeat(id int64, row, col int) models.Seat {
	return models.Seat{ID: id, Row: row, Col: col}
}

func TestBuildSeatGridOrdersRowsAndColumns(t *testing.T) {
	grid := buildSeatGrid([]models.Seat{
		gridSeat(5, 2, 2),
		gridSeat(3, 1, 3),
		gridSeat(1, 1, 1),
		gridSeat(2, 1, 2),
		gridSeat(4, 2, 1),
	})

	assert.Equal(t, []int{1, 2}, grid.rows)
	require.Len(t, grid.byRow[1], 3)
	assert.Equal(t, int64(1), grid.byRow[1][0].ID)
	assert.Equal(t, int64(2), grid.byRow[1][1].ID)
	assert.Equal(t, int64(3), grid.byRow[1][2].ID)
}

func TestFindContiguousBlockFirstFit(t *testing.T) {
	grid := buildSeatGrid([]models.Seat{
		gridSeat(1, 1, 1), gridSeat(2, 1, 2),
		gridSeat(3, 2, 1), gridSeat(4, 2, 2), gridSeat(5, 2, 3),
	})

	block, ok := grid.findContiguousBlock(map[int64]bool{}, 2)
	require.True(t, ok)
	assert.Equal(t, int64(1), block[0].ID, "earliest row wins")

	block, ok = grid.findContiguousBlock(map[int64]bool{}, 3)
	require.True(t, ok)
	assert.Equal(t, int64(3), block[0].ID)

	_, ok = grid.findContiguousBlock(map[int64]bool{}, 4)
	assert.False(t, ok)
}

func TestFindContiguousBlockStreakResetsOnTakenSeat(t *testing.T) {
	grid := buildSeatGrid([]models.Seat{
		gridSeat(1, 1, 1), gridSeat(2, 1, 2), gridSeat(3, 1, 3), gridSeat(4, 1, 4),
	})

	// Seat 2 taken splits the row into runs of 1 and 2.
	taken := map[int64]bool{2: true}
	block, ok := grid.findContiguousBlock(taken, 2)
	require.True(t, ok)
	assert.Equal(t, int64(3), block[0].ID)
	assert.Equal(t, int64(4), block[1].ID)

	_, ok = grid.findContiguousBlock(taken, 3)
	assert.False(t, ok)
}

func TestFindContiguousBlockStreakResetsOnColumnGap(t *testing.T) {
	// Columns 1,2 then 4,5: the aisle hole between 2 and 4 breaks the run.
	grid := buildSeatGrid([]models.Seat{
		gridSeat(1, 1, 1), gridSeat(2, 1, 2), gridSeat(3, 1, 4), gridSeat(4, 1, 5),
	})

	_, ok := grid.findContiguousBlock(map[int64]bool{}, 3)
	assert.False(t, ok)

	block, ok := grid.findContiguousBlock(map[int64]bool{}, 2)
	require.True(t, ok)
	assert.Equal(t, int64(1), block[0].ID)
}

func TestFreeSeatsOutsideRowSkipsHostRow(t *testing.T) {
	grid := buildSeatGrid([]models.Seat{
		gridSeat(1, 1, 1), gridSeat(2, 1, 2),
		gridSeat(3, 2, 1), gridSeat(4, 2, 2),
	})

	free := grid.freeSeatsOutsideRow(1, map[int64]bool{3: true})
	require.Len(t, free, 1)
	assert.Equal(t, int64(4), free[0].ID)

	assert.Equal(t, 2, grid.freeSeatsInRow(1, map[int64]bool{}))
	assert.Equal(t, 1, grid.freeSeatsInRow(2, map[int64]bool{3: true}))
}
