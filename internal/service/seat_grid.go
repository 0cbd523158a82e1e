package service

import (
	"sort"

	"github.com/Kedesh11/oka-transport-api/internal/models"
)

// seatGrid indexes a bus's seats by row for contiguity search. Rows are
// iterated in ascending order and seats within a row are sorted by
// column, which keeps every search deterministic.
type seatGrid struct {
	rows  []int
	byRow map[int][]models.Seat
}

// buildSeatGrid turns a flat seat list into a row-indexed grid. An
// empty input yields an empty grid.
func buildSeatGrid(seats []models.Seat) seatGrid {
	grid := seatGrid{byRow: make(map[int][]models.Seat)}
	for _, seat := range seats {
		grid.byRow[seat.Row] = append(grid.byRow[seat.Row], seat)
	}
	for row, rowSeats := range grid.byRow {
		sort.Slice(rowSeats, func(i, j int) bool { return rowSeats[i].Col < rowSeats[j].Col })
		grid.byRow[row] = rowSeats
		grid.rows = append(grid.rows, row)
	}
	sort.Ints(grid.rows)
	return grid
}

// findContiguousBlock returns the first run of n free seats with
// consecutive column numbers in a single row. First-fit: rows are
// scanned in ascending order and the earliest qualifying run wins.
func (g seatGrid) findContiguousBlock(taken map[int64]bool, n int) ([]models.Seat, bool) {
	if n < 1 {
		return nil, false
	}
	for _, row := range g.rows {
		if block, ok := g.findContiguousBlockInRow(row, taken, n); ok {
			return block, true
		}
	}
	return nil, false
}

// findContiguousBlockInRow restricts the search to one row. The streak
// resets on a taken seat and on a column gap: seats separated by a
// numbering hole (an aisle) are not contiguous.
func (g seatGrid) findContiguousBlockInRow(row int, taken map[int64]bool, n int) ([]models.Seat, bool) {
	var streak []models.Seat
	for _, seat := range g.byRow[row] {
		if taken[seat.ID] {
			streak = streak[:0]
			continue
		}
		if len(streak) > 0 && seat.Col != streak[len(streak)-1].Col+1 {
			streak = streak[:0]
		}
		streak = append(streak, seat)
		if len(streak) == n {
			block := make([]models.Seat, n)
			copy(block, streak)
			return block, true
		}
	}
	return nil, false
}

// freeSeatsInRow counts the row's seats absent from the taken set.
func (g seatGrid) freeSeatsInRow(row int, taken map[int64]bool) int {
	free := 0
	for _, seat := range g.byRow[row] {
		if !taken[seat.ID] {
			free++
		}
	}
	return free
}

// freeSeatsOutsideRow lists free seats in every other row, in row then
// column order. Used as relocation targets during rebalancing.
func (g seatGrid) freeSeatsOutsideRow(row int, taken map[int64]bool) []models.Seat {
	var free []models.Seat
	for _, r := range g.rows {
		if r == row {
			continue
		}
		for _, seat := range g.byRow[r] {
			if !taken[seat.ID] {
				free = append(free, seat)
			}
		}
	}
	return free
}
