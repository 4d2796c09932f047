// Copyright (c) 2026 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/chimera-project/chimera.
//
// SPDX-License-Identifier: Apache-2.0
package games

import (
	"fmt"

	"github.com/chimera-project/chimera/pkg/authoring"
)

// pieceColor identifies one side's pieces on a connect-M board.
type pieceColor int

const (
	noColor pieceColor = iota
	colorRed
	colorYellow
)

func (c pieceColor) letter() string {
	switch c {
	case colorRed:
		return "R"
	case colorYellow:
		return "Y"
	default:
		return " "
	}
}

// connectMBoard is a gravity board where pieces are dropped into columns and
// M contiguous pieces of one color win. Rows are numbered from 0 at the
// bottom.
type connectMBoard struct {
	cells  [][]pieceColor
	top    []int
	nrows  int
	ncols  int
	m      int
	winner pieceColor
}

func newConnectMBoard(nrows, ncols, m int) *connectMBoard {
	cells := make([][]pieceColor, nrows)
	for i := range cells {
		cells[i] = make([]pieceColor, ncols)
	}
	return &connectMBoard{
		cells: cells,
		top:   make([]int, ncols),
		nrows: nrows,
		ncols: ncols,
		m:     m,
	}
}

// ValidColumn reports whether col is a board column.
func (b *connectMBoard) ValidColumn(col int) bool {
	return col >= 0 && col < b.ncols
}

// CanDrop reports whether the column has room for another piece.
func (b *connectMBoard) CanDrop(col int) bool {
	return b.top[col] < b.nrows
}

// DropWins reports whether dropping a piece of the given color into the
// column would win the game. The board is left unchanged.
func (b *connectMBoard) DropWins(col int, color pieceColor) bool {
	if !b.CanDrop(col) {
		return false
	}
	row := b.top[col]
	b.set(row, col, color)
	wins := b.winnerAt(row, col)
	b.set(row, col, noColor)
	return wins
}

// Drop places a piece of the given color into the column. The column must
// not be full.
func (b *connectMBoard) Drop(col int, color pieceColor) {
	row := b.top[col]
	b.set(row, col, color)
	b.top[col]++
	if b.winnerAt(row, col) {
		b.winner = color
	}
}

// IsDone reports whether there is a winner or the board is full.
func (b *connectMBoard) IsDone() bool {
	if b.winner != noColor {
		return true
	}
	for _, top := range b.top {
		if top < b.nrows {
			return false
		}
	}
	return true
}

// Winner returns the winning color, or noColor.
func (b *connectMBoard) Winner() pieceColor {
	return b.winner
}

// NumCols returns the number of columns.
func (b *connectMBoard) NumCols() int {
	return b.ncols
}

// StrGrid renders the board as rows of " ", "R", "Y", top row first.
func (b *connectMBoard) StrGrid() [][]string {
	grid := make([][]string, b.nrows)
	for i, row := range b.cells {
		grid[i] = make([]string, b.ncols)
		for j, cell := range row {
			grid[i][j] = cell.letter()
		}
	}
	return grid
}

func (b *connectMBoard) get(row, col int) pieceColor {
	if row < 0 || row >= b.nrows || col < 0 || col >= b.ncols {
		return noColor
	}
	return b.cells[(b.nrows-1)-row][col]
}

func (b *connectMBoard) set(row, col int, color pieceColor) {
	b.cells[(b.nrows-1)-row][col] = color
}

// winnerAt checks whether the piece at (row, col) completes a winning line.
func (b *connectMBoard) winnerAt(row, col int) bool {
	dirs := [][2]int{
		{+1, -1}, {+1, 0}, {+1, +1},
		{0, -1}, {0, +1},
		{-1, -1}, {-1, 0}, {-1, +1},
	}

	// Count contiguous same-color pieces in each direction, up to m-1.
	origin := b.get(row, col)
	adj := map[[2]int]int{}
	for _, dir := range dirs {
		ir, ic := row, col
		for i := 0; i < b.m-1; i++ {
			ir, ic = ir+dir[0], ic+dir[1]
			if b.get(ir, ic) != origin {
				break
			}
			adj[dir]++
		}
		if adj[dir] == b.m-1 {
			return true
		}
	}

	// The winning line may straddle the dropped piece.
	if adj[[2]int{0, -1}]+1+adj[[2]int{0, +1}] >= b.m {
		return true
	}
	if adj[[2]int{+1, 0}]+1+adj[[2]int{-1, 0}] >= b.m {
		return true
	}
	if adj[[2]int{+1, -1}]+1+adj[[2]int{-1, +1}] >= b.m {
		return true
	}
	if adj[[2]int{-1, -1}]+1+adj[[2]int{+1, +1}] >= b.m {
		return true
	}
	return false
}

// ConnectM is the classic connect-four on a 6x7 board. Players alternate
// dropping pieces; the first to line up four of their color wins, and a full
// board without a winner is a draw.
type ConnectM struct {
	authoring.TwoPlayerTurnBasedGame
	board       *connectMBoard
	playerColor map[int]pieceColor
}

// NewConnectM constructs the game. It takes no options.
func NewConnectM(options map[string]interface{}) authoring.Game {
	return &ConnectM{
		board:       newConnectMBoard(6, 7, 4),
		playerColor: map[int]pieceColor{},
	}
}

func (g *ConnectM) OnStart() {
	g.playerColor[0] = colorRed
	g.playerColor[1] = colorYellow
}

func (g *ConnectM) OnEnd() {}

func (g *ConnectM) drop(player *authoring.Player, column int) error {
	if !g.board.ValidColumn(column) {
		return authoring.NewGameError(authoring.IncorrectMove,
			fmt.Sprintf("Incorrect column number: %d", column))
	}
	if !g.board.CanDrop(column) {
		return authoring.NewGameError(authoring.IncorrectMove,
			fmt.Sprintf("Cannot drop piece in column %d", column))
	}
	g.board.Drop(column, g.playerColor[player.ID])
	g.TurnToNextPlayer()
	g.NotifyUpdate()
	return nil
}

func (g *ConnectM) Done() bool {
	return g.board.IsDone()
}

func (g *ConnectM) Winner() *authoring.Player {
	winning := g.board.Winner()
	if winning == noColor {
		return nil
	}
	for id, color := range g.playerColor {
		if color == winning {
			return g.PlayerByID(id)
		}
	}
	return nil
}

func (g *ConnectM) GameState() map[string]interface{} {
	player1 := g.PlayerByID(0)
	player2 := g.PlayerByID(1)
	return map[string]interface{}{
		"turn": g.CurrentPlayer().Name,
		"players": map[string]interface{}{
			player1.Name: g.playerColor[player1.ID].letter(),
			player2.Name: g.playerColor[player2.ID].letter(),
		},
		"board": g.board.StrGrid(),
	}
}

func (g *ConnectM) Actions() map[string]authoring.ActionFunc {
	return map[string]authoring.ActionFunc{
		"drop":      g.ValidateTurn(authoring.ExpectData([]string{"column"}, g.actionDrop)),
		"drop_info": authoring.ExpectData(nil, g.actionDropInfo),
	}
}

func (g *ConnectM) actionDrop(player *authoring.Player, data map[string]interface{}) (map[string]interface{}, error) {
	column, ok := asInt(data["column"])
	if !ok {
		return nil, authoring.NewGameError(authoring.IncorrectActionData,
			fmt.Sprintf("Provided column is not an integer: %v", data["column"]))
	}
	if err := g.drop(player, column); err != nil {
		return nil, err
	}
	return map[string]interface{}{"column": column}, nil
}

func (g *ConnectM) actionDropInfo(player *authoring.Player, data map[string]interface{}) (map[string]interface{}, error) {
	canDrop := []interface{}{}
	dropWinsY := []interface{}{}
	dropWinsR := []interface{}{}
	for col := 0; col < g.board.NumCols(); col++ {
		canDrop = append(canDrop, g.board.CanDrop(col))
		dropWinsY = append(dropWinsY, g.board.DropWins(col, colorYellow))
		dropWinsR = append(dropWinsR, g.board.DropWins(col, colorRed))
	}
	return map[string]interface{}{
		"can_drop": canDrop,
		"drop_wins": map[string]interface{}{
			"Y": dropWinsY,
			"R": dropWinsR,
		},
	}, nil
}

// asInt accepts the integral values JSON decoding can produce for a column.
func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
