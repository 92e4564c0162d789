package entity

const (
	PlayerX = "X"
	PlayerO = "O"

	EmptyCell = ""

	BoardSize = 9
)

// WinCombos lists rows, then columns, then diagonals. DetermineWinner relies on this order.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Board is the 3x3 grid in row-major order.
type Board [BoardSize]string

// DetermineWinner returns the symbol of the first complete line, or EmptyCell if there is none.
func DetermineWinner(board Board) string {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return a
		}
	}

	return EmptyCell
}

// IsBoardFull reports whether no empty cell is left.
func IsBoardFull(board Board) bool {
	for _, cell := range board {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}

func ToggleSymbol(symbol string) string {
	if symbol == PlayerX {
		return PlayerO
	}
	return PlayerX
}
