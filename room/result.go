package room

// Result is the outcome of evaluating a board.
type Result int

const (
	ResultUndecided Result = iota
	ResultHostWin
	ResultGuestWin
	ResultDraw
)

// String returns a log-friendly name for the result.
func (r Result) String() string {
	switch r {
	case ResultHostWin:
		return "host_win"
	case ResultGuestWin:
		return "guest_win"
	case ResultDraw:
		return "draw"
	default:
		return "undecided"
	}
}

// Winner returns the winning seat for a decided, non-draw result.
func (r Result) Winner() (Seat, bool) {
	switch r {
	case ResultHostWin:
		return SeatHost, true
	case ResultGuestWin:
		return SeatGuest, true
	default:
		return "", false
	}
}

// winningTriples lists the eight lines in evaluation order: rows, then
// columns, then diagonals. The first fully-claimed matching triple decides
// the game, so the order is part of the observable behavior.
var winningTriples = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Evaluate returns the game result for a board: the first matching triple
// wins; a full board with no match is a draw; anything else is undecided.
func Evaluate(b Board) Result {
	for _, t := range winningTriples {
		c := b[t[0]]
		if c != CellEmpty && c == b[t[1]] && b[t[1]] == b[t[2]] {
			if c == CellHost {
				return ResultHostWin
			}
			return ResultGuestWin
		}
	}

	if b.Full() {
		return ResultDraw
	}

	return ResultUndecided
}
