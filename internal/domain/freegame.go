package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// FreeGame tracks the state of a free-spin feature. It is persisted inside
// action restore blobs as a pipe-delimited key=value string, e.g.
// "left=8|done=2|initial=10|symbol=?|totalWin=350|category=1".
type FreeGame struct {
	Left     int
	Done     int
	Initial  int
	Symbol   *int
	TotalWin int64
	Category int
}

// Encode renders the pipe-delimited blob. A missing symbol encodes as "?".
func (f FreeGame) Encode() string {
	sym := "?"
	if f.Symbol != nil {
		sym = strconv.Itoa(*f.Symbol)
	}
	return fmt.Sprintf("left=%d|done=%d|initial=%d|symbol=%s|totalWin=%d|category=%d",
		f.Left, f.Done, f.Initial, sym, f.TotalWin, f.Category)
}

// ParseFreeGame decodes the pipe-delimited blob produced by Encode.
func ParseFreeGame(s string) (FreeGame, error) {
	var f FreeGame
	for _, part := range strings.Split(s, "|") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return f, fmt.Errorf("free game blob: bad segment %q", part)
		}
		switch k {
		case "left", "done", "initial", "category":
			n, err := strconv.Atoi(v)
			if err != nil {
				return f, fmt.Errorf("free game blob: %s: %w", k, err)
			}
			switch k {
			case "left":
				f.Left = n
			case "done":
				f.Done = n
			case "initial":
				f.Initial = n
			case "category":
				f.Category = n
			}
		case "symbol":
			if v != "?" {
				n, err := strconv.Atoi(v)
				if err != nil {
					return f, fmt.Errorf("free game blob: symbol: %w", err)
				}
				f.Symbol = &n
			}
		case "totalWin":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return f, fmt.Errorf("free game blob: totalWin: %w", err)
			}
			f.TotalWin = n
		default:
			return f, fmt.Errorf("free game blob: unknown key %q", k)
		}
	}
	return f, nil
}
