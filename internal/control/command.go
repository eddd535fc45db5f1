package control

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind identifies a control command.
type Kind int

const (
	// KindRate sets a new target rate.
	KindRate Kind = iota + 1
	// KindExit stops the producer.
	KindExit
)

func (k Kind) String() string {
	switch k {
	case KindRate:
		return "rate"
	case KindExit:
		return "exit"
	default:
		return "unknown"
	}
}

var (
	// ErrEmptyCommand is returned by Parse for a blank line.
	ErrEmptyCommand = errors.New("empty command")

	// ErrUnknownCommand is returned by Parse for input it does not understand.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrInvalidRate is returned by Parse for a negative or non-integral rate.
	ErrInvalidRate = errors.New("rate must be a non-negative integer")
)

var exitKeywords = map[string]bool{
	"exit": true,
	"quit": true,
	"stop": true,
}

// Command is a parsed control line.
type Command struct {
	Kind Kind
	Rate int
}

// Parse interprets one line of input. Accepted forms are a plain integer,
// one of the exit keywords, or a JSON object such as {"rate": 10} or
// {"command": "exit"}.
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, ErrEmptyCommand
	}

	if exitKeywords[strings.ToLower(line)] {
		return Command{Kind: KindExit}, nil
	}

	if strings.HasPrefix(line, "{") {
		return parseJSON(line)
	}

	n, err := strconv.Atoi(line)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, line)
	}
	return rateCommand(int64(n))
}

func parseJSON(line string) (Command, error) {
	if !gjson.Valid(line) {
		return Command{}, fmt.Errorf("%w: malformed JSON", ErrUnknownCommand)
	}

	if cmd := gjson.Get(line, "command"); cmd.Exists() {
		if exitKeywords[strings.ToLower(cmd.String())] {
			return Command{Kind: KindExit}, nil
		}
		if !strings.EqualFold(cmd.String(), "rate") {
			return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.String())
		}
	}

	rate := gjson.Get(line, "rate")
	if !rate.Exists() {
		return Command{}, fmt.Errorf("%w: missing rate", ErrUnknownCommand)
	}
	if rate.Type != gjson.Number || rate.Num != math.Trunc(rate.Num) || math.Abs(rate.Num) > math.MaxInt32 {
		return Command{}, fmt.Errorf("%w: %s", ErrInvalidRate, rate.Raw)
	}
	return rateCommand(rate.Int())
}

func rateCommand(n int64) (Command, error) {
	if n < 0 {
		return Command{}, fmt.Errorf("%w: %d", ErrInvalidRate, n)
	}
	return Command{Kind: KindRate, Rate: int(n)}, nil
}
