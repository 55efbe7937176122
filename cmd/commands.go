package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

func ErrUnknownCmd(cmd string) error {
	return fmt.Errorf("ERR unknown command '%s'", cmd)
}

func ErrInvalidNArg(cmd string) error {
	return fmt.Errorf("ERR invalid number of arguments for command '%s'", cmd)
}

func ErrUnknownOption(name string) error {
	return fmt.Errorf("ERR unknown option '%s'", name)
}

var ErrNotInt = errors.New("ERR value is not an integer or out of range")
var ErrUnbalancedQuotes = errors.New("ERR unbalanced quotes")
var ErrEmptyCommand = errors.New("ERR empty command")

// RandomValue asks ih/it to insert random strings instead of a literal one.
const RandomValue = "RAND"

// MaxRepeat bounds the repeat count of ih, it and size.
const MaxRepeat = 1 << 20

type CommandType = byte

const (
	// Server commands
	CmdVersion CommandType = iota
	CmdPing
	CmdHello
	CmdQuit
	CmdKeys
	CmdDbSize
	CmdFlushAll
	CmdOption
	// Queues
	CmdNew
	CmdFree
	CmdInsertHead
	CmdInsertTail
	CmdRemoveHead
	CmdRemoveHeadQuiet
	CmdSize
	CmdReverse
	CmdSort
	CmdShow
)

type Command struct {
	Kind  CommandType
	Key   string
	Value string

	Count       int    // ih, it, size
	Random      bool   // ih, it
	Compare     bool   // rh
	Option      string // option
	OptionValue int    // option
	RespVersion string // hello
}

func ParseCommand(message string) (*Command, error) {
	split, err := sanitize(message)
	if err != nil {
		return nil, err
	}

	return ParseArgs(split)
}

// ParseArgs builds a command from already split arguments, as they arrive in
// a RESP array.
func ParseArgs(split []string) (*Command, error) {
	argc := len(split)
	if argc == 0 {
		return nil, ErrEmptyCommand
	}

	cmd := strings.ToLower(split[0])
	switch cmd {
	case "version":
		if argc != 1 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdVersion}, nil
	case "ping":
		if argc != 1 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdPing}, nil
	case "hello":
		hello := &Command{Kind: CmdHello, RespVersion: "2"}
		if argc > 1 {
			hello.RespVersion = split[1]
		}
		return hello, nil
	case "quit":
		if argc != 1 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdQuit}, nil
	case "keys":
		if argc != 1 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdKeys}, nil
	case "dbsize":
		if argc != 1 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdDbSize}, nil
	case "flushall":
		if argc != 1 {
			return nil, ErrInvalidNArg(cmd)
		}
		return &Command{Kind: CmdFlushAll}, nil
	case "option":
		if argc != 3 {
			return nil, ErrInvalidNArg(cmd)
		}
		value, err := strconv.Atoi(split[2])
		if err != nil {
			return nil, ErrNotInt
		}
		return &Command{Kind: CmdOption, Option: strings.ToLower(split[1]), OptionValue: value}, nil
	case "new", "free", "reverse", "sort", "show", "rhq":
		if argc != 2 {
			return nil, ErrInvalidNArg(cmd)
		}
		kinds := map[string]CommandType{
			"new":     CmdNew,
			"free":    CmdFree,
			"reverse": CmdReverse,
			"sort":    CmdSort,
			"show":    CmdShow,
			"rhq":     CmdRemoveHeadQuiet,
		}
		return &Command{Kind: kinds[cmd], Key: split[1]}, nil
	case "ih", "it":
		if argc != 3 && argc != 4 {
			return nil, ErrInvalidNArg(cmd)
		}
		insert := &Command{Kind: CmdInsertHead, Key: split[1], Value: split[2], Count: 1}
		if cmd == "it" {
			insert.Kind = CmdInsertTail
		}
		insert.Random = insert.Value == RandomValue
		if argc == 4 {
			count, err := parseCount(split[3])
			if err != nil {
				return nil, err
			}
			insert.Count = count
		}
		return insert, nil
	case "rh":
		if argc != 2 && argc != 3 {
			return nil, ErrInvalidNArg(cmd)
		}
		rh := &Command{Kind: CmdRemoveHead, Key: split[1]}
		if argc == 3 {
			rh.Value = split[2]
			rh.Compare = true
		}
		return rh, nil
	case "size":
		if argc != 2 && argc != 3 {
			return nil, ErrInvalidNArg(cmd)
		}
		size := &Command{Kind: CmdSize, Key: split[1], Count: 1}
		if argc == 3 {
			count, err := parseCount(split[2])
			if err != nil {
				return nil, err
			}
			size.Count = count
		}
		return size, nil
	}

	return nil, ErrUnknownCmd(cmd)
}

func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > MaxRepeat {
		return 0, ErrNotInt
	}
	return n, nil
}

func isWhitespace(b byte) bool {
	return unicode.IsSpace(rune(b))
}

// sanitize splits an inline command on whitespace. Single or double quotes
// group words; quotes do not nest and have no escapes.
func sanitize(message string) ([]string, error) {
	out := []string{}
	i := 0

	for i < len(message) {
		c := message[i]
		if isWhitespace(c) {
			i++
			continue
		}

		if c == '"' || c == '\'' {
			end := strings.IndexByte(message[i+1:], c)
			if end < 0 {
				return nil, ErrUnbalancedQuotes
			}

			out = append(out, message[i+1:i+1+end])
			i += end + 2
			continue
		}

		start := i
		for i < len(message) && !isWhitespace(message[i]) {
			i++
		}
		out = append(out, message[start:i])
	}

	return out, nil
}
