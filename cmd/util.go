package main

import (
	"bufio"
	"errors"
	"flag"
	"io"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/Peter-Kung/linux2021-lab-0/cmd/resp"
)

const (
	DefaultLength = 1024 // rh buffer, terminator included
	MinRandLength = 5
	MaxRandLength = 10
)

var ErrUnsupportedType = errors.New("ERR unsupported request type")

type ServerOptions struct {
	Port           string
	Length         int
	MallocFailRate int
	Seed           int64
	Verbose        bool
}

// Read command line options
func getServerOptions() *ServerOptions {
	var (
		port       string
		portSr     string
		length     int
		mallocRate int
		seed       int64
		verbose    bool
	)

	flag.StringVar(&port, "port", "", "Port to run server")
	flag.StringVar(&portSr, "p", "", "Shorthand for port")
	flag.IntVar(&length, "length", DefaultLength, "Buffer size used when removing elements")
	flag.IntVar(&mallocRate, "malloc", 0, "Percentage of allocations that fail")
	flag.Int64Var(&seed, "seed", 0, "Seed for allocation failures, 0 picks one from the clock")
	flag.BoolVar(&verbose, "v", false, "Log every executed command")
	flag.Parse()

	if port == "" {
		if portSr != "" {
			port = portSr
		} else {
			port = DefaultPort
		}
	}

	if length < 1 {
		length = DefaultLength
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &ServerOptions{
		Port:           port,
		Length:         length,
		MallocFailRate: mallocRate,
		Seed:           seed,
		Verbose:        verbose,
	}
}

// readRequest reads either a RESP array or a single inline line.
func readRequest(r *bufio.Reader) ([]string, error) {
	b, err := r.Peek(1)
	if err != nil {
		return nil, err
	}

	if b[0] != resp.RespArray {
		line, err := r.ReadString('\n')
		if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
			return nil, err
		}
		return sanitize(line)
	}

	req, err := resp.Read(r)
	if err != nil {
		return nil, err
	}
	return requestArgs(req)
}

func requestArgs(req any) ([]string, error) {
	arr, ok := req.([]any)
	if !ok {
		return nil, ErrUnsupportedType
	}

	args := make([]string, len(arr))
	for i, v := range arr {
		switch v := v.(type) {
		case string:
			args[i] = v
		case int:
			args[i] = strconv.Itoa(v)
		default:
			return nil, ErrUnsupportedType
		}
	}

	return args, nil
}

// Convert request arguments back to an inline command
func StringifyRequest(args []string) string {
	var exec strings.Builder
	for i, s := range args {
		if i != 0 {
			exec.WriteByte(' ')
		}

		if s == "" || strings.ContainsAny(s, " \t\r\n") {
			s = "\"" + s + "\""
		}

		exec.WriteString(s)
	}

	return exec.String()
}

func randomString() string {
	const letters = "abcdefghijklmnopqrstuvwxyz"

	b := make([]byte, MinRandLength+rand.Intn(MaxRandLength-MinRandLength+1))
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
