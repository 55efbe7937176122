package resp

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
)

// Resp protocol's data types
const (
	RespStatus    = '+' // +<string>\r\n
	RespError     = '-' // -<string>\r\n
	RespString    = '$' // $<length>\r\n<bytes>\r\n
	RespInt       = ':' // :<number>\r\n
	RespNil       = '_' // _\r\n
	RespFloat     = ',' // ,<floating-point-number>\r\n (golang float)
	RespBool      = '#' // true: #t\r\n false: #f\r\n
	RespBlobError = '!' // !<length>\r\n<bytes>\r\n
	RespVerbatim  = '=' // =<length>\r\nFORMAT:<bytes>\r\n
	RespBigInt    = '(' // (<big number>\r\n
	RespArray     = '*' // *<len>\r\n... (same as resp2)
	RespMap       = '%' // %<len>\r\n(key)\r\n(value)\r\n... (golang map)
	RespSet       = '~' // ~<len>\r\n... (same as Array)
	RespAttr      = '|' // |<len>\r\n(key)\r\n(value)\r\n... + command reply
	RespPush      = '>' // ><len>\r\n... (same as Array)
)

// Length limits for incoming bulk strings and aggregates.
const (
	MaxBulkLen  = 512 * 1024 * 1024
	MaxArrayLen = 1024 * 1024
)

var (
	ErrEmptyLine = errors.New("empty resp line")
	ErrBadLength = errors.New("invalid resp length")
)

// Read decodes one value. Error replies come back as error values, not as
// the returned error, which is reserved for malformed or failed reads.
func Read(r *bufio.Reader) (any, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	if len(line) == 0 {
		return nil, ErrEmptyLine
	}

	switch line[0] {
	case RespNil:
		return nil, nil
	case RespBool:
		return len(line) > 1 && line[1] == 't', nil
	case RespInt:
		return strconv.Atoi(line[1:])
	case RespStatus:
		return line[1:], nil
	case RespString:
		return readString(r, line)
	case RespError:
		return errors.New(line[1:]), nil
	case RespArray, RespSet, RespPush:
		return readSlice(r, line)
	case RespMap:
		return readMap(r, line)
	}

	return line, nil
}

func readLine(r *bufio.Reader) (string, error) {
	l, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimRight(l, "\r\n"), nil
}

func readString(r *bufio.Reader, line string) (any, error) {
	n, err := replyLen(line, MaxBulkLen)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, nil
	}

	b := make([]byte, n+2)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}

	return string(b[:n]), nil
}

func readSlice(r *bufio.Reader, line string) (any, error) {
	n, err := replyLen(line, MaxArrayLen)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, nil
	}

	arr := make([]any, n)
	for i := 0; i < len(arr); i++ {
		v, err := Read(r)
		if err != nil {
			return arr, err
		}

		arr[i] = v
	}

	return arr, nil
}

func readMap(r *bufio.Reader, line string) (any, error) {
	n, err := replyLen(line, MaxArrayLen)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, nil
	}

	m := make(map[string]any, n)
	for i := 0; i < n; i++ {
		k, err := Read(r)
		if err != nil {
			return m, err
		}
		v, err := Read(r)
		if err != nil {
			return m, err
		}

		key, ok := k.(string)
		if !ok {
			return m, errors.New("resp map key is not a string")
		}
		m[key] = v
	}

	return m, nil
}

// replyLen parses the length header of a bulk or aggregate value. -1 is
// the nil length, anything below it or above limit is rejected.
func replyLen(line string, limit int) (int, error) {
	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return 0, err
	}
	if n < -1 || n > limit {
		return 0, ErrBadLength
	}

	return n, nil
}
