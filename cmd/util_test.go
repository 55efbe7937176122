package main

import (
	"bufio"
	"reflect"
	"strings"
	"testing"
)

func TestStringifyRequest(t *testing.T) {
	req := []string{"it", "greeting", "hello world!"}
	if str := StringifyRequest(req); str != "it greeting \"hello world!\"" {
		t.Error("Expected other result for StringifyRequest, got", str)
	}

	if str := StringifyRequest([]string{"ih", "q", ""}); str != "ih q \"\"" {
		t.Error("Expected empty argument to be quoted, got", str)
	}
}

func TestReadRequest(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("*3\r\n$2\r\nit\r\n$1\r\nq\r\n$5\r\nhello\r\nsize q\r\nrh q"))

	args, err := readRequest(r)
	if err != nil || !reflect.DeepEqual(args, []string{"it", "q", "hello"}) {
		t.Error("Expected RESP request to be read, got", args, err)
	}

	args, err = readRequest(r)
	if err != nil || !reflect.DeepEqual(args, []string{"size", "q"}) {
		t.Error("Expected inline request to be read, got", args, err)
	}

	args, err = readRequest(r)
	if err != nil || !reflect.DeepEqual(args, []string{"rh", "q"}) {
		t.Error("Expected unterminated last line to be read, got", args, err)
	}

	if _, err = readRequest(r); err == nil {
		t.Error("Expected EOF after last request")
	}
}

func TestRequestArgs(t *testing.T) {
	if args, err := requestArgs([]any{"size", "q", 3}); err != nil || !reflect.DeepEqual(args, []string{"size", "q", "3"}) {
		t.Error("Expected integers to be converted, got", args)
	}
	if _, err := requestArgs("ping"); err != ErrUnsupportedType {
		t.Error("Expected non array request to fail")
	}
	if _, err := requestArgs([]any{"it", nil}); err != ErrUnsupportedType {
		t.Error("Expected nil argument to fail")
	}
}

func TestRandomString(t *testing.T) {
	for i := 0; i < 100; i++ {
		s := randomString()
		if len(s) < MinRandLength || len(s) > MaxRandLength {
			t.Error("Expected random string length within bounds, got", len(s))
		}
		if strings.Trim(s, "abcdefghijklmnopqrstuvwxyz") != "" {
			t.Error("Expected only lowercase letters, got", s)
		}
	}
}
