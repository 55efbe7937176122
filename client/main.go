package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"

	"github.com/Peter-Kung/linux2021-lab-0/cmd/resp"
)

const prompt = "cmd> "

// format renders a reply the way the queue tester prints it.
func format(v any) string {
	switch v := v.(type) {
	case nil:
		return "(nil)"
	case error:
		return "ERROR: " + v.Error()
	case []any:
		if len(v) == 0 {
			return "[]"
		}
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = fmt.Sprint(item)
		}
		return "[" + strings.Join(items, " ") + "]"
	}

	return fmt.Sprint(v)
}

func main() {
	addr := flag.String("addr", "localhost:5678", "Memo server address")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	replies := bufio.NewReader(conn)
	input := bufio.NewScanner(os.Stdin)

	fmt.Print(prompt)
	for input.Scan() {
		line := strings.TrimSpace(input.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			fmt.Print(prompt)
			continue
		}

		if _, err := conn.Write([]byte(line + "\r\n")); err != nil {
			log.Fatal(err)
		}

		reply, err := resp.Read(replies)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(format(reply))

		if strings.EqualFold(line, "quit") {
			return
		}
		fmt.Print(prompt)
	}
}
