package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Peter-Kung/linux2021-lab-0/cmd/db"
	"github.com/Peter-Kung/linux2021-lab-0/cmd/harness"
	"github.com/Peter-Kung/linux2021-lab-0/cmd/resp"
)

const MemoVersion = "0.1.0"
const DefaultPort = "5678"

var errQuit = errors.New("quit")

type Server struct {
	options *ServerOptions
	ln      net.Listener
	quitCh  chan struct{}
	once    sync.Once

	db      *db.Database
	harness *harness.Harness
	length  atomic.Int64
}

func NewServer(options *ServerOptions) *Server {
	h := harness.New(options.Seed)
	h.SetFailRate(options.MallocFailRate)

	s := &Server{
		options: options,
		quitCh:  make(chan struct{}),
		db:      db.NewDatabase(h),
		harness: h,
	}
	s.length.Store(int64(options.Length))
	return s
}

func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", "localhost:"+s.options.Port)
	if err != nil {
		return err
	}

	s.ln = ln
	return nil
}

func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Serve accepts connections until Stop is called.
func (s *Server) Serve() {
	log.Println("Memo server started on", s.Addr())

	go s.acceptLoop()
	<-s.quitCh
}

func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.Serve()
	return nil
}

func (s *Server) Stop() {
	s.once.Do(func() {
		close(s.quitCh)
		if s.ln != nil {
			s.ln.Close()
		}
	})
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.quitCh:
				return
			default:
			}

			log.Println("Accept error:", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	r := bufio.NewReader(conn)
	for {
		args, err := readRequest(r)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Println("Error while reading request:", err)
			}
			return
		}
		if len(args) == 0 {
			continue
		}

		reply, err := s.execute(args)
		if _, werr := io.WriteString(conn, reply); werr != nil {
			log.Println("Error while writing reply:", werr)
			return
		}
		if errors.Is(err, errQuit) {
			return
		}
	}
}

// execute runs one request and returns its serialized reply.
func (s *Server) execute(args []string) (string, error) {
	cmd, err := ParseArgs(args)
	if err != nil {
		return resp.SerializeError(err), err
	}

	if s.options.Verbose {
		log.Println("exec:", StringifyRequest(args))
	}

	res, err := s.run(cmd)
	if errors.Is(err, errQuit) {
		return resp.SerializeSimpleStr("OK"), err
	}
	if err != nil {
		return resp.SerializeError(err), err
	}

	out, err := resp.Serialize(res)
	if err != nil {
		return resp.SerializeError(err), err
	}

	return out, nil
}

func (s *Server) run(cmd *Command) (any, error) {
	switch cmd.Kind {
	case CmdVersion:
		return "Memo server version " + MemoVersion, nil
	case CmdPing:
		return resp.SimpleString("PONG"), nil
	case CmdHello:
		proto, err := strconv.Atoi(cmd.RespVersion)
		if err != nil || proto < 2 || proto > 3 {
			return nil, errors.New("NOPROTO unsupported protocol version")
		}
		return map[string]any{
			"server":  "memo",
			"version": MemoVersion,
			"proto":   proto,
		}, nil
	case CmdQuit:
		return nil, errQuit
	case CmdKeys:
		return s.db.Keys(), nil
	case CmdDbSize:
		return s.db.Len(), nil
	case CmdFlushAll:
		return resp.OK, s.db.FlushAll()
	case CmdOption:
		return resp.OK, s.setOption(cmd.Option, cmd.OptionValue)
	case CmdNew:
		return resp.OK, s.db.New(cmd.Key)
	case CmdFree:
		return resp.OK, s.db.Free(cmd.Key)
	case CmdInsertHead:
		return s.db.InsertHead(cmd.Key, insertValues(cmd)...)
	case CmdInsertTail:
		return s.db.InsertTail(cmd.Key, insertValues(cmd)...)
	case CmdRemoveHead:
		value, err := s.db.RemoveHead(cmd.Key, int(s.length.Load()))
		if errors.Is(err, db.ErrEmpty) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if cmd.Compare && value != cmd.Value {
			return nil, fmt.Errorf("ERR removed value '%s' does not match expected '%s'", value, cmd.Value)
		}
		return value, nil
	case CmdRemoveHeadQuiet:
		_, err := s.db.RemoveHead(cmd.Key, 0)
		if errors.Is(err, db.ErrEmpty) {
			return nil, nil
		}
		return resp.OK, err
	case CmdSize:
		var size int
		for i := 0; i < cmd.Count; i++ {
			n, err := s.db.Size(cmd.Key)
			if err != nil {
				return nil, err
			}
			size = n
		}
		return size, nil
	case CmdReverse:
		return resp.OK, s.db.Reverse(cmd.Key)
	case CmdSort:
		return resp.OK, s.db.Sort(cmd.Key)
	case CmdShow:
		return s.db.Show(cmd.Key)
	}

	return nil, ErrUnknownCmd(fmt.Sprint(cmd.Kind))
}

func (s *Server) setOption(name string, value int) error {
	switch name {
	case "malloc":
		s.harness.SetFailRate(value)
	case "fail":
		s.harness.FailAfter(value)
	case "length":
		if value < 1 {
			return ErrNotInt
		}
		s.length.Store(int64(value))
	default:
		return ErrUnknownOption(name)
	}

	return nil
}

func insertValues(cmd *Command) []string {
	values := make([]string, cmd.Count)
	for i := range values {
		if cmd.Random {
			values[i] = randomString()
		} else {
			values[i] = cmd.Value
		}
	}
	return values
}

func main() {
	server := NewServer(getServerOptions())
	if err := server.Start(); err != nil {
		log.Fatal(err)
	}
}
