package testutil

import (
	"fmt"
	"io"
	"net"
	"net/textproto"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

// FTPServer is an in-memory FTP server speaking enough of the protocol for
// the storage provider: login, CWD, MKD, STOR, DELE, and LIST over EPSV.
type FTPServer struct {
	Host string
	Port int

	ln net.Listener

	mu       sync.Mutex
	files    map[string][]byte
	dirs     map[string]bool
	replies  map[string]string
	commands []string
}

// NewFTPServer starts a server on a loopback port. It stops when t ends.
func NewFTPServer(t testing.TB) *FTPServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	s := &FTPServer{
		Host:    addr.IP.String(),
		Port:    addr.Port,
		ln:      ln,
		files:   make(map[string][]byte),
		dirs:    map[string]bool{"/": true},
		replies: make(map[string]string),
	}
	t.Cleanup(func() { _ = ln.Close() })
	go s.serve()
	return s
}

// AddFile stores size bytes at the absolute path name.
func (s *FTPServer) AddFile(name string, size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path.Clean(name)] = make([]byte, size)
}

// File returns the content stored at name.
func (s *FTPServer) File(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[path.Clean(name)]
	return b, ok
}

// Reply makes the server answer the exact command line with reply,
// for example Reply("CWD /estate", "421 Service not available").
// A 421 reply also closes the control connection.
func (s *FTPServer) Reply(command, reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[command] = reply
}

// Commands returns every command line received so far.
func (s *FTPServer) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *FTPServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *FTPServer) handle(conn net.Conn) {
	tp := textproto.NewConn(conn)
	defer tp.Close()

	var data net.Listener
	defer func() {
		if data != nil {
			_ = data.Close()
		}
	}()

	_ = tp.PrintfLine("220 ready")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.commands = append(s.commands, line)
		reply, scripted := s.replies[line]
		s.mu.Unlock()
		if scripted {
			_ = tp.PrintfLine("%s", reply)
			if strings.HasPrefix(reply, "421") {
				return
			}
			continue
		}

		verb, arg, _ := strings.Cut(line, " ")
		switch strings.ToUpper(verb) {
		case "USER":
			_ = tp.PrintfLine("331 password required")
		case "PASS":
			_ = tp.PrintfLine("230 logged in")
		case "TYPE":
			_ = tp.PrintfLine("200 type set")
		case "CWD":
			if s.isDir(arg) {
				_ = tp.PrintfLine("250 directory changed")
			} else {
				_ = tp.PrintfLine("550 %s: no such directory", arg)
			}
		case "MKD":
			if s.isDir(arg) {
				_ = tp.PrintfLine("550 %s: exists", arg)
				break
			}
			s.mu.Lock()
			s.dirs[path.Clean(arg)] = true
			s.mu.Unlock()
			_ = tp.PrintfLine("257 \"%s\" created", arg)
		case "DELE":
			s.mu.Lock()
			_, ok := s.files[path.Clean(arg)]
			delete(s.files, path.Clean(arg))
			s.mu.Unlock()
			if ok {
				_ = tp.PrintfLine("250 deleted")
			} else {
				_ = tp.PrintfLine("550 %s: no such file", arg)
			}
		case "EPSV":
			if data != nil {
				_ = data.Close()
			}
			if data, err = net.Listen("tcp", "127.0.0.1:0"); err != nil {
				_ = tp.PrintfLine("425 cannot open data connection")
				continue
			}
			_ = tp.PrintfLine("229 Entering Extended Passive Mode (|||%d|)", data.Addr().(*net.TCPAddr).Port)
		case "LIST", "STOR":
			if data == nil {
				_ = tp.PrintfLine("425 use EPSV first")
				continue
			}
			_ = tp.PrintfLine("150 opening data connection")
			if err := s.transfer(data, strings.ToUpper(verb), arg); err != nil {
				_ = tp.PrintfLine("426 %v", err)
			} else {
				_ = tp.PrintfLine("226 transfer complete")
			}
			_ = data.Close()
			data = nil
		case "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("502 %s not implemented", verb)
		}
	}
}

func (s *FTPServer) transfer(ln net.Listener, verb, arg string) error {
	if tl, ok := ln.(*net.TCPListener); ok {
		_ = tl.SetDeadline(time.Now().Add(5 * time.Second))
	}
	conn, err := ln.Accept()
	if err != nil {
		return err
	}
	defer conn.Close()

	if verb == "STOR" {
		body, err := io.ReadAll(conn)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.files[path.Clean(arg)] = body
		s.mu.Unlock()
		return nil
	}
	for _, line := range s.list(arg) {
		if _, err := fmt.Fprintf(conn, "%s\r\n", line); err != nil {
			return err
		}
	}
	return nil
}

func (s *FTPServer) isDir(name string) bool {
	name = path.Clean(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirs[name] {
		return true
	}
	for f := range s.files {
		if strings.HasPrefix(f, strings.TrimSuffix(name, "/")+"/") {
			return true
		}
	}
	return false
}

// list renders the direct children of dir in ls format.
func (s *FTPServer) list(dir string) []string {
	dir = path.Clean(dir)
	prefix := strings.TrimSuffix(dir, "/") + "/"

	s.mu.Lock()
	defer s.mu.Unlock()
	children := make(map[string]int)
	sub := make(map[string]bool)
	for f, body := range s.files {
		rest, ok := strings.CutPrefix(f, prefix)
		if !ok {
			continue
		}
		if name, _, nested := strings.Cut(rest, "/"); nested {
			sub[name] = true
		} else {
			children[rest] = len(body)
		}
	}
	for d := range s.dirs {
		if rest, ok := strings.CutPrefix(d, prefix); ok && rest != "" {
			name, _, _ := strings.Cut(rest, "/")
			sub[name] = true
		}
	}

	var lines []string
	for name := range sub {
		lines = append(lines, fmt.Sprintf("drwxr-xr-x    2 ftp      ftp          4096 Dec 02  2023 %s", name))
	}
	for name, size := range children {
		lines = append(lines, fmt.Sprintf("-rw-r--r--    1 ftp      ftp      %8d Dec 02  2023 %s", size, name))
	}
	sort.Strings(lines)
	return lines
}
