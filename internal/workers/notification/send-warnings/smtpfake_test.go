package sendwarnings

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
)

// fakeRelay is a minimal plaintext SMTP server. Recipients listed in reject
// are refused at RCPT.
type fakeRelay struct {
	ln     net.Listener
	reject map[string]bool

	mu       sync.Mutex
	conns    int
	messages []relayedMessage
	commands []string
}

type relayedMessage struct {
	From string
	To   []string
	Data string
}

func newFakeRelay(t *testing.T, reject ...string) *fakeRelay {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	r := &fakeRelay{ln: ln, reject: map[string]bool{}}
	for _, addr := range reject {
		r.reject[addr] = true
	}
	go r.serve()
	t.Cleanup(func() { ln.Close() })
	return r
}

func (r *fakeRelay) hostPort() (string, int) {
	addr := r.ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func (r *fakeRelay) Conns() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conns
}

func (r *fakeRelay) Messages() []relayedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]relayedMessage(nil), r.messages...)
}

func (r *fakeRelay) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.commands...)
}

func (r *fakeRelay) serve() {
	for {
		conn, err := r.ln.Accept()
		if err != nil {
			return
		}
		r.mu.Lock()
		r.conns++
		r.mu.Unlock()
		go r.handle(conn)
	}
}

func (r *fakeRelay) handle(conn net.Conn) {
	defer conn.Close()
	rd := bufio.NewReader(conn)
	reply := func(line string) { _, _ = conn.Write([]byte(line + "\r\n")) }

	reply("220 fake.relay ESMTP")
	var cur relayedMessage
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		r.mu.Lock()
		r.commands = append(r.commands, verb)
		r.mu.Unlock()

		switch verb {
		case "EHLO", "HELO":
			reply("250 fake.relay")
		case "MAIL":
			cur = relayedMessage{From: addrArg(line)}
			reply("250 OK")
		case "RCPT":
			to := addrArg(line)
			if r.reject[to] {
				reply("550 5.1.1 mailbox unavailable")
				continue
			}
			cur.To = append(cur.To, to)
			reply("250 OK")
		case "DATA":
			reply("354 end with <CR><LF>.<CR><LF>")
			var data strings.Builder
			for {
				l, err := rd.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				data.WriteString(l)
			}
			cur.Data = data.String()
			r.mu.Lock()
			r.messages = append(r.messages, cur)
			r.mu.Unlock()
			reply("250 queued")
		case "RSET":
			cur = relayedMessage{}
			reply("250 OK")
		case "NOOP":
			reply("250 OK")
		case "QUIT":
			reply("221 bye")
			return
		default:
			reply("502 command not implemented")
		}
	}
}

func addrArg(line string) string {
	start := strings.Index(line, "<")
	end := strings.LastIndex(line, ">")
	if start < 0 || end <= start {
		return ""
	}
	return line[start+1 : end]
}
