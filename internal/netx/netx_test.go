package netx

import (
	"net"
	"testing"

	"github.com/m-lab/go/rtx"
)

func dialSelf(t *testing.T) (*Conn, net.Conn) {
	t.Helper()
	l, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.ParseIP("127.0.0.1")})
	rtx.Must(err, "cannot listen")
	t.Cleanup(func() { l.Close() })

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := l.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	tcpConn, err := net.DialTCP("tcp", nil, l.Addr().(*net.TCPAddr))
	rtx.Must(err, "cannot dial")
	conn, err := FromTCPConn(tcpConn)
	rtx.Must(err, "cannot wrap conn")
	return conn, <-accepted
}

func TestConn_ByteCounters(t *testing.T) {
	conn, peer := dialSelf(t)
	defer conn.Close()
	defer peer.Close()

	msg := []byte("connection check")
	if _, err := conn.Write(msg); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	buf := make([]byte, len(msg))
	if _, err := peer.Read(buf); err != nil {
		t.Fatalf("peer read failed: %v", err)
	}
	if _, err := peer.Write(buf); err != nil {
		t.Fatalf("peer write failed: %v", err)
	}
	if _, err := conn.Read(buf); err != nil {
		t.Fatalf("read failed: %v", err)
	}

	read, written := conn.ByteCounters()
	if read != uint64(len(msg)) || written != uint64(len(msg)) {
		t.Errorf("ByteCounters() = %d/%d, want %d/%d", read, written, len(msg), len(msg))
	}
}

func TestConn_UUID(t *testing.T) {
	conn, peer := dialSelf(t)
	defer conn.Close()
	defer peer.Close()

	id, err := conn.UUID()
	if err != nil {
		t.Fatalf("UUID() failed: %v", err)
	}
	if id == "" {
		t.Errorf("UUID() returned an empty string")
	}
}

func TestConn_DialTime(t *testing.T) {
	conn, peer := dialSelf(t)
	defer conn.Close()
	defer peer.Close()

	if conn.DialTime().IsZero() {
		t.Errorf("DialTime() is zero")
	}
}

func TestToConnInfo(t *testing.T) {
	conn, peer := dialSelf(t)
	defer conn.Close()
	defer peer.Close()

	if ci := ToConnInfo(conn); ci == nil {
		t.Errorf("ToConnInfo() returned nil")
	}

	defer func() {
		if recover() == nil {
			t.Errorf("ToConnInfo() did not panic on a plain net.Conn")
		}
	}()
	ToConnInfo(peer)
}
