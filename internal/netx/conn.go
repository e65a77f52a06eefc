// Package netx wraps the TCP connection dialed to a device agent so that the
// harness can report control-link health: byte counters, a flow UUID and the
// kernel's TCP_INFO snapshot where the platform supports it.
package netx

import (
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	guuid "github.com/google/uuid"
	"github.com/m-lab/go/rtx"
	"github.com/m-lab/ndt-server/tcpinfox"
	"github.com/m-lab/tcp-info/tcp"
	"github.com/m-lab/uuid"
)

// ConnInfo provides operations on a net.Conn's underlying file descriptor.
type ConnInfo interface {
	ByteCounters() (uint64, uint64)
	Info() (tcp.LinuxTCPInfo, error)
	DialTime() time.Time
	UUID() (string, error)
}

// ToConnInfo is a helper function to convert a net.Conn into a netx.ConnInfo.
// It panics if netConn does not contain a type supporting ConnInfo.
func ToConnInfo(netConn net.Conn) ConnInfo {
	switch t := netConn.(type) {
	case *Conn:
		return t
	case *tls.Conn:
		return t.NetConn().(*Conn)
	default:
		panic(fmt.Sprintf("unsupported connection type: %T", t))
	}
}

// Conn is an extended net.Conn that stores its dial time, a copy of the
// underlying socket's file descriptor, and counters for read/written bytes.
type Conn struct {
	net.Conn

	fp           *os.File
	dialTime     time.Time
	bytesRead    atomic.Uint64
	bytesWritten atomic.Uint64
}

// FromTCPConn wraps a dialed *net.TCPConn.
func FromTCPConn(tcpConn *net.TCPConn) (*Conn, error) {
	return fromTCPConn(tcpConn)
}

// Read reads from the underlying net.Conn and updates the read bytes counter.
func (c *Conn) Read(b []byte) (int, error) {
	n, err := c.Conn.Read(b)
	c.bytesRead.Add(uint64(n))
	return n, err
}

// Write writes to the underlying net.Conn and updates the written bytes
// counter.
func (c *Conn) Write(b []byte) (int, error) {
	n, err := c.Conn.Write(b)
	c.bytesWritten.Add(uint64(n))
	return n, err
}

// ByteCounters returns the read and written byte counters, in this order.
func (c *Conn) ByteCounters() (uint64, uint64) {
	return c.bytesRead.Load(), c.bytesWritten.Load()
}

// Close closes the underlying net.Conn and the duplicate file descriptor.
func (c *Conn) Close() error {
	return c.close()
}

// Info returns the TCPInfo struct associated with the underlying socket. It
// returns an error if TCP_INFO cannot be read on this platform.
func (c *Conn) Info() (tcp.LinuxTCPInfo, error) {
	if c.fp == nil {
		return tcp.LinuxTCPInfo{}, tcpinfox.ErrNoSupport
	}
	tcpInfo, err := tcpinfox.GetTCPInfo(c.fp)
	if err != nil {
		return tcp.LinuxTCPInfo{}, err
	}
	return *tcpInfo, nil
}

// DialTime returns this connection's dial time.
func (c *Conn) DialTime() time.Time {
	return c.dialTime
}

// UUID returns an M-Lab UUID. On platforms not supporting SO_COOKIE, it
// returns a google/uuid as a fallback. If the fallback fails, it panics.
func (c *Conn) UUID() (string, error) {
	if c.fp != nil {
		if id, err := uuid.FromFile(c.fp); err == nil {
			return id, nil
		}
	}
	// fallback: use google/uuid if the platform does not support SO_COOKIE.
	gid, err := guuid.NewUUID()
	// NOTE: this could only fail when guuid.GetTime() fails.
	rtx.Must(err, "unable to fallback to uuid")
	return gid.String(), nil
}
