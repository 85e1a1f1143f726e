// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package keepalive provides listeners that enable TCP keepalives and
// SO_REUSEPORT.
package keepalive

import (
	"net"
	"time"

	"github.com/pkg/errors"
	reuseport "github.com/vanillahsu/go_reuseport"
)

// Period is the keepalive period set on accepted connections.
const Period = 3 * time.Minute

// Listener returns a net.Listener that enables TCP keep-alive timeouts on
// accepted connections. It allows detection of dead TCP connections (e.g.
// closing laptop mid-session) to eventually go away. Listeners that are not
// TCP listeners are returned unchanged.
func Listener(l net.Listener) net.Listener {
	tl, ok := l.(*net.TCPListener)
	if !ok {
		return l
	}
	return keepaliveListener{tl}
}

type keepaliveListener struct {
	*net.TCPListener
}

func (l keepaliveListener) Accept() (net.Conn, error) {
	tc, err := l.AcceptTCP()
	if err != nil {
		return nil, err
	}
	tc.SetKeepAlive(true)
	tc.SetKeepAlivePeriod(Period)
	return tc, nil
}

// ReusableListen binds addr with SO_REUSEPORT set, so that several processes
// can share the listen address. The generic "tcp" network is narrowed to
// "tcp4" or "tcp6" based on the host part of addr.
func ReusableListen(network, addr string) (net.Listener, error) {
	proto, err := reusableProto(network, addr)
	if err != nil {
		return nil, err
	}
	return reuseport.NewReusablePortListener(proto, addr)
}

func reusableProto(network, addr string) (string, error) {
	switch network {
	case "tcp4", "tcp6":
		return network, nil
	case "tcp":
	default:
		return "", errors.Errorf("keepalive: unsupported network %q", network)
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return "", errors.Wrap(err, "keepalive")
	}
	if ip := net.ParseIP(host); ip != nil && ip.To4() == nil {
		return "tcp6", nil
	}
	return "tcp4", nil
}
