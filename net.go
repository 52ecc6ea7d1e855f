// Copyright (c) 2012-present The upper.io/db authors. All rights reserved.
//
// Permission is hereby granted, free of charge, to any person obtaining
// a copy of this software and associated documentation files (the
// "Software"), to deal in the Software without restriction, including
// without limitation the rights to use, copy, modify, merge, publish,
// distribute, sublicense, and/or sell copies of the Software, and to
// permit persons to whom the Software is furnished to do so, subject to
// the following conditions:
//
// The above copyright notice and this permission notice shall be
// included in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
// MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
// LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
// OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
// WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package db

import (
	"net"
	"strconv"
	"strings"
)

// Address is one server of a cluster: a host name or IP with an optional
// port, or the path of a UNIX socket.
type Address struct {
	Host string
	Port uint
}

// IsSocket reports whether the address is a UNIX socket path.
func (a Address) IsSocket() bool {
	return strings.HasPrefix(a.Host, "/")
}

func (a Address) String() string {
	if a.Port == 0 || a.IsSocket() {
		return a.Host
	}
	return net.JoinHostPort(a.Host, strconv.FormatUint(uint64(a.Port), 10))
}

// ParseAddress parses "host", "host:port", "[ipv6]:port" or a socket path.
func ParseAddress(s string) Address {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "/") {
		return Address{Host: s}
	}
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return Address{Host: strings.Trim(s, "[]")}
	}
	p, _ := strconv.ParseUint(port, 10, 16)
	return Address{Host: host, Port: uint(p)}
}

// Cluster is an ordered list of servers. The first one is the primary, the
// others are failover candidates.
type Cluster []Address

// ParseCluster parses a comma separated list of addresses. A port given only
// on the last host ("h1,h2:5555") applies to every host without one.
func ParseCluster(s string) Cluster {
	var c Cluster
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c = append(c, ParseAddress(part))
	}
	if len(c) == 0 {
		return c
	}
	if shared := c[len(c)-1].Port; shared > 0 {
		for i := range c {
			if c[i].Port == 0 && !c[i].IsSocket() {
				c[i].Port = shared
			}
		}
	}
	return c
}

// Hosts returns the host names, or socket paths, without ports.
func (c Cluster) Hosts() []string {
	names := make([]string, 0, len(c))
	for _, a := range c {
		names = append(names, a.Host)
	}
	return names
}

// Port returns the first non-zero port of the cluster.
func (c Cluster) Port() uint {
	for _, a := range c {
		if a.Port > 0 {
			return a.Port
		}
	}
	return 0
}

func (c Cluster) String() string {
	parts := make([]string, 0, len(c))
	for _, a := range c {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, ",")
}
