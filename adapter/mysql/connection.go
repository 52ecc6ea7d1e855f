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

package mysql

import (
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cloudplane/db"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

const defaultPort = 3306

// Config converts settings into a driver configuration for the primary
// host. Times are parsed into time.Time values in UTC.
func Config(settings db.Settings) (*gomysql.Config, error) {
	if settings.Database == "" {
		return nil, db.ErrMissingDatabaseName
	}

	cfg := gomysql.NewConfig()
	cfg.User = settings.User
	cfg.Passwd = settings.Password
	cfg.DBName = settings.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	if strings.HasPrefix(settings.Host, "/") {
		cfg.Net = "unix"
		cfg.Addr = settings.Host
	} else {
		cfg.Net = "tcp"
		cfg.Addr = hostPort(settings.Host, settings.Port)
	}

	if settings.UseSSL {
		cfg.TLSConfig = "true"
	}

	if settings.Params != "" {
		vv, err := url.ParseQuery(settings.Params)
		if err != nil {
			return nil, errors.Wrapf(db.ErrInvalidConnectionURL, "params %q: %v", settings.Params, err)
		}
		cfg.Params = make(map[string]string, len(vv))
		for k := range vv {
			cfg.Params[k] = vv.Get(k)
		}
	}

	return cfg, nil
}

// DSN formats settings as a driver data source name.
func DSN(settings db.Settings) (string, error) {
	resolved, err := settings.Resolve()
	if err != nil {
		return "", err
	}
	cfg, err := Config(resolved)
	if err != nil {
		return "", err
	}
	return cfg.FormatDSN(), nil
}

// Addrs lists the addresses connections are attempted on, primary first.
func Addrs(settings db.Settings) []string {
	cluster := settings.Cluster()
	addrs := make([]string, 0, len(cluster))
	for _, a := range cluster {
		if a.IsSocket() {
			addrs = append(addrs, a.Host)
			continue
		}
		addrs = append(addrs, hostPort(a.Host, int(a.Port)))
	}
	return addrs
}

func hostPort(host string, port int) string {
	if host == "" {
		host = "127.0.0.1"
	}
	if port <= 0 {
		port = defaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
