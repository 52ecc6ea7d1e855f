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

package postgresql

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/cloudplane/db"
	"github.com/pkg/errors"
)

const (
	connectionScheme = `postgres`
	defaultPort      = 5432
)

// DSN formats resolved settings as a postgres:// URL. With multiHost set and
// HA enabled every host is listed, and target_session_attrs selects whether
// a read-only standby is acceptable.
func DSN(settings db.Settings, multiHost bool) (string, error) {
	if settings.Database == "" {
		return "", db.ErrMissingDatabaseName
	}

	ha := multiHost && settings.HA && len(settings.SecondaryHosts) > 0
	cluster := settings.Cluster()
	if !ha {
		cluster = cluster[:1]
	}
	hosts := make([]string, 0, len(cluster))
	for _, a := range cluster {
		hosts = append(hosts, hostPort(a.Host, int(a.Port)))
	}

	vv := url.Values{}
	if settings.Params != "" {
		params, err := url.ParseQuery(settings.Params)
		if err != nil {
			return "", errors.Wrapf(db.ErrInvalidConnectionURL, "params %q: %v", settings.Params, err)
		}
		vv = params
	}

	if vv.Get("sslmode") == "" {
		if settings.UseSSL {
			vv.Set("sslmode", "require")
		} else {
			vv.Set("sslmode", "disable")
		}
	}

	if ha {
		if settings.FailOverReadOnly {
			vv.Set("target_session_attrs", "any")
		} else {
			vv.Set("target_session_attrs", "read-write")
		}
		if settings.InitialTimeout > 0 && vv.Get("connect_timeout") == "" {
			vv.Set("connect_timeout", strconv.Itoa(settings.InitialTimeout))
		}
	}

	u := url.URL{
		Scheme:   connectionScheme,
		Host:     strings.Join(hosts, ","),
		Path:     "/" + settings.Database,
		RawQuery: vv.Encode(),
	}
	if settings.User != "" {
		if settings.Password != "" {
			u.User = url.UserPassword(settings.User, settings.Password)
		} else {
			u.User = url.User(settings.User)
		}
	}

	return u.String(), nil
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
