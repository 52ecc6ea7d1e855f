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

package sqlite

import (
	"net/url"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cloudplane/db"
	"github.com/pkg/errors"
)

const (
	connectionScheme = `file`
	memoryDatabase   = `:memory:`
)

// Default connection options, any of them can be overridden through
// Settings.Params.
var defaultOptions = map[string]string{
	"_busy_timeout": "10000",
	"_txlock":       "immediate",
}

// ConnectionURL implements a SQLite connection struct.
type ConnectionURL struct {
	Database string
	Options  map[string]string
}

// FromSettings builds a connection from resolved settings. Database is the
// file name, Params become URI options.
func FromSettings(settings db.Settings) (ConnectionURL, error) {
	c := ConnectionURL{Database: settings.Database, Options: map[string]string{}}
	if c.Database == "" {
		return c, db.ErrMissingDatabaseName
	}
	if settings.Params != "" {
		vv, err := url.ParseQuery(settings.Params)
		if err != nil {
			return c, errors.Wrapf(db.ErrInvalidConnectionURL, "params %q: %v", settings.Params, err)
		}
		for k := range vv {
			c.Options[k] = vv.Get(k)
		}
	}
	return c, nil
}

func (c ConnectionURL) String() (s string) {
	vv := url.Values{}

	if c.Database == "" {
		return ""
	}

	for k, v := range defaultOptions {
		vv.Set(k, v)
	}
	for k, v := range c.Options {
		vv.Set(k, v)
	}

	if c.Database == memoryDatabase {
		if vv.Get("cache") == "" {
			vv.Set("cache", "shared")
		}
		return connectionScheme + ":" + memoryDatabase + "?" + vv.Encode()
	}

	// Did the user provided a full database path?
	if !strings.HasPrefix(c.Database, "/") {
		c.Database, _ = filepath.Abs(c.Database)
		if runtime.GOOS == "windows" {
			c.Database = "/" + strings.Replace(c.Database, `\`, `/`, -1)
		}
	}

	u := url.URL{
		Scheme:   connectionScheme,
		Path:     c.Database,
		RawQuery: vv.Encode(),
	}

	return u.String()
}

// ParseURL parses s into a ConnectionURL struct.
func ParseURL(s string) (conn ConnectionURL, err error) {
	var u *url.URL

	if !strings.HasPrefix(s, connectionScheme+":") {
		return conn, errors.Wrapf(db.ErrInvalidConnectionURL, "expecting %s:// connection scheme", connectionScheme)
	}

	if u, err = url.Parse(s); err != nil {
		return conn, err
	}

	conn.Database = u.Host + u.Path
	if u.Opaque != "" {
		conn.Database = u.Opaque
	}
	conn.Options = map[string]string{}

	var vv url.Values

	if vv, err = url.ParseQuery(u.RawQuery); err != nil {
		return conn, err
	}

	for k := range vv {
		conn.Options[k] = vv.Get(k)
	}

	return conn, err
}
