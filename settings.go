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
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Default values for the high availability parameters appended to the
// connection address.
const (
	DefaultSecondsBeforeRetrySource = 3600
	DefaultQueriesBeforeRetrySource = 5000
	DefaultInitialTimeout           = 3600
)

// Settings holds database connection and authentication data. Not all fields
// are mandatory, if any field is skipped, the database adapter will either try
// to use database defaults or return an error.
//
// Example:
//
//	db.Settings{
//		Driver:   "mysql",
//		Host:     "127.0.0.1",
//		Port:     3306,
//		Database: "cloud",
//		User:     "cloud",
//		Password: "secret",
//	}
type Settings struct {
	// Driver is the scheme of the connection address and the name of the
	// adapter used to open it.
	Driver string
	// Database server hostname or IP.
	Host string
	// SecondaryHosts are failover servers, used only when HA is set.
	SecondaryHosts []string
	// Database server port. If not provided, the default database port is
	// tried.
	Port int
	// Name of the database. SQLite uses it as a filename.
	Database string
	// Username for authentication, if required.
	User string
	// Password for authentication, if required.
	Password string
	// Params are appended verbatim to the query string ("a=1&b=2").
	Params string

	AutoReconnect bool
	UseSSL        bool

	// HA enables failover across Host and SecondaryHosts.
	HA                       bool
	LoadBalanceStrategy      string
	FailOverReadOnly         bool
	SecondsBeforeRetrySource int
	QueriesBeforeRetrySource int
	InitialTimeout           int

	// URL, when set, overrides every other addressing field.
	URL string

	// Options holds adapter specific settings that are not part of the
	// connection address, like the preferred driver.
	Options map[string]string
}

// Option returns an adapter specific option.
func (s Settings) Option(name string) (string, bool) {
	if s.Options == nil {
		return "", false
	}
	v, ok := s.Options[name]
	return v, ok
}

// Cluster returns the primary host and, when HA is enabled, the secondary
// hosts, all with the configured port.
func (s Settings) Cluster() Cluster {
	c := Cluster{{Host: s.Host, Port: uint(s.Port)}}
	if s.HA {
		for _, h := range s.SecondaryHosts {
			c = append(c, Address{Host: h, Port: uint(s.Port)})
		}
	}
	return c
}

func (s Settings) hostList() string {
	hosts := []string{s.Host}
	if s.HA {
		hosts = append(hosts, s.SecondaryHosts...)
	}
	return strings.Join(hosts, ",")
}

// String builds the connection address:
//
//	driver://host[,secondary]:port/name?autoReconnect=...&params[&useSSL=true][&ha params][&loadBalanceStrategy=s]
//
// An explicit URL is returned unchanged.
func (s Settings) String() string {
	if s.URL != "" {
		return s.URL
	}

	var b strings.Builder

	b.WriteString(s.Driver)
	b.WriteString("://")
	b.WriteString(s.hostList())
	if s.Port > 0 {
		b.WriteString(":")
		b.WriteString(strconv.Itoa(s.Port))
	}
	b.WriteString("/")
	b.WriteString(s.Database)

	b.WriteString("?autoReconnect=")
	b.WriteString(strconv.FormatBool(s.AutoReconnect))

	if s.Params != "" {
		b.WriteString("&")
		b.WriteString(strings.TrimPrefix(s.Params, "&"))
	}

	if s.UseSSL {
		b.WriteString("&useSSL=true")
	}

	if s.HA {
		fmt.Fprintf(&b, "&failOverReadOnly=%t", s.FailOverReadOnly)
		fmt.Fprintf(&b, "&secondsBeforeRetrySource=%d", orDefault(s.SecondsBeforeRetrySource, DefaultSecondsBeforeRetrySource))
		fmt.Fprintf(&b, "&queriesBeforeRetrySource=%d", orDefault(s.QueriesBeforeRetrySource, DefaultQueriesBeforeRetrySource))
		fmt.Fprintf(&b, "&initialTimeout=%d", orDefault(s.InitialTimeout, DefaultInitialTimeout))
		if s.LoadBalanceStrategy != "" {
			b.WriteString("&loadBalanceStrategy=")
			b.WriteString(s.LoadBalanceStrategy)
		}
	}

	return b.String()
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

var knownParams = map[string]bool{
	"autoReconnect":            true,
	"useSSL":                   true,
	"failOverReadOnly":         true,
	"secondsBeforeRetrySource": true,
	"queriesBeforeRetrySource": true,
	"initialTimeout":           true,
	"loadBalanceStrategy":      true,
}

// ParseURL parses a connection address built by Settings.String. Parameters
// that are not part of the addressing scheme are kept in Params, in their
// original order.
func ParseURL(s string) (Settings, error) {
	var settings Settings

	scheme, rest, ok := strings.Cut(s, "://")
	if !ok || scheme == "" {
		return settings, errors.Wrapf(ErrInvalidConnectionURL, "%q has no driver prefix", s)
	}
	settings.Driver = scheme

	rest, query, _ := strings.Cut(rest, "?")

	authority, name, _ := strings.Cut(rest, "/")
	settings.Database = name

	if userinfo, hosts, found := strings.Cut(authority, "@"); found {
		user, pass, _ := strings.Cut(userinfo, ":")
		settings.User, _ = url.PathUnescape(user)
		settings.Password, _ = url.PathUnescape(pass)
		authority = hosts
	}

	if authority != "" {
		cluster := ParseCluster(authority)
		names := cluster.Hosts()
		if len(names) > 0 {
			settings.Host = names[0]
			settings.SecondaryHosts = names[1:]
		}
		settings.Port = int(cluster.Port())
	}

	var extra []string
	for _, kv := range strings.Split(query, "&") {
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		if !knownParams[k] {
			extra = append(extra, kv)
			continue
		}
		switch k {
		case "autoReconnect":
			settings.AutoReconnect, _ = strconv.ParseBool(v)
		case "useSSL":
			settings.UseSSL, _ = strconv.ParseBool(v)
		case "failOverReadOnly":
			settings.HA = true
			settings.FailOverReadOnly, _ = strconv.ParseBool(v)
		case "secondsBeforeRetrySource":
			settings.HA = true
			settings.SecondsBeforeRetrySource, _ = strconv.Atoi(v)
		case "queriesBeforeRetrySource":
			settings.HA = true
			settings.QueriesBeforeRetrySource, _ = strconv.Atoi(v)
		case "initialTimeout":
			settings.HA = true
			settings.InitialTimeout, _ = strconv.Atoi(v)
		case "loadBalanceStrategy":
			settings.HA = true
			settings.LoadBalanceStrategy = v
		}
	}
	if len(settings.SecondaryHosts) > 0 {
		settings.HA = true
	}
	settings.Params = strings.Join(extra, "&")

	return settings, nil
}

// Resolve returns the addressing fields of s. When an explicit URL is set it
// is parsed and takes precedence over every addressing field. Credentials,
// failover knobs and Params the URL leaves empty are taken from s; Options
// are always kept.
func (s Settings) Resolve() (Settings, error) {
	if s.URL == "" {
		return s, nil
	}
	parsed, err := ParseURL(s.URL)
	if err != nil {
		return s, err
	}
	if parsed.User == "" {
		parsed.User, parsed.Password = s.User, s.Password
	}
	if parsed.Params == "" {
		parsed.Params = s.Params
	}
	if parsed.LoadBalanceStrategy == "" {
		parsed.LoadBalanceStrategy = s.LoadBalanceStrategy
	}
	if parsed.SecondsBeforeRetrySource == 0 {
		parsed.SecondsBeforeRetrySource = s.SecondsBeforeRetrySource
	}
	if parsed.QueriesBeforeRetrySource == 0 {
		parsed.QueriesBeforeRetrySource = s.QueriesBeforeRetrySource
	}
	if parsed.InitialTimeout == 0 {
		parsed.InitialTimeout = s.InitialTimeout
	}
	parsed.AutoReconnect = parsed.AutoReconnect || s.AutoReconnect
	parsed.UseSSL = parsed.UseSSL || s.UseSSL
	parsed.FailOverReadOnly = parsed.FailOverReadOnly || s.FailOverReadOnly
	parsed.HA = parsed.HA || s.HA
	parsed.Options = s.Options
	return parsed, nil
}
