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

package dao_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/cloudplane/db"
	"github.com/cloudplane/db/dao"
	"github.com/cloudplane/db/encryption"
	"github.com/cloudplane/db/internal/testsuite"
	"github.com/cloudplane/db/search"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type DAOTestSuite struct {
	testsuite.Suite

	ctx      context.Context
	hosts    *dao.DAO[Host]
	clusters *dao.DAO[Cluster]
}

func (s *DAOTestSuite) BeforeTest(suiteName, testName string) {
	s.Suite.BeforeTest(suiteName, testName)

	cipher, err := encryption.NewAESCipher([]byte("test"), []byte("salt"))
	s.Require().NoError(err)

	s.ctx = context.Background()
	s.hosts = dao.New(hosts, s.Manager(), dao.WithCipher(cipher))
	s.clusters = dao.New(clusters, s.Manager())
}

func (s *DAOTestSuite) persistHost(name string, podID int64, status string, memory int64, clusterID *int64) *Host {
	h, err := s.hosts.Persist(s.ctx, &Host{
		Name:      name,
		PodID:     podID,
		Status:    status,
		Memory:    memory,
		ClusterID: clusterID,
	})
	s.Require().NoError(err)
	return h
}

func (s *DAOTestSuite) TestPersistFindRemoveExpunge() {
	h, err := s.hosts.Persist(s.ctx, &Host{
		Name:     "h1",
		PodID:    1,
		Status:   "Up",
		Memory:   1024,
		Password: strPtr("secret"),
	})
	s.Require().NoError(err)
	s.NotZero(h.ID)
	s.NotEmpty(h.UUID)
	s.False(h.Created.IsZero())

	found, err := s.hosts.FindByID(s.ctx, h.ID)
	s.Require().NoError(err)
	s.Equal(h.UUID, found.UUID)
	s.Equal("h1", found.Name)
	s.EqualValues(1024, found.Memory)
	s.Nil(found.ClusterID)
	s.Nil(found.Removed)
	s.Require().NotNil(found.Password)
	s.Equal("secret", *found.Password)
	s.WithinDuration(h.Created, found.Created, time.Second)
	s.Equal(db.Active, db.LifecycleOf(found.Removed))

	var stored string
	s.Require().NoError(s.Manager().DB().QueryRow(`SELECT password FROM host WHERE id = ?`, h.ID).Scan(&stored))
	s.NotEqual("secret", stored)

	byUUID, err := s.hosts.FindByUUID(s.ctx, h.UUID)
	s.Require().NoError(err)
	s.Equal(h.ID, byUUID.ID)

	ok, err := s.hosts.Remove(s.ctx, h.ID)
	s.Require().NoError(err)
	s.True(ok)

	_, err = s.hosts.FindByID(s.ctx, h.ID)
	s.True(db.IsNotFound(err))

	removed, err := s.hosts.FindByIDIncludingRemoved(s.ctx, h.ID)
	s.Require().NoError(err)
	s.Require().NotNil(removed.Removed)
	s.Equal(db.Removed, db.LifecycleOf(removed.Removed))

	ok, err = s.hosts.Remove(s.ctx, h.ID)
	s.Require().NoError(err)
	s.False(ok, "removing twice changes nothing")

	ok, err = s.hosts.Expunge(s.ctx, h.ID)
	s.Require().NoError(err)
	s.True(ok)

	_, err = s.hosts.FindByIDIncludingRemoved(s.ctx, h.ID)
	s.True(db.IsNotFound(err))

	ok, err = s.hosts.Expunge(s.ctx, h.ID)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *DAOTestSuite) TestRemoveWithoutSoftDelete() {
	c, err := s.clusters.Persist(s.ctx, &Cluster{Name: "c1", PodID: 1, AllocationState: "Enabled"})
	s.Require().NoError(err)

	ok, err := s.clusters.Remove(s.ctx, c.ID)
	s.Require().NoError(err)
	s.True(ok)

	var n int
	s.Require().NoError(s.Manager().DB().QueryRow(`SELECT COUNT(*) FROM cluster`).Scan(&n))
	s.Zero(n)
}

func (s *DAOTestSuite) TestPersistDuplicate() {
	h := s.persistHost("h1", 1, "Up", 1, nil)

	_, err := s.hosts.Persist(s.ctx, &Host{UUID: h.UUID, Name: "h2"})
	s.Require().Error(err)
	s.True(db.IsAlreadyExists(err))

	var exists *db.EntityExistsError
	s.Require().True(errors.As(err, &exists))
	s.Equal("host", exists.Table)

	_, err = s.clusters.Persist(s.ctx, &Cluster{Name: "c1"})
	s.Require().NoError(err)
	_, err = s.clusters.Persist(s.ctx, &Cluster{Name: "c1"})
	s.True(db.IsAlreadyExists(err))
}

func (s *DAOTestSuite) TestUpdate() {
	h := s.persistHost("h1", 1, "Up", 1024, nil)
	created := h.Created

	h.Name = "h1-renamed"
	h.Memory = 2048
	h.ClusterID = int64Ptr(7)
	h.Created = time.Time{}

	ok, err := s.hosts.Update(s.ctx, h.ID, h)
	s.Require().NoError(err)
	s.True(ok)

	found, err := s.hosts.FindByID(s.ctx, h.ID)
	s.Require().NoError(err)
	s.Equal("h1-renamed", found.Name)
	s.EqualValues(2048, found.Memory)
	s.Require().NotNil(found.ClusterID)
	s.EqualValues(7, *found.ClusterID)
	s.WithinDuration(created, found.Created, time.Second, "created is not updatable")

	ok, err = s.hosts.Update(s.ctx, h.ID+100, h)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *DAOTestSuite) TestListAndSearchAndCount() {
	s.persistHost("h3", 1, "Up", 300, nil)
	s.persistHost("h1", 1, "Up", 100, nil)
	s.persistHost("h2", 1, "Maintenance", 200, nil)
	s.persistHost("h4", 1, "Down", 400, nil)
	s.persistHost("h5", 2, "Up", 500, nil)

	sb := s.hosts.CreateSearchBuilder().
		And("pod", hosts.Attr("podId"), db.OpEq).
		And("status", hosts.Attr("status"), db.OpIn).
		Done()

	sc := sb.Create().
		SetParameters("pod", 1).
		SetParameters("status", []string{"Up", "Maintenance"})

	list, err := s.hosts.ListBy(s.ctx, sc, search.NewFilter(hosts.Attr("name"), true, 0, 2))
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("h1", list[0].Name)
	s.Equal("h2", list[1].Name)

	page, total, err := s.hosts.SearchAndCount(s.ctx, sc, search.NewFilter(hosts.Attr("memory"), false, 1, 1))
	s.Require().NoError(err)
	s.EqualValues(3, total)
	s.Require().Len(page, 1)
	s.Equal("h2", page[0].Name)

	one, err := s.hosts.FindOneBy(s.ctx, sb.Create().SetParameters("pod", 2))
	s.Require().NoError(err)
	s.Equal("h5", one.Name)

	_, err = s.hosts.FindOneBy(s.ctx, sb.Create().SetParameters("pod", 3))
	s.True(db.IsNotFound(err))
}

func (s *DAOTestSuite) TestSoftDeleteFilter() {
	h1 := s.persistHost("h1", 1, "Up", 100, nil)
	s.persistHost("h2", 1, "Up", 200, nil)

	ok, err := s.hosts.Remove(s.ctx, h1.ID)
	s.Require().NoError(err)
	s.True(ok)

	all, err := s.hosts.ListAll(s.ctx, nil)
	s.Require().NoError(err)
	s.Len(all, 1)

	sc := s.hosts.CreateSearchBuilder().
		And("name", hosts.Attr("name"), db.OpEq).
		Create().
		SetParameters("name", "h1")

	list, err := s.hosts.ListBy(s.ctx, sc, nil)
	s.Require().NoError(err)
	s.Empty(list)

	list, err = s.hosts.ListIncludingRemovedBy(s.ctx, sc, nil)
	s.Require().NoError(err)
	s.Len(list, 1)

	found, err := s.hosts.FindOneIncludingRemovedBy(s.ctx, sc)
	s.Require().NoError(err)
	s.Equal(h1.ID, found.ID)

	n, err := s.hosts.Count(s.ctx, nil)
	s.Require().NoError(err)
	s.EqualValues(1, n)
}

func (s *DAOTestSuite) TestJoinsAndRemoveBy() {
	enabled, err := s.clusters.Persist(s.ctx, &Cluster{Name: "c1", PodID: 1, AllocationState: "Enabled"})
	s.Require().NoError(err)
	disabled, err := s.clusters.Persist(s.ctx, &Cluster{Name: "c2", PodID: 1, AllocationState: "Disabled"})
	s.Require().NoError(err)

	s.persistHost("h1", 1, "Up", 100, &enabled.ID)
	s.persistHost("h2", 1, "Up", 100, &disabled.ID)
	s.persistHost("h3", 1, "Down", 100, &disabled.ID)
	s.persistHost("h4", 1, "Up", 100, nil)

	clusterSB := s.clusters.CreateSearchBuilder().
		And("state", clusters.Attr("allocationState"), db.OpEq)

	sb := s.hosts.CreateSearchBuilder().
		And("status", hosts.Attr("status"), db.OpEq).
		Join("cluster", clusterSB, hosts.Attr("clusterId"), clusters.Attr("id"), search.Inner).
		Done()

	sc := sb.Create().SetJoinParameters("cluster", "state", "Disabled")

	list, err := s.hosts.ListBy(s.ctx, sc, search.NewFilter(hosts.Attr("name"), true, 0, 0))
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("h2", list[0].Name)
	s.Equal("h3", list[1].Name)

	n, err := s.hosts.Count(s.ctx, sc)
	s.Require().NoError(err)
	s.EqualValues(2, n)

	sc.SetParameters("status", "Up")
	removed, err := s.hosts.RemoveBy(s.ctx, sc)
	s.Require().NoError(err)
	s.EqualValues(1, removed)

	all, err := s.hosts.ListAll(s.ctx, search.NewFilter(hosts.Attr("name"), true, 0, 0))
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal([]string{"h1", "h3", "h4"}, []string{all[0].Name, all[1].Name, all[2].Name})

	expunged, err := s.hosts.ExpungeBy(s.ctx, sb.Create().SetParameters("status", "Down"))
	s.Require().NoError(err)
	s.EqualValues(1, expunged)

	including, err := s.hosts.ListIncludingRemovedBy(s.ctx, nil, nil)
	s.Require().NoError(err)
	s.Len(including, 3)
}

func (s *DAOTestSuite) TestDistinctJoinCount() {
	c1, err := s.clusters.Persist(s.ctx, &Cluster{Name: "c1", PodID: 1, AllocationState: "Enabled"})
	s.Require().NoError(err)
	c2, err := s.clusters.Persist(s.ctx, &Cluster{Name: "c2", PodID: 1, AllocationState: "Enabled"})
	s.Require().NoError(err)

	s.persistHost("h1", 1, "Up", 100, &c1.ID)
	s.persistHost("h2", 1, "Up", 100, &c1.ID)
	s.persistHost("h3", 1, "Up", 100, &c1.ID)
	s.persistHost("h4", 1, "Down", 100, &c2.ID)

	hostSB := s.hosts.CreateSearchBuilder().
		And("status", hosts.Attr("status"), db.OpEq)

	sb := s.clusters.CreateSearchBuilder().
		And("pod", clusters.Attr("podId"), db.OpEq).
		Join("h", hostSB, clusters.Attr("id"), hosts.Attr("clusterId"), search.Inner).
		Distinct().
		Done()

	sc := sb.Create().
		SetParameters("pod", 1).
		SetJoinParameters("h", "status", "Up")

	list, total, err := s.clusters.SearchAndCount(s.ctx, sc, nil)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("c1", list[0].Name)
	s.EqualValues(len(list), total)

	list, total, err = s.clusters.SearchAndCount(s.ctx, sb.Create().SetParameters("pod", 1), search.Page(0, 1))
	s.Require().NoError(err)
	s.Len(list, 1)
	s.EqualValues(2, total)
}

func (s *DAOTestSuite) TestGroupByAndCustomSearch() {
	s.persistHost("h1", 1, "Up", 100, nil)
	s.persistHost("h2", 1, "Up", 200, nil)
	s.persistHost("h3", 2, "Up", 50, nil)
	s.persistHost("h4", 3, "Up", 1000, nil)
	s.persistHost("h5", 3, "Down", 1000, nil)

	sb := s.hosts.CreateSearchBuilder().
		SelectFields(hosts.Attr("podId")).
		Select("total", db.FuncSum, hosts.Attr("memory")).
		And("status", hosts.Attr("status"), db.OpEq).
		GroupBy(hosts.Attr("podId")).
		Having(db.FuncSum, hosts.Attr("memory"), db.OpGt, 100).
		Done()

	sc := sb.Create().SetParameters("status", "Up")

	type podMemory struct {
		PodID int64
		Total int64
	}

	var rows []podMemory
	err := s.hosts.CustomSearch(s.ctx, sc, search.NewFilter(hosts.Attr("podId"), true, 0, 0), func(r *sql.Rows) error {
		var pm podMemory
		if err := r.Scan(&pm.PodID, &pm.Total); err != nil {
			return err
		}
		rows = append(rows, pm)
		return nil
	})
	s.Require().NoError(err)
	s.Equal([]podMemory{{PodID: 1, Total: 300}, {PodID: 3, Total: 1000}}, rows)

	n, err := s.hosts.Count(s.ctx, sc)
	s.Require().NoError(err)
	s.EqualValues(2, n)

	sc.SetGroupByValues(10)
	n, err = s.hosts.Count(s.ctx, sc)
	s.Require().NoError(err)
	s.EqualValues(3, n)

	errStop := errors.New("stop")
	err = s.hosts.CustomSearch(s.ctx, sc, nil, func(*sql.Rows) error {
		return errStop
	})
	s.Equal(errStop, err)
}

func (s *DAOTestSuite) TestRowLocks() {
	h := s.persistHost("h1", 1, "Up", 100, nil)
	s.persistHost("h2", 1, "Up", 100, nil)

	sc := s.hosts.CreateSearchBuilder().
		And("pod", hosts.Attr("podId"), db.OpEq).
		Create().
		SetParameters("pod", 1)

	_, err := s.hosts.LockRow(s.ctx, sc, true)
	s.True(errors.Is(err, db.ErrNotInTransaction))

	_, err = s.hosts.AcquireInLockTable(s.ctx, h.ID)
	s.True(errors.Is(err, db.ErrNotInTransaction))

	err = s.Manager().Txn(s.ctx, func(ctx context.Context) error {
		locked, err := s.hosts.LockRow(ctx, sc, true)
		s.Require().NoError(err)
		s.EqualValues(1, locked.PodID)

		random, err := s.hosts.LockOneRandomRow(ctx, sc, true)
		s.Require().NoError(err)
		s.Contains([]string{"h1", "h2"}, random.Name)

		byID, err := s.hosts.AcquireInLockTable(ctx, h.ID)
		s.Require().NoError(err)
		s.Equal(h.UUID, byID.UUID)

		_, err = s.hosts.AcquireInLockTable(ctx, h.ID+100)
		s.True(db.IsNotFound(err))

		_, err = s.hosts.LockRow(ctx, sc.SetParameters("pod", 9), false)
		s.True(db.IsNotFound(err))
		return nil
	})
	s.Require().NoError(err)
}

func (s *DAOTestSuite) TestRollbackDiscardsWrites() {
	errAbort := errors.New("abort")

	var id int64
	err := s.Manager().Txn(s.ctx, func(ctx context.Context) error {
		h, err := s.hosts.Persist(ctx, &Host{Name: "h1"})
		s.Require().NoError(err)
		id = h.ID

		_, err = s.hosts.FindByID(ctx, id)
		s.Require().NoError(err)
		return errAbort
	})
	s.Equal(errAbort, err)

	_, err = s.hosts.FindByID(s.ctx, id)
	s.True(db.IsNotFound(err))
}

func (s *DAOTestSuite) TestUnboundRequiredCondition() {
	sc := s.hosts.CreateSearchBuilder().
		And("name", hosts.Attr("name"), db.OpEq).
		Require("name").
		Create()

	_, err := s.hosts.ListBy(s.ctx, sc, nil)
	s.True(errors.Is(err, db.ErrUnboundCondition))
}

func TestDAO(t *testing.T) {
	suite.Run(t, &DAOTestSuite{
		Suite: testsuite.Suite{
			Helper: testsuite.NewSQLite(testsuite.HostSchema, testsuite.ClusterSchema),
		},
	})
}

func TestNewRequiresCipher(t *testing.T) {
	assert.PanicsWithError(t, "Host.password: encrypted attribute without a configured cipher", func() {
		dao.New(hosts, nil)
	})
}
