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

package sqlgen

import (
	"testing"

	"github.com/cloudplane/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quotedTemplate() *Template {
	t := NewTemplate(`"`)
	t.DollarPlaceholders = true
	t.ForUpdateLayout = `FOR UPDATE OF {{.Table}}`
	return t
}

func TestSelectClauseOrder(t *testing.T) {
	stmt := &Statement{
		Type:  Select,
		Table: Table{Name: "host"},
		Columns: []Column{
			{ColumnRef: ColumnRef{Table: "host", Name: "pod_id"}},
			{ColumnRef: ColumnRef{Table: "host", Name: "id", Func: db.FuncCount}, Alias: "total"},
		},
		Joins: []Join{
			{
				Type:  InnerJoin,
				Table: Table{Name: "cluster", Alias: "c"},
				On: NewGroup(And,
					&Pair{Left: ColumnRef{Table: "host", Name: "cluster_id"}, Right: ColumnRef{Table: "c", Name: "id"}},
					NewCompare(ColumnRef{Table: "c", Name: "state"}, db.OpEq, "Enabled"),
				),
			},
		},
		Where:   NewGroup(And, NewCompare(ColumnRef{Table: "host", Name: "status"}, db.OpEq, "Up")),
		GroupBy: []ColumnRef{{Table: "host", Name: "pod_id"}},
		Having:  NewCompare(ColumnRef{Table: "host", Name: "mem", Func: db.FuncSum}, db.OpGt, 1024),
		OrderBy: []SortColumn{{Column: ColumnRef{Table: "host", Name: "pod_id"}, Desc: true}},
		Limit:   10,
		Offset:  20,
	}

	sql, args, err := stmt.Compile(Default)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT host.pod_id, COUNT(host.id) AS total FROM host INNER JOIN cluster AS c ON host.cluster_id = c.id AND c.state = ? WHERE host.status = ? GROUP BY host.pod_id HAVING SUM(host.mem) > ? ORDER BY host.pod_id DESC LIMIT 10 OFFSET 20",
		sql,
	)
	assert.Equal(t, []interface{}{"Enabled", "Up", 1024}, args)

	sql, args, err = stmt.Compile(quotedTemplate())
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "host"."pod_id", COUNT("host"."id") AS "total" FROM "host" INNER JOIN "cluster" AS "c" ON "host"."cluster_id" = "c"."id" AND "c"."state" = $1 WHERE "host"."status" = $2 GROUP BY "host"."pod_id" HAVING SUM("host"."mem") > $3 ORDER BY "host"."pod_id" DESC LIMIT 10 OFFSET 20`,
		sql,
	)
	assert.Len(t, args, 3)
}

func TestSelectCached(t *testing.T) {
	tpl := NewTemplate("`")

	build := func(v interface{}) *Statement {
		return &Statement{
			Type:  Select,
			Table: Table{Name: "vm"},
			Where: NewCompare(ColumnRef{Table: "vm", Name: "name"}, db.OpLike, v),
		}
	}

	sql1, args1, err := build("a%").Compile(tpl)
	require.NoError(t, err)
	assert.Equal(t, 1, tpl.Len())

	sql2, args2, err := build("b%").Compile(tpl)
	require.NoError(t, err)
	assert.Equal(t, 1, tpl.Len())

	assert.Equal(t, "SELECT * FROM `vm` WHERE `vm`.`name` LIKE ?", sql1)
	assert.Equal(t, sql1, sql2)
	assert.Equal(t, []interface{}{"a%"}, args1)
	assert.Equal(t, []interface{}{"b%"}, args2)
}

func TestSelectForUpdate(t *testing.T) {
	stmt := &Statement{
		Type:          Select,
		Table:         Table{Name: "op_lock"},
		Where:         NewCompare(ColumnRef{Table: "op_lock", Name: "lock_key"}, db.OpEq, "x"),
		OrderByRandom: true,
		Limit:         1,
		ForUpdate:     true,
	}

	sql, _, err := stmt.Compile(quotedTemplate())
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "op_lock" WHERE "op_lock"."lock_key" = $1 ORDER BY RANDOM() LIMIT 1 FOR UPDATE OF "op_lock"`, sql)

	noLocks := NewTemplate("")
	noLocks.ForUpdateLayout = ""
	sql, _, err = stmt.Compile(noLocks)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM op_lock WHERE op_lock.lock_key = ? ORDER BY RANDOM() LIMIT 1`, sql)
}

func TestOffsetWithoutLimit(t *testing.T) {
	tpl := NewTemplate("`")
	tpl.NoLimit = "18446744073709551615"

	stmt := &Statement{Type: Select, Table: Table{Name: "vm"}, Offset: 5}
	sql, _, err := stmt.Compile(tpl)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `vm` LIMIT 18446744073709551615 OFFSET 5", sql)

	sql, _, err = stmt.Compile(Default)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM vm OFFSET 5", sql)
}

func TestCount(t *testing.T) {
	where := NewCompare(ColumnRef{Table: "vm", Name: "state"}, db.OpIn, []string{"Running", "Stopped"})

	stmt := &Statement{
		Type:    Count,
		Table:   Table{Name: "vm"},
		Where:   where,
		OrderBy: []SortColumn{{Column: ColumnRef{Table: "vm", Name: "id"}}},
		Limit:   5,
	}
	sql, args, err := stmt.Compile(Default)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) AS _t FROM vm WHERE vm.state IN (?, ?)", sql)
	assert.Equal(t, []interface{}{"Running", "Stopped"}, args)

	stmt.GroupBy = []ColumnRef{{Table: "vm", Name: "host_id"}}
	stmt.Having = NewCompare(ColumnRef{Table: "vm", Name: "id", Func: db.FuncCount}, db.OpGte, 2)
	sql, args, err = stmt.Compile(Default)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) AS _t FROM (SELECT * FROM vm WHERE vm.state IN (?, ?) GROUP BY vm.host_id HAVING COUNT(vm.id) >= ?) AS _q", sql)
	assert.Equal(t, []interface{}{"Running", "Stopped", 2}, args)
}

func TestInsertUpdateDelete(t *testing.T) {
	tpl := quotedTemplate()

	ins := &Statement{
		Type:      Insert,
		Table:     Table{Name: "vm"},
		Columns:   []Column{{ColumnRef: ColumnRef{Name: "name"}}, {ColumnRef: ColumnRef{Name: "state"}}},
		Values:    []interface{}{"i-1", "Running"},
		Returning: "id",
	}
	sql, args, err := ins.Compile(tpl)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "vm" ("name", "state") VALUES ($1, $2) RETURNING "id"`, sql)
	assert.Equal(t, []interface{}{"i-1", "Running"}, args)

	upd := &Statement{
		Type:  Update,
		Table: Table{Name: "vm"},
		Set:   []Assignment{{Column: "state", Value: "Stopped"}},
		Where: NewCompare(ColumnRef{Table: "vm", Name: "id"}, db.OpEq, int64(4)),
	}
	sql, args, err = upd.Compile(tpl)
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "vm" SET "state" = $1 WHERE "vm"."id" = $2`, sql)
	assert.Equal(t, []interface{}{"Stopped", int64(4)}, args)

	del := &Statement{
		Type:  Delete,
		Table: Table{Name: "vm"},
		Where: NewCompare(ColumnRef{Table: "vm", Name: "id"}, db.OpEq, int64(4)),
	}
	sql, args, err = del.Compile(tpl)
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "vm" WHERE "vm"."id" = $1`, sql)
	assert.Equal(t, []interface{}{int64(4)}, args)

	_, _, err = (&Statement{Table: Table{Name: "vm"}}).Compile(tpl)
	assert.Error(t, err)
}

func TestReplaceWithDollarSign(t *testing.T) {
	assert.Equal(t, "a = $1 AND b = $2", ReplaceWithDollarSign("a = ? AND b = ?"))
	assert.Equal(t, "a = '?' AND b = $1", ReplaceWithDollarSign("a = '?' AND b = ?"))
	assert.Equal(t, "no placeholders", ReplaceWithDollarSign("no placeholders"))
}
