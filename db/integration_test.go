//go:build integration

package db

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querylite/querylite/query"
	"github.com/querylite/querylite/query/expr"
)

// account exercises every storage shape at once: an auto key, a uuid,
// plain text and integer columns, a msgpack-blob map, a nullable
// pointer, and a timestamp.
type account struct {
	Id      int64          `db:"Id,pk,auto"`
	Key     uuid.UUID      `db:"Key,unique"`
	Name    string         `db:"Name,index"`
	Balance int            `db:"Balance"`
	Tags    map[string]int `db:"Tags,null"`
	Note    *string        `db:"Note"`
	Created time.Time      `db:"Created"`
}

type accountArchive struct {
	Id      int64  `db:"Id,pk"`
	Name    string `db:"Name"`
	Balance int    `db:"Balance"`
}

func openLive(t *testing.T, opts ...Option) *DB {
	t.Helper()
	d, err := OpenMemory(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func seedAccounts(t *testing.T, tbl *Table[account]) map[string]*account {
	t.Helper()
	rows := map[string]*account{}
	for name, balance := range map[string]int{
		"alice": 10, "bob": 150, "carol": 200, "dave": 50, "erin": 300,
	} {
		row := &account{
			Key:     uuid.New(),
			Name:    name,
			Balance: balance,
			Created: time.Now().UTC(),
		}
		require.NoError(t, tbl.Insert(context.Background(), row))
		rows[name] = row
	}
	return rows
}

func TestLiveCRUD(t *testing.T) {
	ctx := context.Background()
	d := openLive(t)
	tbl := MustTable[account](d)
	require.NoError(t, tbl.Create(ctx))

	created := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	row := account{
		Key:     uuid.New(),
		Name:    "alice",
		Balance: 100,
		Tags:    map[string]int{"vip": 1, "churn": 0},
		Note:    strptr("first"),
		Created: created,
	}
	require.NoError(t, tbl.Insert(ctx, &row))
	require.NotZero(t, row.Id)

	got, err := tbl.Get(ctx, row.Id)
	require.NoError(t, err)
	assert.Equal(t, row.Key, got.Key)
	assert.Equal(t, "alice", got.Name)
	assert.Equal(t, 100, got.Balance)
	assert.Equal(t, map[string]int{"vip": 1, "churn": 0}, got.Tags)
	require.NotNil(t, got.Note)
	assert.Equal(t, "first", *got.Note)
	assert.True(t, got.Created.Equal(created), "created = %v, want %v", got.Created, created)

	got.Balance = 250
	got.Note = nil
	require.NoError(t, tbl.Update(ctx, got))

	again, err := tbl.Get(ctx, row.Id)
	require.NoError(t, err)
	assert.Equal(t, 250, again.Balance)
	assert.Nil(t, again.Note)

	require.NoError(t, tbl.Delete(ctx, row.Id))
	_, err = tbl.Get(ctx, row.Id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, tbl.Delete(ctx, row.Id), ErrNotFound)
}

func TestLiveSave(t *testing.T) {
	ctx := context.Background()
	d := openLive(t)
	tbl := MustTable[account](d)
	require.NoError(t, tbl.Create(ctx))

	row := account{Key: uuid.New(), Name: "bob", Balance: 1, Created: time.Now().UTC()}
	require.NoError(t, tbl.Save(ctx, &row))
	require.NotZero(t, row.Id)

	row.Balance = 2
	require.NoError(t, tbl.Save(ctx, &row))

	n, err := tbl.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := tbl.Get(ctx, row.Id)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Balance)
}

func TestLiveQueryShapes(t *testing.T) {
	ctx := context.Background()
	d := openLive(t)
	tbl := MustTable[account](d)
	require.NoError(t, tbl.Create(ctx))
	seedAccounts(t, tbl)

	top, err := tbl.All(ctx, tbl.Query().
		Where(expr.C("Balance").Ge(100)).
		OrderByDesc("Balance").
		Take(2))
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "erin", top[0].Name)
	assert.Equal(t, "carol", top[1].Name)

	// Second page of two, balances ascending: 10, 50 | 150, 200 | 300.
	page, err := tbl.All(ctx, tbl.Query().OrderBy("Balance").Take(2).Skip(1))
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "bob", page[0].Name)
	assert.Equal(t, "carol", page[1].Name)

	rich := tbl.Query().Select("Id").Where(expr.C("Balance").Gt(100))
	names, err := tbl.All(ctx, tbl.Query().WhereIn("Id", rich).OrderBy("Name"))
	require.NoError(t, err)
	require.Len(t, names, 3)
	assert.Equal(t, "bob", names[0].Name)
	assert.Equal(t, "carol", names[1].Name)
	assert.Equal(t, "erin", names[2].Name)

	n, err := tbl.Count(ctx, tbl.Query().Where(expr.C("Balance").Gt(100)))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	none, err := tbl.All(ctx, tbl.Query().Where(expr.C("Name").StartsWith("z")))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLiveInsertSelect(t *testing.T) {
	ctx := context.Background()
	d := openLive(t)
	tbl := MustTable[account](d)
	arch := MustTable[accountArchive](d)
	require.NoError(t, tbl.Create(ctx))
	require.NoError(t, arch.Create(ctx))
	seedAccounts(t, tbl)

	src := tbl.Query().
		Select("Id", "Name", "Balance").
		Where(expr.C("Balance").Ge(150))
	cmd, err := query.From(arch.Meta()).
		InsertSelect([]string{"Id", "Name", "Balance"}, src).
		Build()
	require.NoError(t, err)

	n, err := d.Exec(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	rows, err := arch.All(ctx, arch.Query().OrderBy("Balance"))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "bob", rows[0].Name)
	assert.Equal(t, "erin", rows[2].Name)
}

func TestLiveUpdateExpression(t *testing.T) {
	ctx := context.Background()
	d := openLive(t)
	tbl := MustTable[account](d)
	require.NoError(t, tbl.Create(ctx))
	seedAccounts(t, tbl)

	cmd, err := query.UpdateTable(tbl.Meta()).
		SetExpr("Balance", expr.C("Balance").Add(10)).
		Where(expr.C("Balance").Lt(100)).
		Build()
	require.NoError(t, err)

	n, err := d.Exec(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	bumped, err := tbl.All(ctx, tbl.Query().Where(expr.C("Balance").Lt(100)).OrderBy("Balance"))
	require.NoError(t, err)
	require.Len(t, bumped, 2)
	assert.Equal(t, 20, bumped[0].Balance)
	assert.Equal(t, 60, bumped[1].Balance)
}

func TestLiveNestedTransactions(t *testing.T) {
	ctx := context.Background()
	d := openLive(t)
	tbl := MustTable[account](d)
	require.NoError(t, tbl.Create(ctx))

	outer, err := d.Begin(ctx)
	require.NoError(t, err)

	keep := account{Key: uuid.New(), Name: "keep", Created: time.Now().UTC()}
	require.NoError(t, tbl.WithTx(outer).Insert(ctx, &keep))

	inner, err := outer.Begin(ctx)
	require.NoError(t, err)
	drop := account{Key: uuid.New(), Name: "drop", Created: time.Now().UTC()}
	require.NoError(t, tbl.WithTx(inner).Insert(ctx, &drop))
	require.NoError(t, inner.Rollback())

	require.NoError(t, outer.Commit())

	rows, err := tbl.All(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "keep", rows[0].Name)
}

func TestLiveInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	d := openLive(t)
	tbl := MustTable[account](d)
	require.NoError(t, tbl.Create(ctx))

	boom := fmt.Errorf("refused")
	err := d.InTx(ctx, func(tx *Tx) error {
		row := account{Key: uuid.New(), Name: "ghost", Created: time.Now().UTC()}
		if err := tbl.WithTx(tx).Insert(ctx, &row); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := tbl.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

type ledgerV1 struct {
	Id   int64  `db:"Id,pk,auto"`
	Name string `db:"Name"`
}

func (ledgerV1) TableName() string { return "ledger" }

type ledgerV2 struct {
	Id      int64   `db:"Id,pk,auto"`
	Name    string  `db:"Name"`
	Balance int     `db:"Balance"`
	Note    *string `db:"Note"`
}

func (ledgerV2) TableName() string { return "ledger" }

func TestLiveMigrateAddsColumns(t *testing.T) {
	ctx := context.Background()
	d := openLive(t)

	v1 := MustTable[ledgerV1](d)
	require.NoError(t, v1.Migrate(ctx))
	old := ledgerV1{Name: "carried"}
	require.NoError(t, v1.Insert(ctx, &old))

	v2 := MustTable[ledgerV2](d)
	require.NoError(t, v2.Migrate(ctx))

	got, err := v2.Get(ctx, old.Id)
	require.NoError(t, err)
	assert.Equal(t, "carried", got.Name)
	assert.Zero(t, got.Balance)
	assert.Nil(t, got.Note)

	got.Balance = 75
	require.NoError(t, v2.Update(ctx, got))

	// A second migrate is a no-op.
	require.NoError(t, v2.Migrate(ctx))
}

// flag stores as "Y"/"N" text through a registered codec.
type flag bool

type device struct {
	Id      int64 `db:"Id,pk,auto"`
	Powered flag  `db:"Powered"`
}

func TestLiveCustomCodec(t *testing.T) {
	ctx := context.Background()
	d := openLive(t)
	d.Codecs().Register(flag(false), Codec{
		Encode: func(v any) (any, error) {
			if v.(flag) {
				return "Y", nil
			}
			return "N", nil
		},
		Decode: func(src any, dst reflect.Value) error {
			text, ok := src.(string)
			if !ok {
				b, bok := src.([]byte)
				if !bok {
					return fmt.Errorf("flag: cannot decode %T", src)
				}
				text = string(b)
			}
			dst.SetBool(text == "Y")
			return nil
		},
	})

	tbl := MustTable[device](d)
	require.NoError(t, tbl.Create(ctx))

	on := device{Powered: true}
	off := device{Powered: false}
	require.NoError(t, tbl.Insert(ctx, &on))
	require.NoError(t, tbl.Insert(ctx, &off))

	gotOn, err := tbl.Get(ctx, on.Id)
	require.NoError(t, err)
	assert.True(t, bool(gotOn.Powered))

	gotOff, err := tbl.Get(ctx, off.Id)
	require.NoError(t, err)
	assert.False(t, bool(gotOff.Powered))
}
