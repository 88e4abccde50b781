package query

import (
	"errors"
	"reflect"
	"testing"

	"github.com/querylite/querylite/query/compile"
	"github.com/querylite/querylite/query/expr"
)

func TestInsert(t *testing.T) {
	cmd := build(t, InsertInto(item(), "Name", "Count").Values("a", 1))
	want := `INSERT INTO "Item" ("Name", "Count") VALUES (@param1, @param2)`
	if cmd.Text != want {
		t.Errorf("text = %q, want %q", cmd.Text, want)
	}
	wantParams := []compile.Param{
		{Name: "param1", Value: "a"},
		{Name: "param2", Value: 1},
	}
	if !reflect.DeepEqual(cmd.Params, wantParams) {
		t.Errorf("params = %#v, want %#v", cmd.Params, wantParams)
	}
}

func TestInsertMultiRowReturning(t *testing.T) {
	cmd := build(t, InsertInto(item(), "Name", "Count").
		Values("a", 1).
		Values("b", 2).
		Returning("Id"))
	want := `INSERT INTO "Item" ("Name", "Count") VALUES (@param1, @param2), (@param3, @param4) RETURNING "Id"`
	if cmd.Text != want {
		t.Errorf("text = %q, want %q", cmd.Text, want)
	}
	wantParams := []compile.Param{
		{Name: "param1", Value: "a"},
		{Name: "param2", Value: 1},
		{Name: "param3", Value: "b"},
		{Name: "param4", Value: 2},
	}
	if !reflect.DeepEqual(cmd.Params, wantParams) {
		t.Errorf("params = %#v, want %#v", cmd.Params, wantParams)
	}
}

func TestInsertDuplicateColumnLastWins(t *testing.T) {
	cmd := build(t, InsertInto(item(), "Name", "Name").Values("first", "second"))
	want := `INSERT INTO "Item" ("Name") VALUES (@param1)`
	if cmd.Text != want {
		t.Errorf("text = %q, want %q", cmd.Text, want)
	}
	wantParams := []compile.Param{{Name: "param1", Value: "second"}}
	if !reflect.DeepEqual(cmd.Params, wantParams) {
		t.Errorf("params = %#v, want %#v", cmd.Params, wantParams)
	}
}

func TestInsertArityMismatch(t *testing.T) {
	b := InsertInto(item(), "Name", "Count").Values("only")
	if !errors.Is(b.Err(), ErrInvalidOperation) {
		t.Errorf("Err = %v, want ErrInvalidOperation", b.Err())
	}
}

func TestInsertWithoutRows(t *testing.T) {
	_, err := InsertInto(item(), "Name").Build()
	if !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("Build error = %v, want ErrInvalidOperation", err)
	}
}

func TestInsertUnknownColumn(t *testing.T) {
	b := InsertInto(item(), "Weight")
	if b.Err() == nil {
		t.Error("Err = nil, want lookup error")
	}
}

func TestInsertBuildStable(t *testing.T) {
	// Value parameters are assigned at Build, deterministically.
	b := InsertInto(item(), "Name").Values("a")
	first := build(t, b)
	second := build(t, b)
	if first.Text != second.Text || !reflect.DeepEqual(first.Params, second.Params) {
		t.Errorf("Build not stable: %q %#v vs %q %#v",
			first.Text, first.Params, second.Text, second.Params)
	}
}

func TestInsertSelect(t *testing.T) {
	src := From(item()).
		Select("Name", "Count").
		Where(expr.C("Count").Gt(0))
	cmd := build(t, From(archive()).InsertSelect([]string{"Name", "Count"}, src))
	want := `INSERT INTO "Archive" ("Name", "Count") SELECT "Name", "Count" FROM "Item" WHERE ("Count" > @param1)`
	if cmd.Text != want {
		t.Errorf("text = %q, want %q", cmd.Text, want)
	}
	wantParams := []compile.Param{{Name: "param1", Value: 0}}
	if !reflect.DeepEqual(cmd.Params, wantParams) {
		t.Errorf("params = %#v, want %#v", cmd.Params, wantParams)
	}
}

func TestInsertSelectSnapshotsSource(t *testing.T) {
	src := From(item()).Select("Name", "Count")
	b := From(archive()).InsertSelect([]string{"Name", "Count"}, src)
	before := build(t, b)

	src.Where(expr.C("Count").Gt(5))
	after := build(t, b)
	if before.Text != after.Text {
		t.Errorf("source mutation leaked into insert: %q -> %q", before.Text, after.Text)
	}
}

func TestInsertSelectRejectsDuplicates(t *testing.T) {
	src := From(item()).Select("Name")
	b := From(archive()).InsertSelect([]string{"Name", "Name"}, src)
	if !errors.Is(b.Err(), ErrInvalidOperation) {
		t.Errorf("Err = %v, want ErrInvalidOperation", b.Err())
	}
}

func TestInsertSelectRejectsNonQuerySource(t *testing.T) {
	src := DeleteFrom(item()).Where(expr.C("Count").Eq(0))
	b := From(archive()).InsertSelect([]string{"Name"}, src)
	if !errors.Is(b.Err(), ErrInvalidOperation) {
		t.Errorf("Err = %v, want ErrInvalidOperation", b.Err())
	}
}
