package query

import (
	"errors"
	"reflect"
	"testing"

	"github.com/querylite/querylite/query/compile"
	"github.com/querylite/querylite/query/expr"
)

func TestDelete(t *testing.T) {
	cmd := build(t, DeleteFrom(item()).Where(expr.C("Id").Eq(int64(9))))
	want := `DELETE FROM "Item" WHERE ("Id" = @param1)`
	if cmd.Text != want {
		t.Errorf("text = %q, want %q", cmd.Text, want)
	}
	wantParams := []compile.Param{{Name: "param1", Value: int64(9)}}
	if !reflect.DeepEqual(cmd.Params, wantParams) {
		t.Errorf("params = %#v, want %#v", cmd.Params, wantParams)
	}
}

func TestDeleteRefusesWithoutPredicate(t *testing.T) {
	_, err := DeleteFrom(item()).Build()
	if !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("Build error = %v, want ErrInvalidOperation", err)
	}
	var ie *InvalidOperationError
	if !errors.As(err, &ie) || ie.Mode != "Delete" {
		t.Errorf("error = %#v, want Mode=Delete", err)
	}
}

func TestDeleteWithSubquery(t *testing.T) {
	sub := From(tag()).Select("ItemId").Where(expr.C("Label").Eq("stale"))
	cmd := build(t, DeleteFrom(item()).WhereIn("Id", sub))
	want := `DELETE FROM "Item" WHERE ("Id" IN (SELECT "ItemId" FROM "Tag" WHERE ("Label" = @Innerparam1)))`
	if cmd.Text != want {
		t.Errorf("text = %q, want %q", cmd.Text, want)
	}
}
