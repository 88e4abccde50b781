package schema

import (
	"database/sql"
	"errors"
	"testing"
	"time"
)

type Item struct {
	Id    int64   `db:"Id,pk,auto"`
	Name  *string `db:"Name"`
	Count int     `db:"Count"`
}

type Account struct {
	ID        int64  `db:"id,pk,auto"`
	Email     string `db:"email,unique"`
	Nickname  sql.NullString
	CreatedAt time.Time `db:"created_at,index"`
	Secret    string    `db:"-"`
	internal  int
}

type timestamps struct {
	CreatedAt time.Time `db:"CreatedAt"`
	UpdatedAt time.Time `db:"UpdatedAt"`
}

type Post struct {
	Id    int64 `db:"Id,pk,auto"`
	Title string
	timestamps
}

type renamed struct {
	Id int64 `db:"Id,pk"`
}

func (renamed) TableName() string { return "legacy_items" }

func TestMapColumnsInDeclarationOrder(t *testing.T) {
	tbl, err := Map(Item{})
	if err != nil {
		t.Fatalf("Map(Item{}) returned error: %v", err)
	}
	if tbl.Name != "Item" {
		t.Errorf("table name = %q, want %q", tbl.Name, "Item")
	}
	expected := []string{"Id", "Name", "Count"}
	names := tbl.ColumnNames()
	if len(names) != len(expected) {
		t.Fatalf("column count = %d, want %d", len(names), len(expected))
	}
	for i, name := range expected {
		if names[i] != name {
			t.Errorf("column[%d] = %q, want %q", i, names[i], name)
		}
	}
}

func TestMapFlags(t *testing.T) {
	tbl := MustMap(Item{})

	id, err := tbl.Column("Id")
	if err != nil {
		t.Fatalf("Column(Id) returned error: %v", err)
	}
	if !id.PrimaryKey || !id.AutoIncrement {
		t.Errorf("Id flags = pk:%v auto:%v, want pk:true auto:true", id.PrimaryKey, id.AutoIncrement)
	}
	if id.Type != IntegerType {
		t.Errorf("Id type = %q, want %q", id.Type, IntegerType)
	}

	name, _ := tbl.Column("Name")
	if name.NotNull {
		t.Errorf("pointer member Name should be nullable")
	}
	if name.Type != TextType {
		t.Errorf("Name type = %q, want %q", name.Type, TextType)
	}

	count, _ := tbl.Column("Count")
	if !count.NotNull {
		t.Errorf("value member Count should be NOT NULL")
	}
}

func TestMapIgnoredAndUnexported(t *testing.T) {
	tbl := MustMap(Account{})
	if _, err := tbl.Column("Secret"); err == nil {
		t.Fatalf("ignored member Secret should have no column")
	}
	if _, err := tbl.Column("internal"); err == nil {
		t.Fatalf("unexported member should have no column")
	}
	// Untagged exported fields map under their own name.
	if _, err := tbl.Column("Nickname"); err != nil {
		t.Errorf("untagged member Nickname should map: %v", err)
	}
}

func TestLookupError(t *testing.T) {
	tbl := MustMap(Item{})
	_, err := tbl.Column("Missing")
	if err == nil {
		t.Fatal("expected LookupError for unknown member")
	}
	if !errors.Is(err, ErrNoColumn) {
		t.Errorf("errors.Is(err, ErrNoColumn) = false, want true")
	}
	var le *LookupError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LookupError, got %T", err)
	}
	if le.Table != "Item" || le.Member != "Missing" {
		t.Errorf("LookupError = %s.%s, want Item.Missing", le.Table, le.Member)
	}
}

func TestMapCachesPerType(t *testing.T) {
	a := MustMap(Item{})
	b := MustMap(&Item{})
	if a != b {
		t.Errorf("Map should return the cached table for the same type")
	}
	snake := MustMap(Item{}, WithSnakeCase())
	if snake == a {
		t.Errorf("snake_case mapping should be cached separately")
	}
}

func TestMapSnakeCase(t *testing.T) {
	tbl := MustMap(Post{}, WithSnakeCase())
	if tbl.Name != "post" {
		t.Errorf("table name = %q, want %q", tbl.Name, "post")
	}
	title, err := tbl.Column("Title")
	if err != nil {
		t.Fatalf("Column(Title) returned error: %v", err)
	}
	if title.Name != "title" {
		t.Errorf("Title column name = %q, want %q", title.Name, "title")
	}
}

func TestMapEmbeddedStruct(t *testing.T) {
	tbl := MustMap(Post{})
	expected := []string{"Id", "Title", "CreatedAt", "UpdatedAt"}
	names := tbl.ColumnNames()
	if len(names) != len(expected) {
		t.Fatalf("column count = %d, want %d (%v)", len(names), len(expected), names)
	}
	for i, name := range expected {
		if names[i] != name {
			t.Errorf("column[%d] = %q, want %q", i, names[i], name)
		}
	}
	created, _ := tbl.Column("CreatedAt")
	if len(created.FieldIndex) != 2 {
		t.Errorf("embedded field index path = %v, want length 2", created.FieldIndex)
	}
}

func TestMapTableNamer(t *testing.T) {
	tbl := MustMap(renamed{})
	if tbl.Name != "legacy_items" {
		t.Errorf("table name = %q, want %q", tbl.Name, "legacy_items")
	}
}

func TestMapRejectsBadShapes(t *testing.T) {
	if _, err := Map(42); err == nil {
		t.Error("Map(42) should fail")
	}

	type badAuto struct {
		Name string `db:"Name,auto,pk"`
	}
	if _, err := Map(badAuto{}); err == nil {
		t.Error("auto-increment on a TEXT column should fail")
	}

	type autoNoPK struct {
		Id int64 `db:"Id,auto"`
	}
	if _, err := Map(autoNoPK{}); err == nil {
		t.Error("auto-increment without pk should fail")
	}

	type badOpt struct {
		Id int64 `db:"Id,primarykey"`
	}
	if _, err := Map(badOpt{}); err == nil {
		t.Error("unknown tag option should fail")
	}

	type dupCol struct {
		A int64 `db:"x"`
		B int64 `db:"x"`
	}
	if _, err := Map(dupCol{}); err == nil {
		t.Error("duplicate column name should fail")
	}
}

func TestMapIndexes(t *testing.T) {
	tbl := MustMap(Account{})
	if len(tbl.Indexes) != 2 {
		t.Fatalf("index count = %d, want 2 (%v)", len(tbl.Indexes), tbl.Indexes)
	}
	email := tbl.Indexes[0]
	if !email.Unique || email.Name != "idx_Account_email" {
		t.Errorf("email index = %+v, want unique idx_Account_email", email)
	}
	created := tbl.Indexes[1]
	if created.Unique || created.Name != "idx_Account_created_at" {
		t.Errorf("created_at index = %+v, want non-unique idx_Account_created_at", created)
	}
}

func TestSqliteTypeMapping(t *testing.T) {
	type sample struct {
		I   int       `db:"I"`
		F   float64   `db:"F"`
		S   string    `db:"S"`
		B   []byte    `db:"B"`
		T   time.Time `db:"T"`
		NB  sql.NullBool
		Any any `db:"Any"`
	}
	tbl := MustMap(sample{})
	expected := map[string]string{
		"I":   IntegerType,
		"F":   RealType,
		"S":   TextType,
		"B":   BlobType,
		"T":   TextType,
		"NB":  IntegerType,
		"Any": BlobType,
	}
	for member, sqlType := range expected {
		col, err := tbl.Column(member)
		if err != nil {
			t.Fatalf("Column(%s) returned error: %v", member, err)
		}
		if col.Type != sqlType {
			t.Errorf("%s type = %q, want %q", member, col.Type, sqlType)
		}
	}
}
