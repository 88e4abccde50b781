// Package query builds parameterized SQLite commands from typed
// expressions. A Builder accumulates clauses across calls: each call
// renders its expression immediately and appends SQL fragments plus
// bound parameters to the builder's state. Build assembles the final
// command text without changing that state, so it can be called
// repeatedly and cheaply.
//
// A builder starts in query (SELECT) mode. The first insert, update, or
// delete specific call switches the command kind exactly once; calls
// that do not apply to the chosen kind latch an ErrInvalidOperation.
// After any failure the builder's clause state is unchanged, the first
// error is latched, later calls do nothing, and Build returns the
// error. Check Err or Build; there is no need to check between calls.
//
// Builders are not safe for concurrent mutation, but Clone gives an
// independent deep copy, so a shared base query can be cloned and
// specialized freely from many goroutines.
package query

import (
	"strings"

	"github.com/querylite/querylite/query/compile"
	"github.com/querylite/querylite/query/expr"
	"github.com/querylite/querylite/schema"
)

// Command is a finished, executable command: SQL text plus the bound
// parameters in allocation order. Parameters are named (@param1, ...)
// and bound by name, never spliced into the text.
type Command struct {
	Text   string
	Params []compile.Param
}

type mode int

const (
	modeQuery mode = iota
	modeInsert
	modeInsertSelect
	modeUpdate
	modeDelete
)

func (m mode) String() string {
	switch m {
	case modeQuery:
		return "Query"
	case modeInsert:
		return "Insert"
	case modeInsertSelect:
		return "InsertFromSelect"
	case modeUpdate:
		return "Update"
	case modeDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// Builder accumulates the clauses of one command. The zero value is not
// usable; construct with From, InsertInto, UpdateTable, or DeleteFrom.
type Builder struct {
	dialect  compile.Dialect
	funcs    *compile.FuncRegistry
	emitter  *compile.Emitter
	resolver *compile.Resolver

	tables []*schema.Table
	mode   mode
	err    error

	state    *compile.State
	distinct bool
	selects  []string
	joins    []string
	wheres   []string
	groups   []string
	havings  []string
	orders   []string

	sets []string

	insertCols []string
	insertRows [][]any
	returning  string

	srcText   string
	srcParams []compile.Param

	pageSize  int
	pageIndex int
}

// Option configures a builder at construction.
type Option func(*Builder)

// WithDialect substitutes the SQL dialect. The default is SQLite.
func WithDialect(d compile.Dialect) Option {
	return func(b *Builder) { b.dialect = d }
}

// WithFuncs substitutes the function-idiom registry used when emitting
// expressions. The default is compile.DefaultFuncs.
func WithFuncs(funcs *compile.FuncRegistry) Option {
	return func(b *Builder) { b.funcs = funcs }
}

// From starts a query (SELECT) against a mapped table.
func From(t *schema.Table, opts ...Option) *Builder {
	b := &Builder{
		dialect:  compile.SQLiteDialect{},
		state:    &compile.State{},
		pageSize: -1,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.emitter = compile.NewEmitter(b.dialect, b.funcs)
	if t == nil {
		b.err = &InvalidOperationError{Mode: modeQuery.String(), Call: "From", Reason: "nil table"}
		return b
	}
	if err := compile.ValidateIdentifier(t.Name); err != nil {
		b.err = &InvalidOperationError{Mode: modeQuery.String(), Call: "From", Reason: err.Error()}
		return b
	}
	b.tables = []*schema.Table{t}
	b.resolver = compile.NewResolver(t)
	return b
}

// Err returns the first error latched by any builder call, or nil.
func (b *Builder) Err() error { return b.err }

// fail latches an InvalidOperationError for the named call.
func (b *Builder) fail(call, reason string) *Builder {
	if b.err == nil {
		b.err = &InvalidOperationError{Mode: b.mode.String(), Call: call, Reason: reason}
	}
	return b
}

// failErr latches an error produced by the compile layer.
func (b *Builder) failErr(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// render resolves and emits an expression. Parameter allocations land
// in a scratch copy of the state that replaces the real one only on
// success, so a failed call leaves the builder untouched.
func (b *Builder) render(e expr.Expr) (string, error) {
	n, err := b.resolver.Resolve(e)
	if err != nil {
		return "", err
	}
	st := b.state.Clone()
	frag, err := b.emitter.Emit(n, st)
	if err != nil {
		return "", err
	}
	b.state = st
	return frag, nil
}

// renderKey renders an ordering, grouping, or projection key: either a
// member name or a full expression.
func (b *Builder) renderKey(call string, key any) (string, error) {
	switch k := key.(type) {
	case string:
		return b.render(expr.C(k))
	case expr.Expr:
		return b.render(k)
	default:
		return "", &InvalidOperationError{
			Mode: b.mode.String(), Call: call,
			Reason: "key must be a member name or an expression",
		}
	}
}

// member resolves a member name to its column without touching state.
func (b *Builder) member(name string) (compile.Member, error) {
	n, err := b.resolver.Resolve(expr.C(name))
	if err != nil {
		return compile.Member{}, err
	}
	m, ok := n.(compile.Member)
	if !ok {
		return compile.Member{}, &InvalidOperationError{
			Mode: b.mode.String(), Call: "member",
			Reason: "expected a member reference",
		}
	}
	return m, nil
}

// columnSQL renders a resolved member as an identifier, qualified when
// the command spans more than one table.
func (b *Builder) columnSQL(m compile.Member) string {
	if b.state.Qualify && m.Table != "" {
		return b.dialect.QuoteIdentifier(m.Table) + "." + b.dialect.QuoteIdentifier(m.Column)
	}
	return b.dialect.QuoteIdentifier(m.Column)
}

// Where adds a predicate, ANDed with any predicate already present.
// Chaining Where(p).Where(q) is equivalent to Where(expr.And(p, q)).
// Valid for queries, updates, and deletes.
func (b *Builder) Where(p expr.Expr) *Builder {
	if b.err != nil {
		return b
	}
	switch b.mode {
	case modeQuery, modeUpdate, modeDelete:
	default:
		return b.fail("Where", "predicates do not apply to inserts")
	}
	if p == nil {
		return b.fail("Where", "nil predicate")
	}
	frag, err := b.render(p)
	if err != nil {
		return b.failErr(err)
	}
	b.wheres = append(b.wheres, frag)
	return b
}

// OrderBy appends an ascending ordering key (a member name or an
// expression). Call order is tiebreak order.
func (b *Builder) OrderBy(key any) *Builder {
	return b.orderBy("OrderBy", key, false)
}

// OrderByDesc appends a descending ordering key.
func (b *Builder) OrderByDesc(key any) *Builder {
	return b.orderBy("OrderByDesc", key, true)
}

func (b *Builder) orderBy(call string, key any, desc bool) *Builder {
	if b.err != nil {
		return b
	}
	if b.mode != modeQuery {
		return b.fail(call, "ordering applies to queries only")
	}
	frag, err := b.renderKey(call, key)
	if err != nil {
		return b.failErr(err)
	}
	if desc {
		frag += " DESC"
	}
	b.orders = append(b.orders, frag)
	return b
}

// Take sets the page size (LIMIT).
func (b *Builder) Take(n int) *Builder {
	if b.err != nil {
		return b
	}
	if b.mode != modeQuery {
		return b.fail("Take", "paging applies to queries only")
	}
	if n < 0 {
		return b.fail("Take", "page size cannot be negative")
	}
	b.pageSize = n
	return b
}

// Skip sets the page index. The emitted OFFSET is pageSize*pageIndex:
// Take(10).Skip(3) reads the fourth page of ten rows. A non-zero page
// index requires both a page size and an explicit ordering by the time
// Build is called.
func (b *Builder) Skip(i int) *Builder {
	if b.err != nil {
		return b
	}
	if b.mode != modeQuery {
		return b.fail("Skip", "paging applies to queries only")
	}
	if i < 0 {
		return b.fail("Skip", "page index cannot be negative")
	}
	b.pageIndex = i
	return b
}

// Distinct makes the query emit SELECT DISTINCT.
func (b *Builder) Distinct() *Builder {
	if b.err != nil {
		return b
	}
	if b.mode != modeQuery {
		return b.fail("Distinct", "DISTINCT applies to queries only")
	}
	b.distinct = true
	return b
}

// Select replaces the default projection. Each column is a member name
// or an expression.
func (b *Builder) Select(cols ...any) *Builder {
	if b.err != nil {
		return b
	}
	if b.mode != modeQuery {
		return b.fail("Select", "projections apply to queries only")
	}
	if len(cols) == 0 {
		return b.fail("Select", "no columns given")
	}
	frags := make([]string, 0, len(cols))
	for _, col := range cols {
		frag, err := b.renderKey("Select", col)
		if err != nil {
			return b.failErr(err)
		}
		frags = append(frags, frag)
	}
	b.selects = append(b.selects, frags...)
	return b
}

// GroupBy appends grouping keys by member name.
func (b *Builder) GroupBy(members ...string) *Builder {
	if b.err != nil {
		return b
	}
	if b.mode != modeQuery {
		return b.fail("GroupBy", "grouping applies to queries only")
	}
	if len(members) == 0 {
		return b.fail("GroupBy", "no members given")
	}
	frags := make([]string, 0, len(members))
	for _, m := range members {
		frag, err := b.render(expr.C(m))
		if err != nil {
			return b.failErr(err)
		}
		frags = append(frags, frag)
	}
	b.groups = append(b.groups, frags...)
	return b
}

// Having adds a post-grouping predicate, ANDed with any already
// present.
func (b *Builder) Having(p expr.Expr) *Builder {
	if b.err != nil {
		return b
	}
	if b.mode != modeQuery {
		return b.fail("Having", "HAVING applies to queries only")
	}
	if p == nil {
		return b.fail("Having", "nil predicate")
	}
	frag, err := b.render(p)
	if err != nil {
		return b.failErr(err)
	}
	b.havings = append(b.havings, frag)
	return b
}

// Join adds an inner join on leftMember = rightMember, where leftMember
// resolves against the tables already in the query and rightMember
// belongs to t2. Once a query has joins, member references emit
// qualified ("Table"."Column"); declare joins before the predicates
// that rely on the joined table.
func (b *Builder) Join(t2 *schema.Table, leftMember, rightMember string) *Builder {
	if b.err != nil {
		return b
	}
	if b.mode != modeQuery {
		return b.fail("Join", "joins apply to queries only")
	}
	if t2 == nil {
		return b.fail("Join", "nil table")
	}
	left, err := b.member(leftMember)
	if err != nil {
		return b.failErr(err)
	}
	rightCol, err := t2.Column(rightMember)
	if err != nil {
		return b.failErr(err)
	}
	b.tables = append(b.tables, t2)
	b.resolver = compile.NewResolver(b.tables...)
	b.state.Qualify = true
	frag := "JOIN " + b.dialect.QuoteIdentifier(t2.Name) +
		" ON " + b.columnSQL(left) +
		" = " + b.columnSQL(compile.Member{Table: t2.Name, Column: rightCol.Name})
	b.joins = append(b.joins, frag)
	return b
}

// WhereIn adds a predicate restricting member to the rows of a
// subquery. The subquery must be a query-mode builder selecting exactly
// one column; its parameters are renamed with an Inner prefix so they
// can never collide with the outer command's, at any nesting depth.
// Two parameterized subqueries spliced at the same level would share
// names, so the second is refused; nest them or merge their predicates.
func (b *Builder) WhereIn(member string, sub *Builder) *Builder {
	return b.whereIn("WhereIn", member, sub, false)
}

// WhereNotIn is WhereIn negated.
func (b *Builder) WhereNotIn(member string, sub *Builder) *Builder {
	return b.whereIn("WhereNotIn", member, sub, true)
}

func (b *Builder) whereIn(call, member string, sub *Builder, negate bool) *Builder {
	if b.err != nil {
		return b
	}
	switch b.mode {
	case modeQuery, modeUpdate, modeDelete:
	default:
		return b.fail(call, "predicates do not apply to inserts")
	}
	if sub == nil {
		return b.fail(call, "nil subquery")
	}
	if sub.mode != modeQuery {
		return b.fail(call, "subquery must be a query")
	}
	if len(sub.selects) != 1 {
		return b.fail(call, "subquery must select exactly one column")
	}
	subCmd, err := sub.Build()
	if err != nil {
		return b.failErr(err)
	}
	m, err := b.member(member)
	if err != nil {
		return b.failErr(err)
	}
	text, params := renameInner(subCmd.Text, subCmd.Params)
	for _, p := range params {
		for _, q := range b.state.Params {
			if p.Name == q.Name {
				return b.fail(call, "parameter "+p.Name+" collides with an earlier subquery at this level; nest the subqueries or combine their predicates")
			}
		}
	}
	op := " IN ("
	if negate {
		op = " NOT IN ("
	}
	b.wheres = append(b.wheres, "("+b.columnSQL(m)+op+text+"))")
	b.state.Params = append(b.state.Params, params...)
	return b
}

// renameInner prefixes every parameter of an embedded subquery with
// "Inner", in both the SQL text and the parameter list. Outer
// parameters are always named paramN, so renamed inner parameters can
// never collide; nesting stacks prefixes (InnerInnerparam1, ...). The
// rewrite is token-aware: text inside quoted identifiers or string
// literals is left alone.
func renameInner(text string, params []compile.Param) (string, []compile.Param) {
	renamed := make([]compile.Param, len(params))
	for i, p := range params {
		renamed[i] = compile.Param{Name: "Inner" + p.Name, Value: p.Value}
	}
	var sb strings.Builder
	sb.Grow(len(text) + len(params)*len("Inner"))
	for i := 0; i < len(text); {
		switch text[i] {
		case '"', '\'':
			j := skipQuoted(text, i)
			sb.WriteString(text[i:j])
			i = j
		case '@':
			j := i + 1
			for j < len(text) && isParamChar(text[j]) {
				j++
			}
			sb.WriteString("@Inner")
			sb.WriteString(text[i+1 : j])
			i = j
		default:
			sb.WriteByte(text[i])
			i++
		}
	}
	return sb.String(), renamed
}

// skipQuoted returns the index just past a quoted region starting at
// i. Doubled quote characters escape themselves and stay inside the
// region.
func skipQuoted(text string, i int) int {
	quote := text[i]
	j := i + 1
	for j < len(text) {
		if text[j] == quote {
			if j+1 < len(text) && text[j+1] == quote {
				j += 2
				continue
			}
			return j + 1
		}
		j++
	}
	return j
}

func isParamChar(c byte) bool {
	return c == '_' ||
		'a' <= c && c <= 'z' ||
		'A' <= c && c <= 'Z' ||
		'0' <= c && c <= '9'
}

// switchMode moves a query-mode builder into the target command kind.
// It reports false (latching the error) when the kind was already
// chosen or accumulated clauses do not apply to the target kind.
func (b *Builder) switchMode(to mode, call string) bool {
	if b.mode == to {
		return true
	}
	if b.mode != modeQuery {
		b.fail(call, "command kind already chosen")
		return false
	}
	if clause := b.queryOnlyClause(to); clause != "" {
		b.fail(call, clause+" does not apply to "+to.String()+" commands")
		return false
	}
	b.mode = to
	return true
}

// queryOnlyClause names the first accumulated clause that the target
// command kind cannot carry, or "" when the transition is clean.
func (b *Builder) queryOnlyClause(to mode) string {
	if to == modeInsert || to == modeInsertSelect {
		if len(b.wheres) > 0 {
			return "WHERE"
		}
	}
	switch {
	case len(b.joins) > 0:
		return "JOIN"
	case len(b.orders) > 0:
		return "ORDER BY"
	case len(b.groups) > 0:
		return "GROUP BY"
	case len(b.havings) > 0:
		return "HAVING"
	case len(b.selects) > 0:
		return "SELECT projection"
	case b.distinct:
		return "DISTINCT"
	case b.pageSize >= 0 || b.pageIndex > 0:
		return "paging"
	}
	return ""
}

// Build assembles the command text from the accumulated state. It
// never mutates the builder: calling it repeatedly, including on later
// snapshots of the same builder, is cheap and safe.
func (b *Builder) Build() (Command, error) {
	if b.err != nil {
		return Command{}, b.err
	}
	switch b.mode {
	case modeQuery:
		return b.buildSelect()
	case modeInsert:
		return b.buildInsert()
	case modeInsertSelect:
		return b.buildInsertSelect()
	case modeUpdate:
		return b.buildUpdate()
	case modeDelete:
		return b.buildDelete()
	default:
		return Command{}, &InvalidOperationError{Mode: b.mode.String(), Call: "Build", Reason: "unknown command kind"}
	}
}

func (b *Builder) buildSelect() (Command, error) {
	if b.pageIndex > 0 {
		if len(b.orders) == 0 {
			return Command{}, &InvalidOperationError{
				Mode: b.mode.String(), Call: "Skip",
				Reason: "pagination requires an explicit ordering",
			}
		}
		if b.pageSize < 0 {
			return Command{}, &InvalidOperationError{
				Mode: b.mode.String(), Call: "Skip",
				Reason: "page index requires a page size",
			}
		}
	}
	var sb strings.Builder
	sb.WriteString(compile.SelectSQL(b.dialect, b.distinct, b.projection(), b.tables[0].Name))
	for _, j := range b.joins {
		sb.WriteString(" ")
		sb.WriteString(j)
	}
	if len(b.wheres) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(joinAnd(b.wheres))
	}
	if len(b.groups) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(b.groups, ", "))
	}
	if len(b.havings) > 0 {
		sb.WriteString(" HAVING ")
		sb.WriteString(joinAnd(b.havings))
	}
	if len(b.orders) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.orders, ", "))
	}
	if limit := compile.LimitSQL(b.pageSize, b.pageIndex); limit != "" {
		sb.WriteString(" ")
		sb.WriteString(limit)
	}
	return Command{Text: sb.String(), Params: b.paramsSnapshot()}, nil
}

// projection returns the SELECT column list: the explicit projection if
// one was set, otherwise * for a single table or one "t".* per
// participating table when joins are present.
func (b *Builder) projection() string {
	if len(b.selects) > 0 {
		return strings.Join(b.selects, ", ")
	}
	if len(b.tables) == 1 {
		return ""
	}
	stars := make([]string, len(b.tables))
	for i, t := range b.tables {
		stars[i] = b.dialect.QuoteIdentifier(t.Name) + ".*"
	}
	return strings.Join(stars, ", ")
}

// joinAnd folds accumulated predicate fragments into a single predicate,
// nesting left-associatively so that chained Where calls produce the same
// text as one expr.And over the same predicates.
func joinAnd(frags []string) string {
	out := frags[0]
	for _, f := range frags[1:] {
		out = "(" + out + " AND " + f + ")"
	}
	return out
}

// paramsSnapshot copies the current parameter list so a returned
// Command stays valid while the builder keeps accumulating.
func (b *Builder) paramsSnapshot() []compile.Param {
	if len(b.state.Params) == 0 {
		return nil
	}
	out := make([]compile.Param, len(b.state.Params))
	copy(out, b.state.Params)
	return out
}

// Clone returns an independent deep copy: clause lists, parameters,
// counters, mode, and any latched error. The clone and the source
// never observe each other's later calls, so both can diverge freely,
// including from different goroutines.
func (b *Builder) Clone() *Builder {
	dup := *b
	dup.state = b.state.Clone()
	dup.tables = append([]*schema.Table(nil), b.tables...)
	dup.selects = append([]string(nil), b.selects...)
	dup.joins = append([]string(nil), b.joins...)
	dup.wheres = append([]string(nil), b.wheres...)
	dup.groups = append([]string(nil), b.groups...)
	dup.havings = append([]string(nil), b.havings...)
	dup.orders = append([]string(nil), b.orders...)
	dup.sets = append([]string(nil), b.sets...)
	dup.insertCols = append([]string(nil), b.insertCols...)
	if b.insertRows != nil {
		dup.insertRows = make([][]any, len(b.insertRows))
		for i, row := range b.insertRows {
			dup.insertRows[i] = append([]any(nil), row...)
		}
	}
	dup.srcParams = append([]compile.Param(nil), b.srcParams...)
	return &dup
}
