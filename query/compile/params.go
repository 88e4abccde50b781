package compile

import "strconv"

// Param is one named bound value. Params are bound positionally by name
// at execution time; they are never concatenated into SQL text.
type Param struct {
	Name  string
	Value any
}

// State carries the parameter allocations of one query. Parameter names
// are unique and monotonically increasing (param1, param2, ...) for the
// lifetime of the state, so a fragment emitted later can never collide
// with an earlier one. The emitter appends to State as a side channel
// while producing SQL fragments; subquery embedding renames the inner
// side before splicing (see query.Builder).
type State struct {
	ParamCount int
	Params     []Param

	// Qualify makes member references emit as "Table"."Column". Set
	// once a query has more than one participating table.
	Qualify bool
}

// Next allocates the next parameter name and records its value.
func (s *State) Next(value any) string {
	s.ParamCount++
	name := "param" + strconv.Itoa(s.ParamCount)
	s.Params = append(s.Params, Param{Name: name, Value: value})
	return name
}

// Clone returns an independent deep copy of the state.
func (s *State) Clone() *State {
	out := &State{
		ParamCount: s.ParamCount,
		Qualify:    s.Qualify,
	}
	if s.Params != nil {
		out.Params = make([]Param, len(s.Params))
		copy(out.Params, s.Params)
	}
	return out
}
