package db

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec converts one Go type to and from its SQLite storage form.
// Encode produces a driver-bindable value; Decode writes a scanned
// driver value into a settable destination.
type Codec struct {
	Encode func(v any) (any, error)
	Decode func(src any, dst reflect.Value) error
}

// Registry maps Go types to codecs. A new registry carries codecs for
// time.Time (RFC 3339 text) and uuid.UUID (canonical text). Types with
// no codec fall back by reflection: basic kinds bind directly, and
// structs, maps, and slices round-trip as msgpack blobs.
//
// Registries are safe for concurrent use once handed to Open; register
// custom codecs before executing queries.
type Registry struct {
	mu     sync.RWMutex
	codecs map[reflect.Type]Codec
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	bytesType   = reflect.TypeOf([]byte(nil))
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

// sqliteTimeLayout is the format datetime('now') produces; decoding
// accepts it alongside RFC 3339.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// NewRegistry returns a registry seeded with the default codecs.
func NewRegistry() *Registry {
	return &Registry{codecs: map[reflect.Type]Codec{
		timeType: {Encode: encodeTime, Decode: decodeTime},
		uuidType: {Encode: encodeUUID, Decode: decodeUUID},
	}}
}

// Register installs a codec for one Go type, replacing any default.
// The type is taken from v, which is usually a zero value.
func (r *Registry) Register(v any, c Codec) {
	rt := reflect.TypeOf(v)
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt == nil {
		panic("db: Register requires a concrete type")
	}
	r.mu.Lock()
	r.codecs[rt] = c
	r.mu.Unlock()
}

func (r *Registry) lookup(rt reflect.Type) (Codec, bool) {
	r.mu.RLock()
	c, ok := r.codecs[rt]
	r.mu.RUnlock()
	return c, ok
}

// Encode converts a Go value to a value the driver can bind. Pointers
// are dereferenced first; a nil pointer binds NULL.
func (r *Registry) Encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if c, ok := r.lookup(rv.Type()); ok {
		return c.Encode(rv.Interface())
	}
	if valuer, ok := rv.Interface().(driver.Valuer); ok {
		return valuer, nil
	}
	switch rv.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return rv.Interface(), nil
	case reflect.Slice:
		if rv.Type() == bytesType || rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Bytes(), nil
		}
	}
	switch rv.Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
		blob, err := msgpack.Marshal(rv.Interface())
		if err != nil {
			return nil, fmt.Errorf("db: encode %s: %w", rv.Type(), err)
		}
		return blob, nil
	}
	return nil, fmt.Errorf("db: cannot bind value of type %s", rv.Type())
}

// Decode writes a scanned driver value into dst, which must be
// settable. NULL zeroes the destination; a pointer destination becomes
// nil for NULL and is allocated otherwise.
func (r *Registry) Decode(src any, dst reflect.Value) error {
	if !dst.CanSet() {
		return fmt.Errorf("db: decode into unsettable %s", dst.Type())
	}
	if src == nil {
		dst.SetZero()
		return nil
	}
	if dst.Kind() == reflect.Pointer {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return r.Decode(src, dst.Elem())
	}
	if c, ok := r.lookup(dst.Type()); ok {
		return c.Decode(src, dst)
	}
	if reflect.PointerTo(dst.Type()).Implements(scannerType) {
		return dst.Addr().Interface().(sql.Scanner).Scan(src)
	}
	return decodeBasic(src, dst)
}

// decodeBasic converts the driver's value vocabulary (int64, float64,
// string, []byte, bool, time.Time) into a plain Go destination.
func decodeBasic(src any, dst reflect.Value) error {
	switch s := src.(type) {
	case int64:
		switch dst.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			dst.SetInt(s)
			return nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			dst.SetUint(uint64(s))
			return nil
		case reflect.Float32, reflect.Float64:
			dst.SetFloat(float64(s))
			return nil
		case reflect.Bool:
			dst.SetBool(s != 0)
			return nil
		}
	case float64:
		switch dst.Kind() {
		case reflect.Float32, reflect.Float64:
			dst.SetFloat(s)
			return nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			dst.SetInt(int64(s))
			return nil
		}
	case bool:
		if dst.Kind() == reflect.Bool {
			dst.SetBool(s)
			return nil
		}
	case string:
		if dst.Kind() == reflect.String {
			dst.SetString(s)
			return nil
		}
		if dst.Type() == bytesType {
			dst.SetBytes([]byte(s))
			return nil
		}
	case []byte:
		if dst.Type() == bytesType {
			dst.SetBytes(append([]byte(nil), s...))
			return nil
		}
		if dst.Kind() == reflect.String {
			dst.SetString(string(s))
			return nil
		}
		switch dst.Kind() {
		case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
			if err := msgpack.Unmarshal(s, dst.Addr().Interface()); err != nil {
				return fmt.Errorf("db: decode %s: %w", dst.Type(), err)
			}
			return nil
		}
	case time.Time:
		if dst.Type() == timeType {
			dst.Set(reflect.ValueOf(s))
			return nil
		}
	}
	return fmt.Errorf("db: cannot decode %T into %s", src, dst.Type())
}

func encodeTime(v any) (any, error) {
	t := v.(time.Time)
	return t.UTC().Format(time.RFC3339Nano), nil
}

func decodeTime(src any, dst reflect.Value) error {
	var text string
	switch s := src.(type) {
	case time.Time:
		dst.Set(reflect.ValueOf(s))
		return nil
	case string:
		text = s
	case []byte:
		text = string(s)
	default:
		return fmt.Errorf("db: cannot decode %T into time.Time", src)
	}
	t, err := time.Parse(time.RFC3339Nano, text)
	if err != nil {
		t, err = time.Parse(sqliteTimeLayout, text)
	}
	if err != nil {
		return fmt.Errorf("db: parse time %q: %w", text, err)
	}
	dst.Set(reflect.ValueOf(t))
	return nil
}

func encodeUUID(v any) (any, error) {
	return v.(uuid.UUID).String(), nil
}

func decodeUUID(src any, dst reflect.Value) error {
	var u uuid.UUID
	var err error
	switch s := src.(type) {
	case string:
		u, err = uuid.Parse(s)
	case []byte:
		if len(s) == 16 {
			u, err = uuid.FromBytes(s)
		} else {
			u, err = uuid.ParseBytes(s)
		}
	default:
		return fmt.Errorf("db: cannot decode %T into uuid.UUID", src)
	}
	if err != nil {
		return fmt.Errorf("db: parse uuid: %w", err)
	}
	dst.Set(reflect.ValueOf(u))
	return nil
}
