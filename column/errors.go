package column

import (
	"fmt"

	"github.com/alfa07/chnative/chtype"
)

// UnsupportedKindError is returned by New for a type this codec layer
// does not implement.
type UnsupportedKindError struct {
	Kind chtype.Kind
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("column: unsupported type kind %v", e.Kind)
}

// WrongKindError is returned by AppendAny when the supplied value's Go
// type does not match the column's ClickHouse kind.
type WrongKindError struct {
	Kind chtype.Kind
	Got  any
}

func (e *WrongKindError) Error() string {
	return fmt.Sprintf("column: value %T does not match column kind %v", e.Got, e.Kind)
}

// ErrNothingNotWritable is the usage error for attempting to serialize
// a Nothing column on insert.
var ErrNothingNotWritable = fmt.Errorf("column: Nothing columns cannot be inserted")
