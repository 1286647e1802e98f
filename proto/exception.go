package proto

import (
	"github.com/alfa07/chnative/cherrors"
	"github.com/alfa07/chnative/wire"
)

// ReadException decodes a server Exception packet, including its
// nested-cause chain, into a *cherrors.ServerException.
func ReadException(r wire.Reader) (*cherrors.ServerException, error) {
	code, err := wire.ReadI32(r)
	if err != nil {
		return nil, err
	}
	name, err := readStr(r)
	if err != nil {
		return nil, err
	}
	message, err := readStr(r)
	if err != nil {
		return nil, err
	}
	stack, err := readStr(r)
	if err != nil {
		return nil, err
	}
	hasNested, err := wire.ReadBool(r)
	if err != nil {
		return nil, err
	}
	e := &cherrors.ServerException{Code: code, Name: name, Message: message, StackTrace: stack}
	if hasNested {
		nested, err := ReadException(r)
		if err != nil {
			return nil, err
		}
		e.Nested = nested
	}
	return e, nil
}
