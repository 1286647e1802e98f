package proto

import (
	"io"

	"github.com/alfa07/chnative/wire"
)

// Setting is one name/value/important triple in the Settings section
// of a Query packet.
type Setting struct {
	Name      string
	Value     string
	Important bool
}

// WriteSettings writes each setting followed by the empty-name
// terminator.
func WriteSettings(w io.Writer, settings []Setting) error {
	for _, s := range settings {
		if err := writeStr(w, s.Name); err != nil {
			return err
		}
		if err := wire.WriteBool(w, s.Important); err != nil {
			return err
		}
		if err := writeStr(w, s.Value); err != nil {
			return err
		}
	}
	return writeStr(w, "") // terminator: empty name
}

// WriteParameters writes the dedicated query-parameters section: the
// same name/flag/value triple shape as settings, but the flag marks
// each entry custom rather than important, since bound parameters are
// never server-defined settings.
func WriteParameters(w io.Writer, params map[string]string) error {
	for name, value := range params {
		if err := writeStr(w, name); err != nil {
			return err
		}
		if err := wire.WriteBool(w, true); err != nil {
			return err
		}
		if err := writeStr(w, value); err != nil {
			return err
		}
	}
	return writeStr(w, "") // terminator: empty name
}

// ReadSettings reads triples until the empty-name terminator.
func ReadSettings(r wire.Reader) ([]Setting, error) {
	var out []Setting
	for {
		name, err := readStr(r)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return out, nil
		}
		important, err := wire.ReadBool(r)
		if err != nil {
			return nil, err
		}
		value, err := readStr(r)
		if err != nil {
			return nil, err
		}
		out = append(out, Setting{Name: name, Value: value, Important: important})
	}
}
