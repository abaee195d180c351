package options

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"shellhost/pkg/logging"
)

// Bind decodes the merged view into target, which must be a pointer to a
// struct. Decoding is weakly typed: string and primitive representations are
// converted to the declared field types. A property that cannot be converted
// is dropped so the target keeps its default for that field; only a
// structurally broken decode surfaces as an error.
func (e *Effective) Bind(target any) error {
	// Shed offending properties and re-bind until the decode succeeds or a
	// pass sheds nothing. A re-decode can surface conversion failures the
	// first pass masked, so one retry is not enough.
	for {
		err := e.decode(target)
		if err == nil {
			return nil
		}

		msErr, ok := err.(*mapstructure.Error)
		if !ok {
			return fmt.Errorf("binding options for feature %s in shell %s: %w", e.feature, e.shell, err)
		}

		shed := false
		for _, msg := range msErr.Errors {
			if path := offendingProperty(msg); path != "" && e.drop(path) {
				logging.Warn("Options", "Dropping property %s for feature %s in shell %s: %s",
					path, e.feature, e.shell, msg)
				shed = true
			}
		}
		if !shed {
			return fmt.Errorf("binding options for feature %s in shell %s: %w", e.feature, e.shell, err)
		}
	}
}

func (e *Effective) decode(target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(Expand(e.Values()))
}

// offendingProperty extracts the field path from a mapstructure error line
// such as "cannot parse 'Pool.Size' as int: ...". The dot-separated path is
// translated back to a colon path.
func offendingProperty(msg string) string {
	start := strings.Index(msg, "'")
	if start < 0 {
		return ""
	}
	rest := msg[start+1:]
	end := strings.Index(rest, "'")
	if end < 0 {
		return ""
	}
	return strings.ReplaceAll(rest[:end], ".", PathSeparator)
}
