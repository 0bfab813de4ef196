package loader

import (
	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// cueToJSON evaluates a CUE snapshot and exports it as JSON. The value
// must be concrete; definitions and hidden fields are not exported.
func cueToJSON(data []byte, filename string) ([]byte, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, cueError(err, filename, "compile CUE")
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(err, filename, "snapshot is not concrete")
	}
	js, err := v.MarshalJSON()
	if err != nil {
		return nil, cueError(err, filename, "export CUE")
	}
	return js, nil
}

// cueError keeps the position of the first CUE error.
func cueError(err error, filename, msg string) error {
	le := &LoadError{Path: filename, Message: msg, Err: err}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return le
	}
	first := errs[0]
	le.Message = msg + ": " + first.Error()
	if positions := errors.Positions(first); len(positions) > 0 && positions[0].IsValid() {
		pos := positions[0]
		le.Line = pos.Line()
		le.Column = pos.Column()
	}
	return le
}
