package decode

import (
	"HelpLink/tools/errs"

	"github.com/mitchellh/mapstructure"
)

// Payload decodes a loosely-typed envelope data payload (map[string]any from
// JSON) into a typed struct. Unknown keys are ignored; type mismatches fail.
func Payload[T any](in any) (*T, error) {
	if in == nil {
		return nil, errs.ErrMalformed.WithDetail("payload is nil").Wrap()
	}
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, errs.Wrap(err)
	}
	if err := dec.Decode(in); err != nil {
		return nil, errs.ErrMalformed.WrapMsg("decode payload", "err", err)
	}
	return &out, nil
}
