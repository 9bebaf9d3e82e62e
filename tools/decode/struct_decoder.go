package decode

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Options customizes Decode behavior.
type Options struct {
	// WeaklyTypedInput enables lenient coercions such as
	// "123" -> int and 1.0 -> int64. Defaults to true: browser
	// clients are sloppy about JSON number/string types.
	WeaklyTypedInput bool
}

func DefaultOptions() Options {
	return Options{WeaklyTypedInput: true}
}

// DecodeMap decodes a generic JSON object (map[string]any) into a
// typed payload struct T. Field mapping uses `json` tags so payload
// structs can share tags with their wire form.
func DecodeMap[T any](in map[string]any, opts ...Options) (*T, error) {
	if in == nil {
		return nil, fmt.Errorf("payload is nil")
	}
	cfg := DefaultOptions()
	if len(opts) > 0 {
		cfg = opts[0]
	}

	var out T
	decCfg := &mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          "json",
		WeaklyTypedInput: cfg.WeaklyTypedInput,
		ZeroFields:       true,
	}
	dec, err := mapstructure.NewDecoder(decCfg)
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}
	if err := dec.Decode(in); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &out, nil
}
