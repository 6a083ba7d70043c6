package middleware

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Bind decodes marshaled input (a map or list of maps) into dst, matching
// json tag names. Scalars are converted weakly, so "42" fills an int.
//
//	var req struct {
//	    Name string   `json:"name"`
//	    Tags []string `json:"tags"`
//	}
//	err := middleware.Bind(fields, &req)
func Bind(fields any, dst any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           dst,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	if err := dec.Decode(fields); err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	return nil
}
