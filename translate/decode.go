package translate

import (
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

var uuidType = reflect.TypeOf(uuid.UUID{})

// Decode copies payload values onto out (a pointer to a struct tagged with
// mapstructure keys). Scalars are converted loosely so imported payloads with
// numeric ids or string booleans decode cleanly.
func Decode(payload map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToUUIDHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(payload)
}

func stringToUUIDHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != uuidType {
		return data, nil
	}
	switch value := data.(type) {
	case nil:
		return uuid.Nil, nil
	case string:
		value = strings.TrimSpace(value)
		if value == "" {
			return uuid.Nil, nil
		}
		return uuid.Parse(value)
	case []byte:
		if len(value) == 0 {
			return uuid.Nil, nil
		}
		return uuid.ParseBytes(value)
	}
	return data, nil
}
