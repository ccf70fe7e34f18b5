package command

import (
	"sync"

	"github.com/goliatone/go-masker"
	"github.com/goliatone/go-moderation/pkg/types"
)

var defaultMaskerOnce sync.Once

// DefaultMasker returns the shared masker with the moderation denylist
// registered.
func DefaultMasker() *masker.Masker {
	defaultMaskerOnce.Do(func() {
		if masker.Default == nil {
			return
		}
		registerDefaultMaskFields(masker.Default)
	})
	return masker.Default
}

// SanitizePayload masks author network details before a payload leaves the
// engine through hooks.
func SanitizePayload(mask *masker.Masker, payload types.Payload) types.Payload {
	if len(payload) == 0 {
		return types.Payload{}
	}
	if mask == nil {
		mask = DefaultMasker()
	}
	if mask == nil {
		return types.Payload{}
	}

	cloned := make(map[string]any, len(payload))
	for key, value := range payload {
		cloned[key] = value
	}
	masked, err := mask.Mask(cloned)
	if err != nil {
		return types.Payload{}
	}
	if out, ok := masked.(map[string]any); ok {
		return types.Payload(out)
	}
	return types.Payload{}
}

func registerDefaultMaskFields(mask *masker.Masker) {
	if mask == nil {
		return
	}
	for _, field := range []string{"insertIpAddress", "foreignIpAddress", "ipAddress"} {
		mask.RegisterMaskField(field, "filled4")
	}
}
