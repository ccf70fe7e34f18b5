// Package foreignid builds the identifiers that link queue rows to the
// content they will become once published.
package foreignid

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/goliatone/go-moderation/pkg/types"
)

// Approval prefixes written into foreignId once content is published.
const (
	PrefixComment         = "C-"
	PrefixDiscussion      = "D-"
	PrefixActivity        = "A-"
	PrefixActivityComment = "AC-"
)

// Source draws uniformly distributed integers in [0, n).
type Source interface {
	Uint32N(n uint32) uint32
}

// ActivityIdentifier is implemented by structured activity create results.
type ActivityIdentifier interface {
	ActivityID() string
}

// Generator produces foreign identifiers. The zero value is not usable; use
// New.
type Generator struct {
	mu  sync.Mutex
	src Source
}

// New returns a generator drawing from src, or from a PCG source seeded by
// the runtime when src is nil.
func New(src Source) *Generator {
	if src == nil {
		src = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{src: src}
}

// Rand32 returns a random value covering the full unsigned 32-bit range
// built from two 16-bit draws.
func (g *Generator) Rand32() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	lo := g.src.Uint32N(1 << 16)
	hi := g.src.Uint32N(1 << 16)
	return lo | hi<<16
}

// UUID returns a random identifier in the packed 8-4-4-4-12 layout.
func (g *Generator) UUID() string {
	return PackUUID(g.Rand32(), g.Rand32(), g.Rand32(), g.Rand32())
}

// ForCreation derives the foreignId stored with a new queue row. Imported
// payloads carrying a commentId, discussionId or activityId get a short tag
// from the first character of that id. The tag collides easily and must not
// be used as a key; every other payload gets a random packed UUID.
func (g *Generator) ForCreation(payload map[string]any) string {
	hints := []struct {
		key    string
		prefix string
	}{
		{"commentId", "c-"},
		{"discussionId", "d-"},
		{"activityId", "ac-"},
	}
	for _, hint := range hints {
		if id := hintValue(payload[hint.key]); id != "" {
			r, _ := utf8.DecodeRuneInString(id)
			return hint.prefix + string(r)
		}
	}
	return g.UUID()
}

func hintValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(value)
	case fmt.Stringer:
		return strings.TrimSpace(value.String())
	default:
		s := fmt.Sprint(value)
		if s == "0" {
			return ""
		}
		return s
	}
}

// PackUUID formats four 32-bit values as AAAAAAAA-BBBB-BBBB-CCCC-CCCCDDDDDDDD.
func PackUUID(a, b, c, d uint32) string {
	bh := fmt.Sprintf("%08x", b)
	ch := fmt.Sprintf("%08x", c)
	return fmt.Sprintf("%08x-%s-%s-%s-%s%08x", a, bh[:4], bh[4:], ch[:4], ch[4:], d)
}

// ParseUUID is the inverse of PackUUID.
func ParseUUID(s string) ([4]uint32, error) {
	var out [4]uint32
	digits := strings.ReplaceAll(s, "-", "")
	if len(digits) != 32 {
		return out, fmt.Errorf("foreignid: malformed uuid %q", s)
	}
	for i := range out {
		v, err := strconv.ParseUint(digits[i*8:(i+1)*8], 16, 32)
		if err != nil {
			return out, fmt.Errorf("foreignid: malformed uuid %q: %w", s, err)
		}
		out[i] = uint32(v)
	}
	return out, nil
}

// ForApproval returns the foreignId recorded after content was published.
// Activity results may be structured; the nested activity id is used then.
func ForApproval(newID any, t types.ForeignType) (string, error) {
	switch t {
	case types.ForeignTypeComment:
		return PrefixComment + ContentID(newID, t), nil
	case types.ForeignTypeDiscussion:
		return PrefixDiscussion + ContentID(newID, t), nil
	case types.ForeignTypeActivity:
		return PrefixActivity + ContentID(newID, t), nil
	case types.ForeignTypeActivityComment:
		return PrefixActivityComment + ContentID(newID, t), nil
	default:
		return "", fmt.Errorf("%w: %q", types.ErrUnknownContentType, t)
	}
}

// ContentID returns the scalar id of a content create result.
func ContentID(newID any, t types.ForeignType) string {
	if t == types.ForeignTypeActivity {
		return activityID(newID)
	}
	return idString(newID)
}

func activityID(v any) string {
	switch value := v.(type) {
	case ActivityIdentifier:
		return value.ActivityID()
	case map[string]any:
		if nested, ok := value["activityId"]; ok {
			return idString(nested)
		}
	case types.Payload:
		if nested, ok := value["activityId"]; ok {
			return idString(nested)
		}
	}
	return idString(v)
}

func idString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	default:
		return fmt.Sprint(value)
	}
}

// Decode recognizes foreign ids written by ForApproval. Matching is case
// sensitive; creation tags such as "c-1" are not recognized.
func Decode(foreignID string) (types.ForeignType, string, bool) {
	// AC- must be tested before A-.
	prefixes := []struct {
		prefix string
		kind   types.ForeignType
	}{
		{PrefixActivityComment, types.ForeignTypeActivityComment},
		{PrefixComment, types.ForeignTypeComment},
		{PrefixDiscussion, types.ForeignTypeDiscussion},
		{PrefixActivity, types.ForeignTypeActivity},
	}
	for _, p := range prefixes {
		if id, ok := strings.CutPrefix(foreignID, p.prefix); ok && id != "" {
			return p.kind, id, true
		}
	}
	return "", "", false
}
