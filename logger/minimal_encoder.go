package logger

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"
)

type palette struct {
	time      string
	component string
	key       string
	number    string
	warn      string
	warnBg    string
	err       string
	errBg     string
}

var palettes = map[string]palette{
	// Everforest Dark: natural forest greens
	"everforest": {
		time:      "\x1b[38;5;107m",
		component: "\x1b[38;5;208m",
		key:       "\x1b[38;5;65m",
		number:    "\x1b[38;5;108m",
		warn:      "\x1b[38;5;179m",
		warnBg:    "\x1b[48;5;58m",
		err:       "\x1b[38;5;167m",
		errBg:     "\x1b[48;5;52m",
	},
	// Gruvbox Dark: warm, muted
	"gruvbox": {
		time:      "\x1b[38;5;108m",
		component: "\x1b[38;5;214m",
		key:       "\x1b[38;5;109m",
		number:    "\x1b[38;5;175m",
		warn:      "\x1b[38;5;214m",
		warnBg:    "\x1b[48;5;58m",
		err:       "\x1b[38;5;167m",
		errBg:     "\x1b[48;5;88m",
	},
	// No escape codes at all
	"plain": {},
}

// Current active theme; NO_COLOR forces plain
var currentTheme = defaultTheme()

func defaultTheme() string {
	if os.Getenv("NO_COLOR") != "" {
		return "plain"
	}
	return "everforest"
}

// SetTheme configures the color scheme for log output. Unknown names are ignored.
func SetTheme(theme string) {
	if _, ok := palettes[theme]; ok {
		currentTheme = theme
	}
}

func colors() palette {
	return palettes[currentTheme]
}

func paint(color, s string) string {
	if color == "" {
		return s
	}
	return color + s + colorReset
}

var bufferPool = buffer.NewPool()

// minimalEncoder implements a calm, compact console encoder.
// Format: "13:04:35  t.fetch  Fetched participants  bug_id=1155371 count=4 duration_ms=212ms"
//
// Fields attached with Logger.With() accumulate in the embedded map encoder
// and are printed, sorted by key, before the per-call fields.
type minimalEncoder struct {
	*zapcore.MapObjectEncoder
}

func newMinimalEncoder() *minimalEncoder {
	return &minimalEncoder{MapObjectEncoder: zapcore.NewMapObjectEncoder()}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	clone := zapcore.NewMapObjectEncoder()
	for k, v := range enc.Fields {
		clone.Fields[k] = v
	}
	return &minimalEncoder{MapObjectEncoder: clone}
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	c := colors()
	final := bufferPool.Get()

	final.AppendString(paint(c.time, ent.Time.Format("15:04:05")))

	// Info carries no level tag
	if ent.Level != zapcore.InfoLevel {
		final.AppendString("  ")
		final.AppendString(levelString(c, ent.Level))
	}

	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(paint(c.component, abbreviateName(ent.LoggerName)))
	}

	final.AppendString("  ")
	final.AppendString(ent.Message)

	pairs := contextPairs(enc.Fields)
	pairs = append(pairs, fieldPairs(fields)...)
	if len(pairs) > 0 {
		final.AppendString("  ")
		final.AppendString(formatPairs(c, pairs))
	}

	final.AppendString("\n")
	return final, nil
}

type pair struct {
	key   string
	value interface{}
}

func contextPairs(m map[string]interface{}) []pair {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]pair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, pair{key: k, value: m[k]})
	}
	return pairs
}

// fieldPairs converts fields in call order. Every field type zap knows is
// rendered through a map encoder so nothing is silently dropped.
func fieldPairs(fields []zapcore.Field) []pair {
	var pairs []pair
	for _, f := range fields {
		m := zapcore.NewMapObjectEncoder()
		f.AddTo(m)
		pairs = append(pairs, contextPairs(m.Fields)...)
	}
	return pairs
}

func formatPairs(c palette, pairs []pair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		// The full error chain with stack is only useful in JSON output
		if p.key == "errorVerbose" {
			continue
		}
		parts = append(parts, paint(c.key, p.key+"=")+formatValue(c, p.key, p.value))
	}
	return strings.Join(parts, " ")
}

func formatValue(c palette, key string, v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		s := fmt.Sprintf("%d", val)
		if key == FieldDurationMS {
			s += "ms"
		}
		return paint(c.number, s)
	case float32, float64:
		return paint(c.number, fmt.Sprintf("%v", val))
	default:
		return fmt.Sprintf("%v", val)
	}
}

// levelString returns bold + colored + background for WARN and above
func levelString(c palette, level zapcore.Level) string {
	switch {
	case level == zapcore.DebugLevel:
		return "DEBUG"
	case c.warn == "":
		return level.CapitalString()
	case level == zapcore.WarnLevel:
		return colorBold + c.warnBg + paint(c.warn, "WARN")
	default:
		return colorBold + c.errBg + paint(c.err, level.CapitalString())
	}
}

// abbreviateName shortens component names: triage.fetch -> t.fetch
func abbreviateName(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) > 1 && parts[0] != "" {
		return string(parts[0][0]) + "." + strings.Join(parts[1:], ".")
	}
	return name
}
