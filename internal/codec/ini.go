package codec

import (
	"bufio"
	"bytes"
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/newthinker/fileboxes/internal/core"
	"gopkg.in/ini.v1"
)

// INI is the config codec: [section] headers followed by key = value
// lines.
//
// Every section is written with an explicit header, the DEFAULT section
// first. Values that the parser would trim, unquote or cut at a comment
// marker are wrapped in triple quotes. Names and values that cannot be
// read back unchanged fail with core.ErrEncode; an empty DEFAULT section
// is not kept.
type INI struct{}

var iniLoadOptions = ini.LoadOptions{
	SpaceBeforeInlineComment: true,
	PreserveSurroundedQuote:  true,
}

func (INI) Kind() core.Kind { return core.KindConfig }

func (c INI) Encode(v core.Value) ([]byte, error) {
	cfg, ok := v.(*core.Config)
	if !ok || cfg == nil {
		return nil, wrongKind(core.KindConfig, v)
	}

	want := iniOrder(cfg)
	var buf bytes.Buffer
	for i, section := range want.Sections {
		if err := validSectionName(section.Name); err != nil {
			return nil, core.WrapError(core.ErrEncode, err)
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "[%s]\n", section.Name)
		for _, key := range section.Keys {
			name, err := iniKeyName(key.Name)
			if err != nil {
				return nil, core.WrapError(core.ErrEncode, fmt.Errorf("section %q: %w", section.Name, err))
			}
			value, err := iniValue(key.Value)
			if err != nil {
				return nil, core.WrapError(core.ErrEncode, fmt.Errorf("%s.%s: %w", section.Name, key.Name, err))
			}
			fmt.Fprintf(&buf, "%s = %s\n", name, value)
		}
	}

	got, err := c.Decode(buf.Bytes())
	if err != nil {
		return nil, core.WrapError(core.ErrEncode, fmt.Errorf("re-reading encoded config: %w", err))
	}
	if !sameConfig(got.(*core.Config), want) {
		return nil, core.WrapError(core.ErrEncode, fmt.Errorf("config does not survive INI encoding"))
	}
	return buf.Bytes(), nil
}

// Decode fails with core.ErrMissingSectionHeader when the first
// significant line is not a section header. Empty or comment-only text
// decodes to an empty config.
func (INI) Decode(data []byte) (core.Value, error) {
	if missingSectionHeader(data) {
		return nil, core.ErrMissingSectionHeader
	}

	f, err := ini.LoadSources(iniLoadOptions, data)
	if err != nil {
		return nil, core.WrapError(core.ErrDecode, err)
	}

	cfg := core.NewConfig()
	for _, s := range f.Sections() {
		if s.Name() == ini.DefaultSection && len(s.Keys()) == 0 {
			continue
		}
		section := cfg.Section(s.Name())
		for _, k := range s.Keys() {
			section.Set(k.Name(), k.Value())
		}
	}
	return cfg, nil
}

// iniOrder returns cfg as it reads back: DEFAULT moved to the front and
// dropped when empty.
func iniOrder(cfg *core.Config) *core.Config {
	out := core.NewConfig()
	if def, ok := cfg.Lookup(ini.DefaultSection); ok && len(def.Keys) > 0 {
		out.Sections = append(out.Sections, def)
	}
	for _, s := range cfg.Sections {
		if s.Name != ini.DefaultSection {
			out.Sections = append(out.Sections, s)
		}
	}
	return out
}

func sameConfig(a, b *core.Config) bool {
	return slices.EqualFunc(a.Sections, b.Sections, func(x, y *core.ConfigSection) bool {
		return x.Name == y.Name && slices.Equal(x.Keys, y.Keys)
	})
}

func validSectionName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("empty section name")
	case strings.ContainsAny(name, "\r\n"):
		return fmt.Errorf("section name %q spans lines", name)
	case strings.TrimSpace(name) != name:
		return fmt.Errorf("section name %q has surrounding space", name)
	}
	return nil
}

// iniKeyName backquotes names holding a delimiter or starting like a
// comment, header or quoted name.
func iniKeyName(name string) (string, error) {
	switch {
	case name == "":
		return "", fmt.Errorf("empty key name")
	case name == "-":
		return "", fmt.Errorf("key name %q is reserved", name)
	case strings.ContainsAny(name, "\r\n"):
		return "", fmt.Errorf("key name %q spans lines", name)
	case strings.TrimSpace(name) != name:
		return "", fmt.Errorf("key name %q has surrounding space", name)
	}
	if !strings.ContainsAny(name, "=:") && !strings.ContainsAny(name[:1], "#;[\"`'") {
		return name, nil
	}
	if strings.Contains(name, "`") {
		return "", fmt.Errorf("key name %q cannot be quoted", name)
	}
	return "`" + name + "`", nil
}

// iniValue leaves plain values bare and triple-quotes the rest. Inside a
// multi-line value only the last line may contain a triple quote.
func iniValue(v string) (string, error) {
	if plainINIValue(v) {
		return v, nil
	}
	lines := strings.Split(v, "\n")
	for _, line := range lines[:len(lines)-1] {
		if strings.Contains(line, `"""`) {
			return "", fmt.Errorf("value has a triple quote before its last line")
		}
	}
	return `"""` + v + `"""`, nil
}

func plainINIValue(v string) bool {
	if v == "" {
		return true
	}
	if strings.ContainsAny(v, "\r\n#;`") || strings.Contains(v, `"""`) {
		return false
	}
	first, _ := utf8.DecodeRuneInString(v)
	last, _ := utf8.DecodeLastRuneInString(v)
	if unicode.IsSpace(first) || unicode.IsSpace(last) {
		return false
	}
	return !strings.ContainsRune(`"'`, first) && !strings.ContainsRune(`"'\`, last)
}

func missingSectionHeader(data []byte) bool {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' || line[0] == ';' {
			continue
		}
		return line[0] != '['
	}
	return false
}
