package encoding

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// The vendor updater is a Windows application and writes its logs in the OS
// ANSI/OEM code page, most commonly windows-1251 on the deployments this tool
// was built for. Decoding happens once per run on the full file content.

var codePages = map[string]*charmap.Charmap{
	"windows-1251": charmap.Windows1251,
	"cp1251":       charmap.Windows1251,
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	"cp866":        charmap.CodePage866,
	"ibm866":       charmap.CodePage866,
	"koi8-r":       charmap.KOI8R,
	"iso-8859-1":   charmap.ISO8859_1,
	"iso-8859-5":   charmap.ISO8859_5,
}

// Supported lists the accepted code page names, sorted, with the UTF-8
// passthrough first. Used for configuration validation messages.
func Supported() []string {
	names := make([]string, 0, len(codePages)+1)
	for name := range codePages {
		names = append(names, name)
	}
	sort.Strings(names)
	return append([]string{"utf-8"}, names...)
}

// Known reports whether name is an accepted code page. The empty name counts
// as UTF-8.
func Known(name string) bool {
	name = normalize(name)
	if name == "" || name == "utf-8" || name == "utf8" {
		return true
	}
	_, ok := codePages[name]
	return ok
}

// Decode converts raw log bytes to a string according to the configured code
// page. UTF-8 input is validated rather than transformed; a leading BOM is
// dropped either way.
func Decode(data []byte, codePage string) (string, error) {
	name := normalize(codePage)
	if name == "" || name == "utf-8" || name == "utf8" {
		data = trimBOM(data)
		if !utf8.Valid(data) {
			return "", fmt.Errorf("log content is not valid UTF-8, set the code page explicitly")
		}
		return string(data), nil
	}
	cm, ok := codePages[name]
	if !ok {
		return "", fmt.Errorf("unknown code page %q, supported: %s", codePage, strings.Join(Supported(), ", "))
	}
	out, err := cm.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	return string(trimBOM(out)), nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func trimBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}
