package localizer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode"
)

// AllowedExtensions is the set of extensions a stored asset may carry.
var AllowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".svg":  true,
	".ico":  true,
}

const (
	hashLength     = 16
	maxLabelLength = 20
)

// Namer derives filesystem-safe, collision-resistant filenames from source URLs.
type Namer struct {
	// used when the URL has no allowed extension
	defaultExt string
	// salted mixes the current time into the hash so repeated runs on the
	// same URL never produce the same name
	salted bool

	now func() time.Time
}

// NewNamer panics unless defaultExt is one of AllowedExtensions.
func NewNamer(defaultExt string, salted bool) *Namer {
	if !AllowedExtensions[defaultExt] {
		panic(fmt.Sprintf("localizer: default extension %q is not allowed", defaultExt))
	}
	return &Namer{defaultExt: defaultExt, salted: salted, now: time.Now}
}

// Name returns "<hash><ext>", or "<label>_<hash><ext>" when label survives
// sanitizing.
func (n *Namer) Name(sourceURL, label string) string {
	input := sourceURL
	if n.salted {
		input = fmt.Sprintf("%d_%s", n.now().UnixNano(), sourceURL)
	}
	sum := sha256.Sum256([]byte(input))
	hashStr := hex.EncodeToString(sum[:])[:hashLength]

	ext := n.extension(sourceURL)
	if safe := SanitizeLabel(label); safe != "" {
		return fmt.Sprintf("%s_%s%s", safe, hashStr, ext)
	}
	return hashStr + ext
}

func (n *Namer) extension(sourceURL string) string {
	p := sourceURL
	if u, err := url.Parse(sourceURL); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if AllowedExtensions[ext] {
		return ext
	}
	return n.defaultExt
}

// SanitizeLabel keeps letters, digits, '-' and '_' and caps the result at
// 20 runes.
func SanitizeLabel(label string) string {
	var b strings.Builder
	count := 0
	for _, r := range label {
		if count == maxLabelLength {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
			count++
		}
	}
	return b.String()
}
