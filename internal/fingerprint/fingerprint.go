// Package fingerprint computes the content digests used for clipboard
// change detection and dedup. The digest is MD5 — equality testing only,
// never a security boundary.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// KeyLen is the number of hex characters of the full digest embedded in
// image filenames. The filename key is deliberately a narrower collision
// domain than the full digest used for the unchanged-clipboard check.
const KeyLen = 10

// Sum returns the hex digest of b.
func Sum(b []byte) string {
	h := md5.Sum(b)
	return hex.EncodeToString(h[:])
}

// Text returns the hex digest of the UTF-8 bytes of s.
func Text(s string) string {
	return Sum([]byte(s))
}

// Key truncates a full digest to the filename dedup key.
func Key(digest string) string {
	if len(digest) < KeyLen {
		return digest
	}
	return digest[:KeyLen]
}

// ImageFilename builds the backing-file name for an image captured at t
// with the given full digest: {unixTimestamp}_{key}.png. The key suffix
// makes the filename itself the dedup lookup token.
func ImageFilename(t time.Time, digest string) string {
	return fmt.Sprintf("%d_%s.png", t.Unix(), Key(digest))
}

// KeyPattern returns the SQLite GLOB pattern matching any backing-file
// path that embeds key: *_{key}.png
func KeyPattern(key string) string {
	return "*_" + key + ".png"
}

// KeyFromFilename recovers the dedup key from a backing-file name, or ""
// if the name does not follow the {unix}_{key}.png convention.
func KeyFromFilename(name string) string {
	name = strings.TrimSuffix(name, ".png")
	i := strings.LastIndexByte(name, '_')
	if i < 0 || len(name)-i-1 != KeyLen {
		return ""
	}
	return name[i+1:]
}
