// Package changeid defines the stable identifier that survives commit rewrites.
// Every logical change is assigned exactly one ID via a commit-message trailer;
// the ID names the change's phantom branch and version-tag hierarchy.
package changeid

import (
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"regexp"
)

// TrailerKey is the commit-message trailer that carries the ID.
const TrailerKey = "stackline-change-id"

// EmptyTreeHash is git's well-known hash of the empty tree, used as the
// parent input when deriving an ID on an unborn branch.
const EmptyTreeHash = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// lowercase base32, no padding: 20 hashed bytes encode to exactly 32 characters
var encoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

var (
	modernPattern = regexp.MustCompile(`^g[a-z2-7]{32}$`)
	legacyPattern = regexp.MustCompile(`^G[0-9a-f]{40}$`)
)

// ID is a stable change identifier. Two shapes are accepted: the current
// form is "g" followed by 32 lowercase base32 characters; the legacy form is
// "G" followed by 40 hex characters. IDs are valid git branch names.
type ID string

func (id ID) String() string { return string(id) }

// Derive computes a fresh ID from the committer identity, the parent commit
// SHA (EmptyTreeHash on an unborn branch) and the full commit message. The
// inputs make collisions across committers and amend chains implausible while
// keeping derivation deterministic for a given commit attempt.
func Derive(committerIdent, parentSHA string, message []byte) ID {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%s\n", committerIdent, parentSHA)
	h.Write(message)
	sum := h.Sum(nil)
	return ID("g" + encoding.EncodeToString(sum[:20]))
}

// IsValid reports whether s is a well-formed ID in either accepted shape.
func IsValid(s string) bool {
	return modernPattern.MatchString(s) || legacyPattern.MatchString(s)
}

// Parse validates s and returns it as an ID.
func Parse(s string) (ID, error) {
	if !IsValid(s) {
		return "", fmt.Errorf("malformed change id %q", s)
	}
	return ID(s), nil
}
