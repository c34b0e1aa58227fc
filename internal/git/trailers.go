package git

import (
	"context"
	"fmt"
	"strings"
)

// ParseTrailers returns the values of one trailer key in a commit message,
// in order of appearance, using git's own trailer interpretation so folded
// lines and the trailer-block heuristics match what git records.
func ParseTrailers(ctx context.Context, message, key string) ([]string, error) {
	parsed, err := RunGitCommandWithInputAndContext(ctx, message, "interpret-trailers", "--parse")
	if err != nil {
		return nil, fmt.Errorf("failed to parse trailers: %w", err)
	}

	prefix := key + ":"
	var values []string
	for _, line := range strings.Split(parsed, "\n") {
		if rest, ok := strings.CutPrefix(line, prefix); ok {
			values = append(values, strings.TrimSpace(rest))
		}
	}
	return values, nil
}

// AddTrailerToFile inserts a trailer into a commit-message file in place.
// The trailer goes at the start of the trailer block and an existing trailer
// with the same key is preserved, which keeps amends and cherry-picks from
// being assigned a second identity.
func AddTrailerToFile(ctx context.Context, path, key, value string) error {
	_, err := RunGitCommandWithContext(ctx,
		"interpret-trailers",
		"--in-place",
		"--where", "start",
		"--if-exists", "doNothing",
		"--trailer", fmt.Sprintf("%s: %s", key, value),
		path,
	)
	return err
}

// StripTrailer removes every line of one trailer key from a commit message.
// Used when rendering commit messages into surfaces where the key is noise.
func StripTrailer(message, key string) string {
	lines := strings.Split(message, "\n")
	kept := lines[:0]
	prefix := key + ":"
	for _, line := range lines {
		if strings.HasPrefix(line, prefix) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimRight(strings.Join(kept, "\n"), "\n")
}
