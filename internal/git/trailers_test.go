package git_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"stackline.dev/stackline/internal/git"
	"stackline.dev/stackline/testhelpers"
)

func TestParseTrailers(t *testing.T) {
	t.Run("returns values in order of appearance", func(t *testing.T) {
		testhelpers.NewScene(t, testhelpers.BasicSceneSetup)

		message := "add parser\n\nmy-key: first\nmy-key: second\n"
		values, err := git.ParseTrailers(context.Background(), message, "my-key")
		require.NoError(t, err)
		require.Equal(t, []string{"first", "second"}, values)
	})

	t.Run("returns nothing when the key is absent", func(t *testing.T) {
		testhelpers.NewScene(t, testhelpers.BasicSceneSetup)

		values, err := git.ParseTrailers(context.Background(), "add parser\n\nbody text\n", "my-key")
		require.NoError(t, err)
		require.Empty(t, values)
	})

	t.Run("ignores trailer-shaped lines outside the trailer block", func(t *testing.T) {
		testhelpers.NewScene(t, testhelpers.BasicSceneSetup)

		// The key sits in a middle paragraph, so git does not treat it as
		// a trailer.
		message := "add parser\n\nmy-key: buried\n\nMore prose after it.\n"
		values, err := git.ParseTrailers(context.Background(), message, "my-key")
		require.NoError(t, err)
		require.Empty(t, values)
	})
}

func TestAddTrailerToFile(t *testing.T) {
	t.Run("appends a trailer block to a bare subject", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)

		path := filepath.Join(scene.Dir, "COMMIT_EDITMSG")
		require.NoError(t, os.WriteFile(path, []byte("add parser\n"), 0644))

		err := git.AddTrailerToFile(context.Background(), path, "my-key", "gvalue")
		require.NoError(t, err)

		content := string(testhelpers.Must(os.ReadFile(path)))
		require.Contains(t, content, "my-key: gvalue")

		values, err := git.ParseTrailers(context.Background(), content, "my-key")
		require.NoError(t, err)
		require.Equal(t, []string{"gvalue"}, values)
	})

	t.Run("keeps an existing trailer with the same key", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)

		path := filepath.Join(scene.Dir, "COMMIT_EDITMSG")
		original := "add parser\n\nmy-key: goriginal\n"
		require.NoError(t, os.WriteFile(path, []byte(original), 0644))

		err := git.AddTrailerToFile(context.Background(), path, "my-key", "greplacement")
		require.NoError(t, err)

		content := string(testhelpers.Must(os.ReadFile(path)))
		require.Contains(t, content, "my-key: goriginal")
		require.NotContains(t, content, "greplacement")
	})

	t.Run("inserts before existing trailers of other keys", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)

		path := filepath.Join(scene.Dir, "COMMIT_EDITMSG")
		require.NoError(t, os.WriteFile(path, []byte("add parser\n\nSigned-off-by: Test User <test@example.com>\n"), 0644))

		err := git.AddTrailerToFile(context.Background(), path, "my-key", "gvalue")
		require.NoError(t, err)

		content := string(testhelpers.Must(os.ReadFile(path)))
		keyIdx := strings.Index(content, "my-key:")
		signoffIdx := strings.Index(content, "Signed-off-by:")
		require.GreaterOrEqual(t, keyIdx, 0)
		require.GreaterOrEqual(t, signoffIdx, 0)
		require.Less(t, keyIdx, signoffIdx)
	})
}

func TestStripTrailer(t *testing.T) {
	t.Run("removes every line of the key", func(t *testing.T) {
		message := "body text\n\nmy-key: one\nOther-key: kept\nmy-key: two\n"
		got := git.StripTrailer(message, "my-key")
		require.NotContains(t, got, "my-key")
		require.Contains(t, got, "body text")
		require.Contains(t, got, "Other-key: kept")
	})

	t.Run("trims trailing newlines", func(t *testing.T) {
		got := git.StripTrailer("body text\n\nmy-key: one\n", "my-key")
		require.Equal(t, "body text", got)
	})

	t.Run("leaves messages without the key alone", func(t *testing.T) {
		require.Equal(t, "just a subject", git.StripTrailer("just a subject", "my-key"))
	})
}
