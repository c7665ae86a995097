package pack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rocketscienceinc/buzzer-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePack = `
name: Friday night
author: Host
rounds:
  - name: Warm up
    type: Normal
    topics:
      - name: Cats
        questions:
          - price: 100
            scenario:
              - type: Text
                content: How many lives does a cat have?
            answer:
              - type: Text
                content: Nine
          - price: 200
            type: PigInPoke
            scenario:
              - type: Image
                content: cats/tiger.png
`

func TestParse(t *testing.T) {
	t.Run("Valid pack is decoded", func(t *testing.T) {
		pack, err := Parse([]byte(samplePack))

		require.NoError(t, err)
		assert.Equal(t, "Friday night", pack.Name)
		require.Len(t, pack.Rounds, 1)

		questions := pack.Rounds[0].Topics[0].Questions
		require.Len(t, questions, 2)
		assert.Equal(t, entity.QuestionNormal, questions[0].Type)
		assert.Equal(t, "Nine", questions[0].Answer[0].Content)
		assert.Equal(t, entity.QuestionPigInPoke, questions[1].Type)
		assert.Equal(t, entity.MediaImage, questions[1].Media[0].MediaType)
		assert.False(t, questions[1].Used)
	})

	t.Run("Pack without rounds is rejected", func(t *testing.T) {
		_, err := Parse([]byte("name: empty\n"))

		require.ErrorIs(t, err, ErrInvalidPack)
	})

	t.Run("Unknown question type is rejected", func(t *testing.T) {
		data := `
rounds:
  - name: R
    topics:
      - name: T
        questions:
          - price: 100
            type: Lottery
`
		_, err := Parse([]byte(data))

		require.ErrorIs(t, err, ErrInvalidPack)
	})

	t.Run("Round without questions is rejected", func(t *testing.T) {
		data := `
rounds:
  - name: First
    topics:
      - name: T
        questions:
          - price: 100
  - name: Second
    topics:
      - name: Empty
        questions: []
`
		_, err := Parse([]byte(data))

		require.ErrorIs(t, err, ErrInvalidPack)
		assert.ErrorContains(t, err, `round "Second" has no questions`)
	})

	t.Run("Broken YAML is rejected", func(t *testing.T) {
		_, err := Parse([]byte("rounds: ["))

		require.Error(t, err)
	})
}

func TestLibrary_Load(t *testing.T) {
	writePack := func(t *testing.T, dir, name, content string) {
		t.Helper()

		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	t.Run("Pack is read from the library directory", func(t *testing.T) {
		dir := t.TempDir()
		writePack(t, dir, "friday/pack.yml", samplePack)

		pack, err := NewLibrary(dir).Load("friday/pack.yml")

		require.NoError(t, err)
		assert.Equal(t, "Host", pack.Author)
	})

	t.Run("Missing file fails", func(t *testing.T) {
		_, err := NewLibrary(t.TempDir()).Load("missing.yml")

		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Names leaving the directory are refused", func(t *testing.T) {
		// Given: a pack next to the library directory
		parent := t.TempDir()
		writePack(t, parent, "secret.yml", samplePack)
		library := NewLibrary(filepath.Join(parent, "packs"))
		require.NoError(t, os.Mkdir(filepath.Join(parent, "packs"), 0o700))

		// When: it is requested by a relative or an absolute path
		_, relErr := library.Load("../secret.yml")
		_, absErr := library.Load(filepath.Join(parent, "secret.yml"))

		// Then: neither is read
		require.ErrorIs(t, relErr, ErrOutsideLibrary)
		require.ErrorIs(t, absErr, ErrOutsideLibrary)
	})

	t.Run("Symlinks leaving the directory are refused", func(t *testing.T) {
		parent := t.TempDir()
		writePack(t, parent, "secret.yml", samplePack)
		dir := filepath.Join(parent, "packs")
		require.NoError(t, os.Mkdir(dir, 0o700))
		if err := os.Symlink(filepath.Join(parent, "secret.yml"), filepath.Join(dir, "link.yml")); err != nil {
			t.Skipf("symlinks are not supported: %v", err)
		}

		_, err := NewLibrary(dir).Load("link.yml")

		require.Error(t, err)
	})
}
