// Package pack reads question packs from YAML files.
package pack

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/rocketscienceinc/buzzer-backend/internal/entity"
)

var (
	ErrInvalidPack    = errors.New("invalid pack")
	ErrOutsideLibrary = errors.New("pack is outside the pack directory")
)

// Library reads packs from one directory. Names are resolved inside it and
// may not escape it, through ".." or through symlinks.
type Library struct {
	dir string
}

func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// Load reads the pack stored under name, relative to the library directory.
func (that *Library) Load(name string) (entity.Pack, error) {
	if !filepath.IsLocal(name) {
		return entity.Pack{}, fmt.Errorf("%w: %q", ErrOutsideLibrary, name)
	}

	root, err := os.OpenRoot(that.dir)
	if err != nil {
		return entity.Pack{}, fmt.Errorf("failed to open pack directory: %w", err)
	}
	defer root.Close()

	file, err := root.Open(name)
	if err != nil {
		return entity.Pack{}, fmt.Errorf("failed to open pack %q: %w", name, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return entity.Pack{}, fmt.Errorf("failed to read pack %q: %w", name, err)
	}

	pack, err := Parse(data)
	if err != nil {
		return entity.Pack{}, fmt.Errorf("failed to parse pack %q: %w", name, err)
	}

	return pack, nil
}

// Parse decodes a pack. Questions without a type are Normal.
func Parse(data []byte) (entity.Pack, error) {
	var pack entity.Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return entity.Pack{}, fmt.Errorf("failed to unmarshal pack: %w", err)
	}

	if len(pack.Rounds) == 0 {
		return entity.Pack{}, fmt.Errorf("%w: no rounds", ErrInvalidPack)
	}

	for r := range pack.Rounds {
		round := &pack.Rounds[r]
		if len(round.Topics) == 0 {
			return entity.Pack{}, fmt.Errorf("%w: round %q has no topics", ErrInvalidPack, round.Name)
		}

		questions := 0
		for t := range round.Topics {
			topic := &round.Topics[t]
			questions += len(topic.Questions)
			for q := range topic.Questions {
				if err := normalize(&topic.Questions[q]); err != nil {
					return entity.Pack{}, fmt.Errorf("%w: round %q topic %q question %d: %w", ErrInvalidPack, round.Name, topic.Name, q, err)
				}
			}
		}

		if questions == 0 {
			return entity.Pack{}, fmt.Errorf("%w: round %q has no questions", ErrInvalidPack, round.Name)
		}
	}

	return pack, nil
}

func normalize(question *entity.Question) error {
	if question.Price <= 0 {
		return fmt.Errorf("price %d is not positive", question.Price)
	}

	switch question.Type {
	case "":
		question.Type = entity.QuestionNormal
	case entity.QuestionNormal, entity.QuestionPigInPoke, entity.QuestionAuction:
	default:
		return fmt.Errorf("unknown question type %q", question.Type)
	}

	for _, media := range slices.Concat(question.Media, question.Answer) {
		switch media.MediaType {
		case entity.MediaText, entity.MediaVoice, entity.MediaVideo, entity.MediaImage, entity.MediaMarker:
		default:
			return fmt.Errorf("unknown media type %q", media.MediaType)
		}
	}

	return nil
}
