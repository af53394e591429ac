package service

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"

	"gopkg.in/yaml.v3"
)

//go:embed usernames.yaml
var usernameWordsYAML []byte

// MaxUsernameAttempts bounds GenerateUnique.
const MaxUsernameAttempts = 10

// ErrNoUniqueUsername is returned when every attempt collided.
var ErrNoUniqueUsername = errors.New("could not generate a unique username")

type usernameWords struct {
	Adjectives []string `yaml:"adjectives"`
	Nouns      []string `yaml:"nouns"`
}

// UsernameGenerator builds anonymous names of the form <Adjective><Noun><NN>.
type UsernameGenerator struct {
	words  usernameWords
	intN   func(n int) int
	exists func(ctx context.Context, username string) (bool, error)
}

// NewUsernameGenerator loads the embedded word lists. exists reports whether
// a name is already taken.
func NewUsernameGenerator(exists func(ctx context.Context, username string) (bool, error)) (*UsernameGenerator, error) {
	var words usernameWords
	if err := yaml.Unmarshal(usernameWordsYAML, &words); err != nil {
		return nil, fmt.Errorf("parse username words: %w", err)
	}
	if len(words.Adjectives) == 0 || len(words.Nouns) == 0 {
		return nil, errors.New("username word lists are empty")
	}
	return &UsernameGenerator{
		words:  words,
		intN:   rand.IntN, // #nosec G404: names are not secrets
		exists: exists,
	}, nil
}

// Generate returns a random name without checking uniqueness.
func (g *UsernameGenerator) Generate() string {
	adj := g.words.Adjectives[g.intN(len(g.words.Adjectives))]
	noun := g.words.Nouns[g.intN(len(g.words.Nouns))]
	return fmt.Sprintf("%s%s%02d", adj, noun, g.intN(100))
}

// GenerateUnique retries Generate until the name is unused.
func (g *UsernameGenerator) GenerateUnique(ctx context.Context) (string, error) {
	for range MaxUsernameAttempts {
		name := g.Generate()
		if g.exists == nil {
			return name, nil
		}
		taken, err := g.exists(ctx, name)
		if err != nil {
			return "", err
		}
		if !taken {
			return name, nil
		}
	}
	return "", ErrNoUniqueUsername
}
