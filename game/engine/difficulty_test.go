package engine

import (
	"errors"
	"testing"
)

func TestDifficultyLevel(t *testing.T) {
	tests := []struct {
		difficulty Difficulty
		pairs      int
		cards      int
	}{
		{Easy, 2, 4},
		{Medium, 4, 8},
		{Hard, 8, 16},
	}

	for _, tt := range tests {
		level, ok := tt.difficulty.Level()
		if !ok {
			t.Fatalf("Expected %s to be known", tt.difficulty)
		}
		if level.Pairs != tt.pairs {
			t.Errorf("%s: expected %d pairs, got %d", tt.difficulty, tt.pairs, level.Pairs)
		}
		if level.Cards() != tt.cards {
			t.Errorf("%s: expected %d cards, got %d", tt.difficulty, tt.cards, level.Cards())
		}
	}

	if _, ok := Difficulty("legendary").Level(); ok {
		t.Error("Expected unknown difficulty to have no level")
	}
}

func TestDifficulties(t *testing.T) {
	all := Difficulties()
	if len(all) != 3 {
		t.Fatalf("Expected 3 difficulties, got %d", len(all))
	}
	for _, d := range all {
		if !d.Valid() {
			t.Errorf("Expected %s to be valid", d)
		}
	}
}

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		in      string
		want    Difficulty
		wantErr bool
	}{
		{"easy", Easy, false},
		{"Medium", Medium, false},
		{"  HARD ", Hard, false},
		{"", "", true},
		{"expert", "", true},
	}

	for _, tt := range tests {
		got, err := ParseDifficulty(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownDifficulty) {
				t.Errorf("ParseDifficulty(%q): expected ErrUnknownDifficulty, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDifficulty(%q): unexpected error %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseDifficulty(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
