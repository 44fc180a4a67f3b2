package tasks

import (
	"testing"

	"github.com/desertthunder/lunastream/internal/models"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		title string
		query string
		want  int
	}{
		{"Exact", "Matrix", "matrix", 100},
		{"Exact Case Insensitive", "MATRIX", "Matrix", 100},
		{"Prefix", "Matrix Reloaded", "matrix", 50},
		{"Contains", "The Matrix", "matrix", 10},
		{"No Match", "Inception", "matrix", 0},
		{"Empty Query", "Anything", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.title, tt.query); got != tt.want {
				t.Errorf("Score(%q, %q) = %d, want %d", tt.title, tt.query, got, tt.want)
			}
		})
	}
}

func TestRank(t *testing.T) {
	t.Run("Three Tiers Then Unmatched", func(t *testing.T) {
		in := []models.Title{
			{Name: "Inception", Popularity: 999},
			{Name: "The Matrix", Popularity: 50},
			{Name: "Matrix Reloaded", Popularity: 10},
			{Name: "Matrix", Popularity: 1},
		}
		got := Rank("Matrix", in)

		want := []string{"Matrix", "Matrix Reloaded", "The Matrix", "Inception"}
		for i, name := range want {
			if got[i].Name != name {
				t.Errorf("position %d: expected %q, got %q", i, name, got[i].Name)
			}
		}
	})

	t.Run("Ties Resolve By Popularity", func(t *testing.T) {
		in := []models.Title{
			{Name: "Matrix Resurrections", Popularity: 5},
			{Name: "Matrix Reloaded", Popularity: 80},
			{Name: "Matrix Revolutions", Popularity: 40},
		}
		got := Rank("matrix", in)

		if got[0].Name != "Matrix Reloaded" || got[1].Name != "Matrix Revolutions" || got[2].Name != "Matrix Resurrections" {
			t.Errorf("unexpected order %v, %v, %v", got[0].Name, got[1].Name, got[2].Name)
		}
	})

	t.Run("Does Not Modify Input", func(t *testing.T) {
		in := []models.Title{{Name: "B"}, {Name: "A"}}
		Rank("a", in)
		if in[0].Name != "B" {
			t.Error("expected input order to be preserved")
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if got := Rank("x", nil); len(got) != 0 {
			t.Errorf("expected empty result, got %v", got)
		}
	})
}

func TestSortTitles(t *testing.T) {
	titles := func() []models.Title {
		return []models.Title{
			{Name: "A", Rating: 6.1, Popularity: 300, ReleaseDate: "2001-01-01"},
			{Name: "B", Rating: 8.7, Popularity: 100, ReleaseDate: "2019-06-01"},
			{Name: "C", Rating: 7.2, Popularity: 200, ReleaseDate: "1999-03-31"},
		}
	}

	tests := []struct {
		order SortOrder
		want  string
	}{
		{SortRating, "BCA"},
		{SortPopularity, "ACB"},
		{SortRelease, "BAC"},
		{SortRelevance, "ABC"},
	}

	for _, tt := range tests {
		t.Run(string(tt.order), func(t *testing.T) {
			ts := titles()
			SortTitles(ts, tt.order)
			got := ts[0].Name + ts[1].Name + ts[2].Name
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
