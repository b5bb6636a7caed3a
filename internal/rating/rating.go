// Package rating derives the overall interview score from category ratings.
package rating

import (
	"fmt"

	"github.com/starford/recruitflow/internal/apperr"
	"github.com/starford/recruitflow/internal/models"
)

// Category bounds. Zero means "not rated" and still counts toward the sum.
const (
	MinScore = 0
	MaxScore = 5
)

// Aggregate returns the mean of the four categories rounded half-up to the
// nearest 0.5. Scores outside [MinScore, MaxScore] are rejected.
func Aggregate(r models.Ratings) (float64, error) {
	if err := Check(r); err != nil {
		return 0, err
	}
	sum := r.TechnicalSkills + r.Communication + r.ProblemSolving + r.CulturalFit
	// mean*2 == sum/2; half-up on a non-negative half-integer is (sum+1)/2.
	halves := (sum + 1) / 2
	return float64(halves) / 2, nil
}

// Check validates every category score.
func Check(r models.Ratings) error {
	fields := []struct {
		name  string
		score int
	}{
		{"technical_skills", r.TechnicalSkills},
		{"communication", r.Communication},
		{"problem_solving", r.ProblemSolving},
		{"cultural_fit", r.CulturalFit},
	}
	for _, f := range fields {
		if f.score < MinScore || f.score > MaxScore {
			return apperr.Invalid(fmt.Errorf("%s: must be between %d and %d, got %d",
				f.name, MinScore, MaxScore, f.score))
		}
	}
	return nil
}
