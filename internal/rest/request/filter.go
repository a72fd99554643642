package request

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Guyuepp/likers-match/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(feedFilterRanges, FeedFilter{})
	return v
}

// FeedFilter is the query string of the likers endpoints. Every clause is optional.
type FeedFilter struct {
	AgeMin          *int     `form:"age_min" validate:"omitempty,min=18,max=120"`
	AgeMax          *int     `form:"age_max" validate:"omitempty,min=18,max=120"`
	HeightMin       *int     `form:"height_min" validate:"omitempty,min=50,max=272"`
	HeightMax       *int     `form:"height_max" validate:"omitempty,min=50,max=272"`
	Intents         []string `form:"intents"`
	MaxDistanceKm   *float64 `form:"max_distance_km" validate:"omitempty,gt=0"`
	Occupations     []string `form:"occupations"`
	CompletenessMin *float64 `form:"completeness_min" validate:"omitempty,min=0,max=100"`
	CompletenessMax *float64 `form:"completeness_max" validate:"omitempty,min=0,max=100"`
	ScoreMin        *float64 `form:"score_min" validate:"omitempty,min=0,max=100"`
	ScoreMax        *float64 `form:"score_max" validate:"omitempty,min=0,max=100"`
}

func feedFilterRanges(sl validator.StructLevel) {
	f := sl.Current().Interface().(FeedFilter)
	if f.AgeMin != nil && f.AgeMax != nil && *f.AgeMin > *f.AgeMax {
		sl.ReportError(f.AgeMax, "AgeMax", "age_max", "gtefield", "AgeMin")
	}
	if f.HeightMin != nil && f.HeightMax != nil && *f.HeightMin > *f.HeightMax {
		sl.ReportError(f.HeightMax, "HeightMax", "height_max", "gtefield", "HeightMin")
	}
	if f.CompletenessMin != nil && f.CompletenessMax != nil && *f.CompletenessMin > *f.CompletenessMax {
		sl.ReportError(f.CompletenessMax, "CompletenessMax", "completeness_max", "gtefield", "CompletenessMin")
	}
	if f.ScoreMin != nil && f.ScoreMax != nil && *f.ScoreMin > *f.ScoreMax {
		sl.ReportError(f.ScoreMax, "ScoreMax", "score_max", "gtefield", "ScoreMin")
	}
}

// Validate checks value ranges and that no min is above its max
func (r *FeedFilter) Validate() error {
	return validate.Struct(r)
}

// ToDomain: Request -> Domain
func (r *FeedFilter) ToDomain() domain.FilterSpec {
	spec := domain.FilterSpec{
		Intents:       splitList(r.Intents),
		MaxDistanceKm: r.MaxDistanceKm,
		Occupations:   splitList(r.Occupations),
	}
	if r.AgeMin != nil || r.AgeMax != nil {
		spec.Age = &domain.IntRange{Min: r.AgeMin, Max: r.AgeMax}
	}
	if r.HeightMin != nil || r.HeightMax != nil {
		spec.HeightCm = &domain.IntRange{Min: r.HeightMin, Max: r.HeightMax}
	}
	if r.CompletenessMin != nil || r.CompletenessMax != nil {
		spec.Completeness = &domain.FloatRange{Min: r.CompletenessMin, Max: r.CompletenessMax}
	}
	if r.ScoreMin != nil || r.ScoreMax != nil {
		spec.MatchScore = &domain.FloatRange{Min: r.ScoreMin, Max: r.ScoreMax}
	}
	return spec
}

// splitList accepts both repeated params and comma separated values
func splitList(values []string) []string {
	var res []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				res = append(res, part)
			}
		}
	}
	return res
}
