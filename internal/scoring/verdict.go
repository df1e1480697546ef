package scoring

// Verdict is the three-way outcome behind the is_gluten_free flag.
type Verdict string

const (
	VerdictGlutenFree       Verdict = "gluten_free"
	VerdictContainsGluten   Verdict = "contains_gluten"
	VerdictMayContainGluten Verdict = "may_contain_gluten"
)

// LikelyGlutenThreshold is the confidence above which one flagged
// ingredient makes the whole product "likely" to contain gluten.
const LikelyGlutenThreshold = 0.7

const (
	MessageNoGluten        = "No gluten-containing ingredients detected."
	MessageLikelyGluten    = "This product contains ingredients that likely have gluten."
	MessageMayHaveGluten   = "This product contains ingredients that may have gluten. Caution is advised."
	MessageAllergenClaim   = "Product explicitly states it contains gluten ingredients."
	MessageGlutenFreeClaim = "Product is labeled as gluten-free."
)

// AnalysisResult is the classification of one ingredient text.
type AnalysisResult struct {
	IsGlutenFree       bool             `json:"is_gluten_free"`
	Verdict            Verdict          `json:"verdict"`
	Message            string           `json:"message"`
	FlaggedIngredients []IngredientRule `json:"flagged_ingredients"`
}

// Aggregate turns the flagged ingredients into the final verdict. The
// flagged order is kept as collected.
func Aggregate(flagged []IngredientRule) AnalysisResult {
	if len(flagged) == 0 {
		return AnalysisResult{
			IsGlutenFree:       true,
			Verdict:            VerdictGlutenFree,
			Message:            MessageNoGluten,
			FlaggedIngredients: []IngredientRule{},
		}
	}

	out := append([]IngredientRule(nil), flagged...)
	for _, rule := range flagged {
		if rule.Confidence > LikelyGlutenThreshold {
			return AnalysisResult{
				IsGlutenFree:       false,
				Verdict:            VerdictContainsGluten,
				Message:            MessageLikelyGluten,
				FlaggedIngredients: out,
			}
		}
	}
	return AnalysisResult{
		IsGlutenFree:       false,
		Verdict:            VerdictMayContainGluten,
		Message:            MessageMayHaveGluten,
		FlaggedIngredients: out,
	}
}
