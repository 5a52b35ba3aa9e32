package pkg

// ScoringRule describes how a single screening question is scored.
type ScoringRule struct {
	Rule  string  `json:"rule" yaml:"rule"`
	Score float64 `json:"score" yaml:"score"`
}

// JobContext is injected when a session is created and never mutated
// afterwards. Question order matters: knockout questions are asked
// strictly in order, and screening questions map to scoring rules by
// their exact text.
type JobContext struct {
	JobID             string                 `json:"job_id" yaml:"job_id"`
	Company           string                 `json:"company" yaml:"company"`
	KnockoutQuestions []string               `json:"knockout_questions" yaml:"knockout_questions"`
	Questions         []string               `json:"questions" yaml:"questions"`
	ScoringRules      map[string]ScoringRule `json:"scoring_rules" yaml:"scoring_rules"`
}

// MaxPossibleScore is the declared maximum: the sum of every rule's score.
func (j JobContext) MaxPossibleScore() float64 {
	var total float64
	for _, rule := range j.ScoringRules {
		total += rule.Score
	}
	return total
}
