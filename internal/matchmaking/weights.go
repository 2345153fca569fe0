// Package matchmaking decides which four players play next and how they are
// split into two teams. Everything in this package is a pure function of its
// inputs; randomness is injected through *rand.Rand.
package matchmaking

// Weights holds every coefficient used by the scorer and the balancer. The
// yaml tags allow partial overrides from a weights file.
type Weights struct {
	Base float64 `yaml:"base"`

	ZeroGamesBonus       float64 `yaml:"zero_games_bonus"`
	GamesPlayedPenalty   float64 `yaml:"games_played_penalty"`
	NeverPlayedBonus     float64 `yaml:"never_played_bonus"`
	WaitBonus            float64 `yaml:"wait_bonus"`
	WaitCapMinutes       float64 `yaml:"wait_cap_minutes"`
	StatusNoGames        float64 `yaml:"status_nogames"`
	StatusWaiting        float64 `yaml:"status_waiting"`
	StatusResting        float64 `yaml:"status_resting"`
	StatusPlaying        float64 `yaml:"status_playing"`
	StatusQueued         float64 `yaml:"status_queued"`
	PartnerPenalty       float64 `yaml:"partner_penalty"`
	SkillDeviation       float64 `yaml:"skill_deviation"`
	SimilarSkillRange    int     `yaml:"similar_skill_range"`
	SimilarSkillBonus    float64 `yaml:"similar_skill_bonus"`
	MinScore             int     `yaml:"min_score"`
	FamiliarityExponent  float64 `yaml:"familiarity_exponent"`
	TeammateWeight       float64 `yaml:"teammate_weight"`
	OpponentWeight       float64 `yaml:"opponent_weight"`
	RecentPartnerPenalty float64 `yaml:"recent_partner_penalty"`
	SkillBalancePenalty  float64 `yaml:"skill_balance_penalty"`
}

// DefaultWeights returns the canonical coefficients.
func DefaultWeights() Weights {
	return Weights{
		Base:                 100,
		ZeroGamesBonus:       200,
		GamesPlayedPenalty:   100,
		NeverPlayedBonus:     150,
		WaitBonus:            100,
		WaitCapMinutes:       60,
		StatusNoGames:        50,
		StatusWaiting:        30,
		StatusResting:        -20,
		StatusPlaying:        -100,
		StatusQueued:         0,
		PartnerPenalty:       10,
		SkillDeviation:       15,
		SimilarSkillRange:    2,
		SimilarSkillBonus:    5,
		MinScore:             1,
		FamiliarityExponent:  1.5,
		TeammateWeight:       2,
		OpponentWeight:       1,
		RecentPartnerPenalty: 100000,
		SkillBalancePenalty:  50,
	}
}
