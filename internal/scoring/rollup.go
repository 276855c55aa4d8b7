package scoring

// RollupTotal is the weighted sum over enabled categories. It ignores
// the rollup mode.
func RollupTotal(results map[Category]ScoreResult, cfg Config) float64 {
	total := 0.0
	for _, c := range Categories {
		if !cfg.EnabledCards[c] {
			continue
		}
		total += cfg.Weights[c] * results[c].Value()
	}
	return total
}

// Rollup combines category results into one client status. Only enabled
// categories participate; with none enabled the client is Green.
func Rollup(results map[Category]ScoreResult, cfg Config) Status {
	enabled := 0
	for _, c := range Categories {
		if cfg.EnabledCards[c] {
			enabled++
		}
	}
	if enabled == 0 {
		return Green
	}

	if cfg.RollupMode == RollupWeighted {
		status, _ := classify(RollupTotal(results, cfg), cfg.ScoringBands)
		return status
	}

	worst := Green
	for _, c := range Categories {
		if !cfg.EnabledCards[c] {
			continue
		}
		switch results[c].Status {
		case Red:
			return Red
		case Amber:
			worst = Amber
		}
	}
	return worst
}
