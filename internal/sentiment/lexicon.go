package sentiment

// Raw valences on a -4..+4 scale, normalized at scoring time. General
// sentiment words plus the finance/social slang that dominates the posts we
// ingest. Extend based on what shows up in real data.
var lexicon = map[string]float64{
	// positive
	"good":        1.9,
	"great":       3.1,
	"awesome":     3.1,
	"amazing":     2.8,
	"excellent":   2.7,
	"love":        3.2,
	"loved":       2.9,
	"like":        1.5,
	"win":         2.8,
	"winning":     2.4,
	"winner":      2.8,
	"profit":      2.1,
	"profits":     2.1,
	"gain":        2.4,
	"gains":       2.4,
	"up":          1.2,
	"upside":      1.7,
	"strong":      2.3,
	"beat":        1.9,
	"beats":       1.9,
	"growth":      2.0,
	"growing":     1.8,
	"bullish":     3.0,
	"bull":        1.6,
	"moon":        2.6,
	"mooning":     3.0,
	"rocket":      2.4,
	"rally":       2.2,
	"rallying":    2.2,
	"ripping":     2.3,
	"soaring":     2.8,
	"soar":        2.6,
	"surge":       2.3,
	"surging":     2.3,
	"breakout":    1.9,
	"undervalued": 1.8,
	"buy":         1.3,
	"buying":      1.3,
	"hold":        0.6,
	"holding":     0.6,
	"solid":       1.9,
	"nice":        1.8,
	"happy":       2.7,
	"hype":        1.2,
	"hyped":       1.5,
	"easy":        1.1,
	"free":        1.4,
	"yes":         1.0,
	"recover":     1.6,
	"recovery":    1.6,
	"rebound":     1.8,
	"printing":    2.0,
	"stonks":      1.7,

	// negative
	"bad":          -2.5,
	"terrible":     -3.1,
	"awful":        -2.6,
	"horrible":     -2.9,
	"hate":         -2.7,
	"hated":        -2.6,
	"worst":        -3.4,
	"lose":         -2.4,
	"losing":       -2.4,
	"loss":         -2.3,
	"losses":       -2.3,
	"loser":        -2.8,
	"down":         -1.2,
	"downside":     -1.6,
	"weak":         -1.9,
	"miss":         -1.5,
	"missed":       -1.5,
	"bearish":      -3.0,
	"bear":         -1.4,
	"crash":        -2.9,
	"crashing":     -3.1,
	"crashed":      -2.9,
	"crushing":     -2.0,
	"crushed":      -1.9,
	"tank":         -2.3,
	"tanking":      -2.5,
	"tanked":       -2.5,
	"dump":         -2.1,
	"dumping":      -2.3,
	"dumped":       -2.1,
	"plunge":       -2.6,
	"plunging":     -2.6,
	"plummet":      -2.8,
	"plummeting":   -2.8,
	"collapse":     -2.9,
	"collapsing":   -2.9,
	"bleed":        -2.0,
	"bleeding":     -2.2,
	"sell":         -1.1,
	"selling":      -1.1,
	"selloff":      -2.0,
	"short":        -0.9,
	"shorting":     -1.3,
	"overvalued":   -1.8,
	"bubble":       -1.7,
	"scam":         -3.2,
	"fraud":        -3.3,
	"bankrupt":     -3.4,
	"bankruptcy":   -3.4,
	"lawsuit":      -1.8,
	"recall":       -1.6,
	"layoffs":      -2.2,
	"drop":         -1.5,
	"dropping":     -1.7,
	"dropped":      -1.5,
	"fear":         -2.2,
	"scared":       -2.0,
	"panic":        -2.6,
	"ugly":         -2.3,
	"pain":         -2.3,
	"rekt":         -2.9,
	"rug":          -2.4,
	"bagholder":    -2.2,
	"bagholders":   -2.2,
	"overpriced":   -1.7,
	"disappointed": -2.2,
	"risky":        -1.3,
	"dip":          -0.9,
}

// idioms override the word-by-word valence for multi-word expressions whose
// meaning diverges from their parts ("crushing it" is praise even though
// "crushing" alone reads negative).
var idioms = map[string]float64{
	"crushing it":     2.8,
	"crushed it":      2.8,
	"killing it":      2.7,
	"killed it":       2.5,
	"to the moon":     3.0,
	"diamond hands":   1.9,
	"paper hands":     -1.6,
	"bag holder":      -2.2,
	"dead cat":        -1.8,
	"rug pull":        -2.9,
	"short squeeze":   1.6,
	"buy the dip":     1.7,
	"catching knives": -1.9,
	"cutting edge":    1.6,
	"blow out":        2.1,
	"blew out":        2.1,
}

// Degree modifiers. Positive values intensify the following word, negative
// values dampen it.
var boosters = map[string]float64{
	"absolutely":   0.293,
	"completely":   0.293,
	"extremely":    0.293,
	"really":       0.293,
	"very":         0.293,
	"so":           0.293,
	"super":        0.293,
	"totally":      0.293,
	"massively":    0.293,
	"insanely":     0.293,
	"hugely":       0.293,
	"incredibly":   0.293,
	"hard":         0.293,
	"hardcore":     0.293,
	"deeply":       0.293,
	"barely":       -0.293,
	"hardly":       -0.293,
	"kinda":        -0.293,
	"slightly":     -0.293,
	"somewhat":     -0.293,
	"marginally":   -0.293,
}

// negations flip the valence of a nearby word.
var negations = map[string]struct{}{
	"not":     {},
	"no":      {},
	"never":   {},
	"neither": {},
	"nor":     {},
	"nobody":  {},
	"nothing": {},
	"none":    {},
	"cannot":  {},
	"cant":    {},
	"wont":    {},
	"without": {},
	"aint":    {},
	"isnt":    {},
	"arent":   {},
	"wasnt":   {},
	"werent":  {},
	"dont":    {},
	"doesnt":  {},
	"didnt":   {},
	"couldnt": {},
	"wouldnt": {},
	"shouldnt": {},
}
