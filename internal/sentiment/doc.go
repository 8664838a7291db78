// Package sentiment scores the sentiment of social-media text with a
// lexicon/rule-based model: word polarity adjusted for negation, intensity
// modifiers, punctuation emphasis, and capitalization, normalized to [-1, 1].
// Scoring is stateless and deterministic, which the aggregation correctness
// tests and replayed rebuilds rely on.
package sentiment
