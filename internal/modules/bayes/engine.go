// Package bayes selects binary actions from entropy and coherence
// evidence. Priors come from fixed thresholds, the joint distribution
// from a piecewise influence table, and the action from the conditional
// probability of the action given high coherence.
package bayes

import (
	"github.com/rs/zerolog"
)

// Probability floor used wherever a prior could be zero.
const epsilon = 1e-6

const (
	highEntropyThreshold   = 0.8
	highCoherenceThreshold = 0.6
	actionThreshold        = 0.5
)

// Decision records one full inference pass, intermediates included.
type Decision struct {
	Entropy            float64 `json:"entropy"`
	Coherence          float64 `json:"coherence"`
	Influence          float64 `json:"influence"`
	HighEntropyPrior   float64 `json:"high_entropy_prior"`
	HighCoherencePrior float64 `json:"high_coherence_prior"`
	JointProbability   float64 `json:"joint_probability"`
	PosteriorAGivenB   float64 `json:"posterior_a_given_b"`
	ConditionalAction  float64 `json:"conditional_action_given_b"`
	ActionToTake       int     `json:"action_to_take"`
}

// Engine performs Bayesian inference over entropy and coherence
// evidence. Stateless apart from its logger, safe for concurrent use.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a new inference engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		log: log.With().Str("component", "bayes").Logger(),
	}
}

// Posterior returns conditionalBGivenA·priorA normalized by priorB,
// with priorB floored at epsilon when zero.
func (e *Engine) Posterior(priorA, priorB, conditionalBGivenA float64) float64 {
	if priorB == 0 {
		priorB = epsilon
	}
	return conditionalBGivenA * priorA / priorB
}

// Conditional returns joint/prior with the prior floored at epsilon
// when zero.
func (e *Engine) Conditional(joint, prior float64) float64 {
	if prior == 0 {
		prior = epsilon
	}
	return joint / prior
}

// HighEntropyPrior maps entropy evidence to a prior: 0.3 above the high
// entropy threshold, 0.1 otherwise.
func (e *Engine) HighEntropyPrior(entropy float64) float64 {
	if entropy > highEntropyThreshold {
		return 0.3
	}
	return 0.1
}

// HighCoherencePrior maps coherence evidence to a prior: 0.6 above the
// high coherence threshold, 0.2 otherwise.
func (e *Engine) HighCoherencePrior(coherence float64) float64 {
	if coherence > highCoherenceThreshold {
		return 0.6
	}
	return 0.2
}

// JointProbability evaluates the piecewise policy table. With high
// coherence the influence interpolates between the action-1 weights
// (0.8, 0.2) and the action-0 weights (0.1, 0.7); without it the joint
// is the constant 0.3.
func (e *Engine) JointProbability(coherence float64, action int, influence float64) float64 {
	if coherence > highCoherenceThreshold {
		if action == 1 {
			return influence*0.8 + (1-influence)*0.2
		}
		return influence*0.1 + (1-influence)*0.7
	}
	return 0.3
}

// selectAction fires only when the conditional strictly exceeds the
// action threshold; a conditional of exactly 0.5 keeps action 0.
func selectAction(conditional float64) int {
	if conditional > actionThreshold {
		return 1
	}
	return 0
}

// Decide runs one full inference pass and returns the complete decision
// record. The action fires only when the conditional strictly exceeds
// the action threshold.
func (e *Engine) Decide(entropy, coherence, influence float64, action int) Decision {
	highEntropyPrior := e.HighEntropyPrior(entropy)
	highCoherencePrior := e.HighCoherencePrior(coherence)

	conditionalBGivenA := 0.2
	if entropy > highEntropyThreshold {
		conditionalBGivenA = influence*0.7 + (1-influence)*0.3
	}

	posteriorAGivenB := e.Posterior(highEntropyPrior, highCoherencePrior, conditionalBGivenA)
	joint := e.JointProbability(coherence, action, influence)
	conditionalAction := e.Conditional(joint, highCoherencePrior)

	actionToTake := selectAction(conditionalAction)

	decision := Decision{
		Entropy:            entropy,
		Coherence:          coherence,
		Influence:          influence,
		HighEntropyPrior:   highEntropyPrior,
		HighCoherencePrior: highCoherencePrior,
		JointProbability:   joint,
		PosteriorAGivenB:   posteriorAGivenB,
		ConditionalAction:  conditionalAction,
		ActionToTake:       actionToTake,
	}

	e.log.Debug().
		Float64("entropy", entropy).
		Float64("coherence", coherence).
		Float64("conditional", conditionalAction).
		Int("action", actionToTake).
		Msg("Bayes decision")

	return decision
}
