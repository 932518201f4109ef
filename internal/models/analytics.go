// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package models

import "time"

// PowerIndexRow holds the voting-power figures for one club.
type PowerIndexRow struct {
	Club     string  `json:"club"`
	Seats    int     `json:"seats"`
	SeatsPct float64 `json:"seatsPct"`
	// Shapley is the Shapley-Shubik index: the fraction of club orderings in
	// which this club is pivotal. Indices over all clubs sum to 1.
	Shapley float64 `json:"shapley"`
	// Banzhaf is the normalized Banzhaf index: this club's critical-subset
	// count divided by the total across all clubs.
	Banzhaf float64 `json:"banzhaf"`
}

// CohesionRow holds the average Rice cohesion for one club across the
// votings in scope.
type CohesionRow struct {
	Club string `json:"club"`
	// Rice is the mean Rice index over votings where the club cast at least
	// one YES or NO vote; nil when no voting qualified.
	Rice *float64 `json:"rice"`
	// Votings is the number of votings included in the average.
	Votings int `json:"votings"`
}

// Coalition is one minimum winning coalition: a winning set of clubs from
// which no member can be removed without dropping below the majority quota.
type Coalition struct {
	Clubs   []string `json:"clubs"` // sorted, no duplicates
	Seats   int      `json:"seats"`
	Surplus int      `json:"surplus"` // seats above the quota
}

// AgreementMatrix is the pairwise club agreement, keyed [clubA][clubB].
// Values are fractions in [0,1]; a pair with no shared decided votings is
// absent from the map rather than reported as zero.
type AgreementMatrix map[string]map[string]float64

// TransitionRow holds Markov voting-dynamics figures for one club, derived
// from the date-ordered sequence of its majority decisions.
type TransitionRow struct {
	Club string `json:"club"`
	// Momentum is the tendency to repeat the previous direction,
	// (P(yes->yes) + P(no->no)) / 2.
	Momentum float64 `json:"momentum"`
	// Volatility is the tendency to switch direction,
	// (P(yes->no) + P(no->yes)) / 2.
	Volatility float64 `json:"volatility"`
	// Decisions is the length of the decision sequence used.
	Decisions int `json:"decisions"`
}

// TopicCluster groups a term's legislative processes sharing a detected
// subject area, largest cluster first in a snapshot.
type TopicCluster struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
	// ProcessCount is the number of processes in the cluster.
	ProcessCount int `json:"processCount"`
	// PassRate is the fraction of the cluster's processes recorded as passed;
	// processes without a recorded outcome count against it.
	PassRate      float64  `json:"passRate"`
	ExampleTitles []string `json:"exampleTitles"`
}

// FeatureWeight pairs a prediction feature with its learned weight.
type FeatureWeight struct {
	Feature string  `json:"feature"`
	Weight  float64 `json:"weight"`
}

// PredictionRow is the predicted outcome for one process without a recorded
// result.
type PredictionRow struct {
	ProcessID     string  `json:"processId"`
	Title         string  `json:"title"`
	PredictedPass bool    `json:"predictedPass"`
	Probability   float64 `json:"probability"`
}

// ConfusionMatrix tallies predictions against recorded outcomes.
type ConfusionMatrix struct {
	TruePositive  int `json:"truePositive"`
	FalsePositive int `json:"falsePositive"`
	TrueNegative  int `json:"trueNegative"`
	FalseNegative int `json:"falseNegative"`
}

// PredictionReport holds the pass-prediction model's self-evaluation on the
// term's decided processes and its predictions for the still-open ones.
type PredictionReport struct {
	// Samples is the number of decided processes the model was fitted on.
	Samples   int             `json:"samples"`
	Accuracy  float64         `json:"accuracy"`
	Precision float64         `json:"precision"`
	Recall    float64         `json:"recall"`
	F1        float64         `json:"f1"`
	Confusion ConfusionMatrix `json:"confusion"`
	// FeatureImportance lists the strongest features by absolute weight.
	FeatureImportance []FeatureWeight `json:"featureImportance"`
	// Pending holds predictions for processes without a recorded outcome.
	Pending []PredictionRow `json:"pending,omitempty"`
}

// AnalyticsSnapshot bundles every derived metric for a term, with metadata
// on when and from how complete a dataset it was computed.
type AnalyticsSnapshot struct {
	Term       int       `json:"term"`
	ComputedAt time.Time `json:"computedAt"`
	// Complete is false when the underlying data failed validation or had no
	// vote-level records for part of the scope.
	Complete bool `json:"complete"`

	PowerIndices []PowerIndexRow `json:"powerIndices"`
	Cohesion     []CohesionRow   `json:"cohesion"`
	Coalitions   []Coalition     `json:"coalitions"`
	Agreement    AgreementMatrix `json:"agreement"`
	Transitions  []TransitionRow `json:"transitions"`
	Topics       []TopicCluster  `json:"topics"`
	// Prediction is nil when the term has no decided processes to fit on.
	Prediction *PredictionReport `json:"prediction,omitempty"`
}
