// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package analytics

import (
	"math"
	"sort"

	"github.com/plenumlab/plenum/internal/models"
)

// Gradient-descent hyperparameters for the pass-prediction model.
const (
	learnRate       = 0.1
	trainIterations = 1000
	// importanceCutoff caps the reported feature-importance list.
	importanceCutoff = 15
)

// unknownDocType stands in for processes without a document type.
const unknownDocType = "unknown"

// passModel is a logistic-regression classifier over the one-hot document
// type and detected topic of a process, plus the historical pass rates of
// both. Fitted per term on the decided processes.
type passModel struct {
	docTypes  []string
	topics    []string
	baseRates map[string]float64
	weights   []float64
	bias      float64
}

func sigmoid(z float64) float64 {
	if z > 500 {
		z = 500
	} else if z < -500 {
		z = -500
	}
	return 1 / (1 + math.Exp(-z))
}

func docTypeOf(p *models.Process) string {
	if p.DocumentType != nil && *p.DocumentType != "" {
		return *p.DocumentType
	}
	return unknownDocType
}

func (m *passModel) features(p *models.Process) []float64 {
	f := make([]float64, 0, len(m.docTypes)+len(m.topics)+2)
	dt := docTypeOf(p)
	for _, c := range m.docTypes {
		if dt == c {
			f = append(f, 1)
		} else {
			f = append(f, 0)
		}
	}
	topic := DetectTopic(p.Title)
	for _, c := range m.topics {
		if topic == c {
			f = append(f, 1)
		} else {
			f = append(f, 0)
		}
	}
	f = append(f, rateOr(m.baseRates, dt))
	f = append(f, rateOr(m.baseRates, "topic_"+topic))
	return f
}

// rateOr returns the historical rate for a key, 0.5 for unseen keys.
func rateOr(rates map[string]float64, key string) float64 {
	if r, ok := rates[key]; ok {
		return r
	}
	return 0.5
}

func (m *passModel) featureNames() []string {
	names := make([]string, 0, len(m.docTypes)+len(m.topics)+2)
	names = append(names, m.docTypes...)
	for _, t := range m.topics {
		names = append(names, "topic_"+t)
	}
	return append(names, "base_rate_doctype", "base_rate_topic")
}

func (m *passModel) predict(p *models.Process) (pass bool, prob float64) {
	prob = sigmoid(dot(m.features(p), m.weights) + m.bias)
	return prob > 0.5, prob
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// trainPassModel fits the classifier on decided processes by batch gradient
// descent on the log loss.
func trainPassModel(labeled []*models.Process) *passModel {
	docTypeSet := make(map[string][]int) // value: [passed, total]
	topicSet := make(map[string][]int)
	for _, p := range labeled {
		pass := 0
		if *p.Passed {
			pass = 1
		}
		dt := docTypeOf(p)
		topic := DetectTopic(p.Title)
		if docTypeSet[dt] == nil {
			docTypeSet[dt] = make([]int, 2)
		}
		if topicSet[topic] == nil {
			topicSet[topic] = make([]int, 2)
		}
		docTypeSet[dt][0] += pass
		docTypeSet[dt][1]++
		topicSet[topic][0] += pass
		topicSet[topic][1]++
	}

	model := &passModel{baseRates: make(map[string]float64)}
	for dt, c := range docTypeSet {
		model.docTypes = append(model.docTypes, dt)
		model.baseRates[dt] = float64(c[0]) / float64(c[1])
	}
	for topic, c := range topicSet {
		model.topics = append(model.topics, topic)
		model.baseRates["topic_"+topic] = float64(c[0]) / float64(c[1])
	}
	sort.Strings(model.docTypes)
	sort.Strings(model.topics)

	features := make([][]float64, len(labeled))
	targets := make([]float64, len(labeled))
	model.weights = make([]float64, len(model.docTypes)+len(model.topics)+2)
	for i, p := range labeled {
		features[i] = model.features(p)
		if *p.Passed {
			targets[i] = 1
		}
	}

	n := float64(len(labeled))
	grad := make([]float64, len(model.weights))
	for it := 0; it < trainIterations; it++ {
		for j := range grad {
			grad[j] = 0
		}
		gradBias := 0.0
		for i, x := range features {
			e := sigmoid(dot(x, model.weights)+model.bias) - targets[i]
			for j := range x {
				grad[j] += e * x[j]
			}
			gradBias += e
		}
		for j := range model.weights {
			model.weights[j] -= learnRate * grad[j] / n
		}
		model.bias -= learnRate * gradBias / n
	}
	return model
}

// PredictOutcomes fits a pass-prediction model on the term's decided
// processes, evaluates it against them, and predicts the still-open ones.
// Returns nil when no process has a recorded outcome.
func PredictOutcomes(processes []models.Process) *models.PredictionReport {
	var labeled, open []*models.Process
	for i := range processes {
		p := &processes[i]
		if p.Passed != nil {
			labeled = append(labeled, p)
		} else {
			open = append(open, p)
		}
	}
	if len(labeled) == 0 {
		return nil
	}

	model := trainPassModel(labeled)

	report := &models.PredictionReport{Samples: len(labeled)}
	for _, p := range labeled {
		pred, _ := model.predict(p)
		switch {
		case pred && *p.Passed:
			report.Confusion.TruePositive++
		case pred && !*p.Passed:
			report.Confusion.FalsePositive++
		case !pred && !*p.Passed:
			report.Confusion.TrueNegative++
		default:
			report.Confusion.FalseNegative++
		}
	}
	cm := report.Confusion
	report.Accuracy = float64(cm.TruePositive+cm.TrueNegative) / float64(len(labeled))
	if cm.TruePositive+cm.FalsePositive > 0 {
		report.Precision = float64(cm.TruePositive) / float64(cm.TruePositive+cm.FalsePositive)
	}
	if cm.TruePositive+cm.FalseNegative > 0 {
		report.Recall = float64(cm.TruePositive) / float64(cm.TruePositive+cm.FalseNegative)
	}
	if report.Precision+report.Recall > 0 {
		report.F1 = 2 * report.Precision * report.Recall / (report.Precision + report.Recall)
	}

	names := model.featureNames()
	importance := make([]models.FeatureWeight, len(names))
	for i, name := range names {
		importance[i] = models.FeatureWeight{Feature: name, Weight: model.weights[i]}
	}
	sort.SliceStable(importance, func(i, j int) bool {
		return math.Abs(importance[i].Weight) > math.Abs(importance[j].Weight)
	})
	if len(importance) > importanceCutoff {
		importance = importance[:importanceCutoff]
	}
	report.FeatureImportance = importance

	for _, p := range open {
		pred, prob := model.predict(p)
		report.Pending = append(report.Pending, models.PredictionRow{
			ProcessID:     p.ID,
			Title:         p.Title,
			PredictedPass: pred,
			Probability:   prob,
		})
	}
	return report
}
