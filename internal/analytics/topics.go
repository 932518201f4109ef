// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

package analytics

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/plenumlab/plenum/internal/models"
)

// topicOther collects processes no subject pattern matches.
const topicOther = "Inne"

const (
	// keywordSample caps how many titles per cluster feed keyword extraction.
	keywordSample = 50
	// clusterKeywords is how many keywords a cluster reports.
	clusterKeywords = 8
	// titleKeywords is how many keywords a single title contributes.
	titleKeywords = 5
	// exampleCount and exampleRunes bound the example titles per cluster.
	exampleCount = 3
	exampleRunes = 80
)

// topicPatterns map title fragments to subject areas; first match wins, so
// the more specific patterns come first.
var topicPatterns = []struct {
	re   *regexp.Regexp
	name string
}{
	{regexp.MustCompile(`podatk|podat|vat|pit|cit|akcyz`), "Podatki"},
	{regexp.MustCompile(`emerytur|rent|zus|ubezpiecz`), "Emerytury i ZUS"},
	{regexp.MustCompile(`zdrow|lecznic|szpital|medyc|lekar`), "Zdrowie"},
	{regexp.MustCompile(`edukac|szkoł|nauczyc|student|uczel`), "Edukacja"},
	{regexp.MustCompile(`wojsk|obron|żołnier|armia`), "Obronność"},
	{regexp.MustCompile(`sąd|sędzi|prokurat|sprawiedliw`), "Wymiar sprawiedliwości"},
	{regexp.MustCompile(`budżet|finansow|pieniąd`), "Finanse publiczne"},
	{regexp.MustCompile(`energi|prąd|gaz|węgl|atom`), "Energetyka"},
	{regexp.MustCompile(`rolni|wieś|agrar|żywnoś`), "Rolnictwo"},
	{regexp.MustCompile(`transport|drog|kolej|lotnisk`), "Transport"},
	{regexp.MustCompile(`środowisk|ekolog|klimat|emisj`), "Środowisko"},
	{regexp.MustCompile(`mieszkan|budowl|nieruchom`), "Mieszkalnictwo"},
	{regexp.MustCompile(`prac|zatrudni|płac|wynagrodzeni`), "Prawo pracy"},
	{regexp.MustCompile(`cudzoziemiec|migrac|uchodź|granica|wiz`), "Migracja"},
	{regexp.MustCompile(`cyber|internet|cyfryz|dane osobow`), "Cyfryzacja"},
	{regexp.MustCompile(`wybor|głosow|referendum`), "Prawo wyborcze"},
	{regexp.MustCompile(`samorząd|gmina|powiat|województw`), "Samorządy"},
	{regexp.MustCompile(`korupc|przejrzyst|lobbying`), "Antykorupcja"},
}

var tokenPattern = regexp.MustCompile(`[a-ząćęłńóśźż]+`)

// titleStopwords are common Polish words and legislative boilerplate that
// carry no subject signal in process titles.
var titleStopwords = map[string]struct{}{
	"w": {}, "i": {}, "z": {}, "na": {}, "do": {}, "o": {}, "oraz": {},
	"przez": {}, "dla": {}, "ze": {}, "od": {}, "po": {}, "się": {},
	"jest": {}, "jako": {}, "tym": {}, "też": {}, "już": {}, "lub": {},
	"być": {}, "sprawie": {}, "projekt": {}, "ustawy": {}, "uchwały": {},
	"zmianie": {}, "niektórych": {}, "poselski": {}, "rządowy": {},
	"senacki": {}, "komisyjny": {}, "obywatelski": {}, "przedstawiony": {},
	"druk": {}, "nr": {}, "poseł": {}, "posła": {}, "kandydat": {},
}

// DetectTopic classifies a process title into a subject area. Titles no
// pattern matches fall into the catch-all cluster.
func DetectTopic(title string) string {
	lower := strings.ToLower(title)
	for _, p := range topicPatterns {
		if p.re.MatchString(lower) {
			return p.name
		}
	}
	return topicOther
}

// extractKeywords returns the most frequent non-stopword tokens of a title,
// most frequent first; ties keep their order of first appearance.
func extractKeywords(title string, topN int) []string {
	counts := make(map[string]int)
	var order []string
	for _, w := range tokenPattern.FindAllString(strings.ToLower(title), -1) {
		if _, stop := titleStopwords[w]; stop || utf8.RuneCountInString(w) <= 3 {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > topN {
		order = order[:topN]
	}
	return order
}

// TopicClusters groups a term's processes by detected topic, largest cluster
// first (ties by name). Each cluster reports its pass rate over all member
// processes and the keywords its titles have in common.
func TopicClusters(processes []models.Process) []models.TopicCluster {
	groups := make(map[string][]*models.Process)
	for i := range processes {
		p := &processes[i]
		topic := DetectTopic(p.Title)
		groups[topic] = append(groups[topic], p)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := groups[names[i]], groups[names[j]]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return names[i] < names[j]
	})

	clusters := make([]models.TopicCluster, 0, len(names))
	for _, name := range names {
		procs := groups[name]

		passed := 0
		for _, p := range procs {
			if p.Passed != nil && *p.Passed {
				passed++
			}
		}

		sample := procs
		if len(sample) > keywordSample {
			sample = sample[:keywordSample]
		}
		counts := make(map[string]int)
		var keywords []string
		for _, p := range sample {
			for _, w := range extractKeywords(p.Title, titleKeywords) {
				if counts[w] == 0 {
					keywords = append(keywords, w)
				}
				counts[w]++
			}
		}
		sort.SliceStable(keywords, func(i, j int) bool {
			return counts[keywords[i]] > counts[keywords[j]]
		})
		if len(keywords) > clusterKeywords {
			keywords = keywords[:clusterKeywords]
		}

		examples := make([]string, 0, exampleCount)
		for _, p := range procs[:min(len(procs), exampleCount)] {
			examples = append(examples, truncateRunes(p.Title, exampleRunes))
		}

		clusters = append(clusters, models.TopicCluster{
			Name:          name,
			Keywords:      keywords,
			ProcessCount:  len(procs),
			PassRate:      float64(passed) / float64(len(procs)),
			ExampleTitles: examples,
		})
	}
	return clusters
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
