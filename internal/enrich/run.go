package enrich

import (
	"time"

	"github.com/sirupsen/logrus"

	"catalogrecon/internal/catalog"
	"catalogrecon/internal/matcher"
	"catalogrecon/internal/report"
)

const progressEvery = 1000

type EnrichedProduct struct {
	ID          string   `json:"id"`
	ReferenceID string   `json:"referenceId"`
	Name        string   `json:"name"`
	MatchedWith string   `json:"matchedWith"`
	Changes     []Change `json:"changes"`
}

type NotMatchedProduct struct {
	ID          string `json:"id"`
	ReferenceID string `json:"referenceId"`
	Name        string `json:"name"`
}

type Report struct {
	Timestamp          string              `json:"timestamp"`
	MatchKey           string              `json:"matchKey"`
	TotalProducts      int                 `json:"totalProducts"`
	TotalMatched       int                 `json:"totalMatched"`
	TotalEnriched      int                 `json:"totalEnriched"`
	TotalSkipped       int                 `json:"totalSkipped"`
	TotalNotMatched    int                 `json:"totalNotMatched"`
	FieldStatistics    map[string]int      `json:"fieldStatistics"`
	EnrichedProducts   []EnrichedProduct   `json:"enrichedProducts"`
	NotMatchedProducts []NotMatchedProduct `json:"notMatchedProducts"`
}

// Run enriches targets in place against idx. Unmatched records are reported, not
// treated as failures.
func Run(targets []catalog.Product, idx *matcher.Index, e *Enricher, log logrus.FieldLogger, now time.Time) Report {
	rep := Report{
		Timestamp:     report.Timestamp(now),
		MatchKey:      idx.Selector().Name,
		TotalProducts: len(targets),
	}
	var enriched []EnrichedProduct
	var notMatched []NotMatchedProduct
	for i := range targets {
		p := &targets[i]
		if (i+1)%progressEvery == 0 {
			log.WithField("processed", i+1).WithField("total", len(targets)).Info("enrichment progress")
		}
		ref, ok := idx.Lookup(p)
		if !ok {
			rep.TotalNotMatched++
			log.WithField("product", p.Label()).Debug("no reference match")
			if len(notMatched) < report.SampleSize {
				notMatched = append(notMatched, NotMatchedProduct{ID: p.ID, ReferenceID: p.ReferenceID, Name: p.Name})
			}
			continue
		}
		rep.TotalMatched++
		changes := e.Enrich(p, ref)
		if len(changes) == 0 {
			rep.TotalSkipped++
			continue
		}
		rep.TotalEnriched++
		if len(enriched) < report.SampleSize {
			enriched = append(enriched, EnrichedProduct{
				ID:          p.ID,
				ReferenceID: p.ReferenceID,
				Name:        p.Name,
				MatchedWith: ref.Label(),
				Changes:     changes,
			})
		}
	}
	rep.FieldStatistics = e.FieldCounts()
	rep.EnrichedProducts = report.Sample(enriched, report.SampleSize)
	rep.NotMatchedProducts = report.Sample(notMatched, report.SampleSize)
	return rep
}
