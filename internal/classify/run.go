package classify

import (
	"time"

	"github.com/sirupsen/logrus"

	"catalogrecon/internal/catalog"
	"catalogrecon/internal/report"
)

type Change struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Keyword     string `json:"keyword"`
	OldCategory string `json:"oldCategory"`
	NewCategory string `json:"newCategory"`
	OldBrand    string `json:"oldBrand"`
	NewBrand    string `json:"newBrand"`
}

type Report struct {
	Timestamp       string         `json:"timestamp"`
	TotalProducts   int            `json:"totalProducts"`
	TotalClassified int            `json:"totalClassified"`
	TotalUnchanged  int            `json:"totalUnchanged"`
	CategoryChanged int            `json:"categoryChanged"`
	BrandChanged    int            `json:"brandChanged"`
	ByKeyword       map[string]int `json:"byKeyword"`
	BrandCounts     map[string]int `json:"brandCounts"`
	Changes         []Change       `json:"changes"`
}

func (c *Classifier) Run(products []catalog.Product, log logrus.FieldLogger, now time.Time) Report {
	rep := Report{
		Timestamp:     report.Timestamp(now),
		TotalProducts: len(products),
		ByKeyword:     map[string]int{},
		BrandCounts:   map[string]int{},
	}
	var changes []Change
	for i := range products {
		p := &products[i]
		res := c.Apply(p)
		if !res.Matched {
			continue
		}
		rep.TotalClassified++
		rep.ByKeyword[res.Keyword]++
		rep.BrandCounts[res.NewBrand]++
		if res.CategoryChanged {
			rep.CategoryChanged++
		}
		if res.BrandChanged {
			rep.BrandChanged++
		}
		if !res.CategoryChanged && !res.BrandChanged {
			rep.TotalUnchanged++
			continue
		}
		log.WithFields(logrus.Fields{"product": p.Label(), "keyword": res.Keyword, "brand": res.NewBrand}).Debug("classified")
		if len(changes) < report.SampleSize {
			changes = append(changes, Change{
				ID:          p.ID,
				Name:        p.Name,
				Keyword:     res.Keyword,
				OldCategory: res.OldCategory,
				NewCategory: res.NewCategory,
				OldBrand:    res.OldBrand,
				NewBrand:    res.NewBrand,
			})
		}
	}
	rep.Changes = report.Sample(changes, report.SampleSize)
	return rep
}
