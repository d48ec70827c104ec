// Package scrape fetches public product pages one at a time and records what they
// describe, checkpointing progress so an interrupted run can resume.
package scrape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"catalogrecon/internal/catalog"
	"catalogrecon/internal/report"
)

const (
	DefaultDelay           = 2000 * time.Millisecond
	DefaultCheckpointEvery = 10
	maxBodyBytes           = 5 << 20
)

const (
	ReasonNetwork = "network_error"
	ReasonParse   = "parse_error"
	ReasonNoData  = "no_data"
)

type Result struct {
	ID          string   `json:"id"`
	ReferenceID string   `json:"referenceId"`
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	Price       string   `json:"price"`
	ScrapedAt   string   `json:"scrapedAt"`
}

type Failure struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

type Config struct {
	URLTemplate     string
	Delay           time.Duration
	Timeout         time.Duration
	UserAgent       string
	ProgressPath    string
	CheckpointEvery int
	DryRun          bool
}

type Scraper struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	log     logrus.FieldLogger
	now     func() time.Time
}

func New(cfg Config, log logrus.FieldLogger) (*Scraper, error) {
	if !strings.Contains(cfg.URLTemplate, "{") {
		return nil, errors.Errorf("url template %q has no placeholder", cfg.URLTemplate)
	}
	if _, err := url.Parse(strings.NewReplacer("{", "", "}", "").Replace(cfg.URLTemplate)); err != nil {
		return nil, errors.Wrap(err, "url template")
	}
	if cfg.Delay < 0 {
		return nil, errors.New("delay must not be negative")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = DefaultCheckpointEvery
	}
	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}
	return &Scraper{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
		now:     time.Now,
	}, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lower-cases name, folds common Portuguese accents and joins words with "-".
func Slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = accentFolder.Replace(s)
	return strings.Trim(nonSlug.ReplaceAllString(s, "-"), "-")
}

var accentFolder = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a", "ä", "a",
	"é", "e", "ê", "e", "è", "e",
	"í", "i", "î", "i",
	"ó", "o", "ô", "o", "õ", "o", "ö", "o",
	"ú", "u", "ü", "u",
	"ç", "c", "ñ", "n",
)

// BuildURL fills {name}, {slug}, {referenceId} and {id} in the template.
func BuildURL(template string, p *catalog.Product) string {
	return strings.NewReplacer(
		"{name}", url.QueryEscape(strings.TrimSpace(p.Name)),
		"{slug}", Slug(p.Name),
		"{referenceId}", url.PathEscape(p.ReferenceID),
		"{id}", url.PathEscape(p.ID),
	).Replace(template)
}

// Fetch scrapes one product. Failures are returned as values; the error is only
// set when ctx ends.
func (s *Scraper) Fetch(ctx context.Context, p *catalog.Product) (*Result, *Failure, error) {
	u := BuildURL(s.cfg.URLTemplate, p)
	fail := func(reason, detail string) (*Result, *Failure, error) {
		return nil, &Failure{ID: p.ID, Name: p.Name, URL: u, Reason: reason, Detail: report.Truncate(detail, 200)}, nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fail(ReasonNetwork, err.Error())
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return fail(ReasonNetwork, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return fail(fmt.Sprintf("http_%d", resp.StatusCode), resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fail(ReasonNetwork, err.Error())
	}
	page, err := ParsePage(bytes.NewReader(body))
	if err != nil {
		return fail(ReasonParse, err.Error())
	}
	if page.Empty() {
		return fail(ReasonNoData, "no description, image or price meta tags")
	}
	return &Result{
		ID:          p.ID,
		ReferenceID: p.ReferenceID,
		Name:        p.Name,
		URL:         u,
		Title:       page.Title,
		Description: page.Description,
		Images:      page.Images,
		Price:       page.Price,
		ScrapedAt:   report.Timestamp(s.now()),
	}, nil, nil
}

// Run scrapes items sequentially, skipping the first Completed items recorded in the
// progress file. limit caps the items handled by this invocation (0 means all).
func (s *Scraper) Run(ctx context.Context, items []catalog.Product, limit int) (Progress, error) {
	prog := Progress{Results: []Result{}, Failed: []Failure{}}
	if s.cfg.ProgressPath != "" {
		var err error
		if prog, err = LoadProgress(s.cfg.ProgressPath); err != nil {
			return Progress{}, err
		}
	}
	if prog.Completed > len(items) {
		return prog, errors.Errorf("progress records %d completed items but the input has only %d", prog.Completed, len(items))
	}
	if prog.Completed > 0 {
		s.log.WithField("completed", prog.Completed).Info("resuming from progress file")
	}

	end := len(items)
	if limit > 0 && prog.Completed+limit < end {
		end = prog.Completed + limit
	}
	checkpoint := func() error {
		if s.cfg.DryRun || s.cfg.ProgressPath == "" {
			return nil
		}
		prog.UpdatedAt = report.Timestamp(s.now())
		return SaveProgress(s.cfg.ProgressPath, prog)
	}

	for i := prog.Completed; i < end; i++ {
		p := &items[i]
		log := s.log.WithFields(logrus.Fields{"item": fmt.Sprintf("%d/%d", i+1, len(items)), "product": p.Label()})
		if s.cfg.DryRun {
			log.WithField("url", BuildURL(s.cfg.URLTemplate, p)).Info("would fetch")
			prog.Completed++
			continue
		}
		res, failure, err := s.Fetch(ctx, p)
		if err != nil {
			if cerr := checkpoint(); cerr != nil {
				log.WithError(cerr).Error("checkpoint failed")
			}
			return prog, errors.Wrap(err, "scrape interrupted")
		}
		if failure != nil {
			log.WithFields(logrus.Fields{"reason": failure.Reason, "url": failure.URL}).Warn("fetch failed")
			prog.Failed = append(prog.Failed, *failure)
		} else {
			log.WithField("images", len(res.Images)).Debug("fetched")
			prog.Results = append(prog.Results, *res)
		}
		prog.Completed++
		if prog.Completed%s.cfg.CheckpointEvery == 0 {
			if err := checkpoint(); err != nil {
				return prog, err
			}
			s.log.WithFields(logrus.Fields{
				"completed": prog.Completed,
				"ok":        len(prog.Results),
				"failed":    len(prog.Failed),
			}).Info("checkpoint")
		}
	}
	if err := checkpoint(); err != nil {
		return prog, err
	}
	return prog, nil
}

// Product converts a result into a record usable as an enrichment reference.
func (r Result) Product() catalog.Product {
	p := catalog.Product{
		ID:          r.ID,
		ReferenceID: r.ReferenceID,
		Name:        r.Name,
		Description: r.Description,
		Images:      strings.Join(r.Images, ","),
	}
	if d, ok := normalizePrice(r.Price); ok {
		p.Price = d
	}
	return p
}

func ToProducts(results []Result) []catalog.Product {
	out := make([]catalog.Product, 0, len(results))
	for _, r := range results {
		out = append(out, r.Product())
	}
	return out
}
