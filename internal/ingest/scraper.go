// Package ingest produces new opportunity records for the catalog. The
// producer is an external collaborator as far as the core is concerned: it
// either yields parsed records or fails, and the caller falls back to the
// fixed set so the store always receives well-formed input.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gocolly/colly"

	"github.com/swipe4care/opportunity-feed/internal/db"
	apperr "github.com/swipe4care/opportunity-feed/internal/errors"
)

// Producer yields a batch of candidate opportunity records.
type Producer interface {
	Produce(ctx context.Context) ([]db.Opportunity, error)
}

// Scraper pulls opportunities from a listing page. Expected markup: one
// `div.opportunity-card` per record carrying a `data-category` attribute,
// with `h2.title`, `p.description`, `span.organization`, `span.location`,
// `p.requirements`, `span.compensation`, `a.apply` and `img` children.
type Scraper struct {
	sourceURL string
	log       *slog.Logger
}

// NewScraper creates a scraper for the given listing URL.
func NewScraper(sourceURL string, log *slog.Logger) *Scraper {
	return &Scraper{sourceURL: sourceURL, log: log}
}

// Produce visits the listing page and parses opportunity cards.
//
// Behavior:
//   - Fails as a collaborator error when no source is configured, the visit
//     fails, or the page yields no usable cards. Callers are expected to
//     substitute Fallback() rather than surface the failure.
//   - Cards without a title are skipped; full field validation is the
//     store's job on insert.
func (s *Scraper) Produce(ctx context.Context) ([]db.Opportunity, error) {
	if s.sourceURL == "" {
		return nil, apperr.Collaborator("scrape", errors.New("no source url configured"))
	}

	collector := colly.NewCollector()
	var records []db.Opportunity

	collector.OnHTML("div.opportunity-card", func(e *colly.HTMLElement) {
		record := db.Opportunity{
			Title:        strings.TrimSpace(e.ChildText("h2.title")),
			Description:  strings.TrimSpace(e.ChildText("p.description")),
			Organization: strings.TrimSpace(e.ChildText("span.organization")),
			Location:     strings.TrimSpace(e.ChildText("span.location")),
			Category:     strings.TrimSpace(e.Attr("data-category")),
			Requirements: strings.TrimSpace(e.ChildText("p.requirements")),
			Compensation: strings.TrimSpace(e.ChildText("span.compensation")),
			ImageURL:     e.ChildAttr("img", "src"),
		}
		if href := e.ChildAttr("a.apply", "href"); href != "" {
			record.URL = e.Request.AbsoluteURL(href)
		}
		if record.Title == "" {
			if s.log != nil {
				s.log.Warn("skipping card without title", "source", s.sourceURL)
			}
			return
		}
		records = append(records, record)
	})

	var visitErr error
	collector.OnError(func(_ *colly.Response, err error) {
		visitErr = err
	})

	if err := ctx.Err(); err != nil {
		return nil, apperr.Collaborator("scrape", err)
	}
	if err := collector.Visit(s.sourceURL); err != nil {
		return nil, apperr.Collaborator("scrape", err)
	}
	if visitErr != nil {
		return nil, apperr.Collaborator("scrape", visitErr)
	}
	if len(records) == 0 {
		return nil, apperr.Collaborator("scrape", fmt.Errorf("no opportunity cards found at %s", s.sourceURL))
	}

	return records, nil
}

// Fallback returns the fixed, valid record set used whenever the producer
// fails. Never empty.
func Fallback() []db.Opportunity {
	return []db.Opportunity{
		{
			Title:        "Heart Disease Prevention Study",
			Description:  "Join our research on early detection of cardiovascular disease. We're studying the effectiveness of lifestyle interventions in preventing heart disease in adults aged 35-65.",
			Organization: "Stanford Medical Center",
			Location:     "Palo Alto, CA",
			Category:     db.CategoryClinicalTrial,
			Requirements: "Ages 35-65, no current heart conditions, willing to commit to 6-month study",
			Compensation: "$500 upon completion",
			URL:          "https://clinicaltrials.gov/study/NCT12345678",
			ImageURL:     "https://via.placeholder.com/400x200?text=Heart+Study",
		},
		{
			Title:        "Mental Health Research Volunteer",
			Description:  "Help advance mental health research by participating in our study on stress reduction techniques. We're examining the effectiveness of mindfulness-based interventions.",
			Organization: "UCLA Health",
			Location:     "Los Angeles, CA",
			Category:     db.CategoryResearch,
			Requirements: "Ages 18-55, experiencing mild to moderate stress, no current mental health treatment",
			Compensation: "$200 stipend",
			URL:          "https://clinicaltrials.gov/study/NCT87654321",
			ImageURL:     "https://via.placeholder.com/400x200?text=Mental+Health",
		},
		{
			Title:        "Cancer Support Volunteer",
			Description:  "Make a difference in cancer patients' lives by providing emotional support and companionship during treatment sessions. Training provided.",
			Organization: "Memorial Sloan Kettering",
			Location:     "New York, NY",
			Category:     db.CategoryVolunteer,
			Requirements: "18+, completed background check, 3-month commitment minimum",
			Compensation: "None",
			URL:          "https://mskcc.org/volunteer",
			ImageURL:     "https://via.placeholder.com/400x200?text=Cancer+Support",
		},
		{
			Title:        "Diabetes Management Trial",
			Description:  "Participate in testing a new continuous glucose monitoring system that could revolutionize diabetes care. Study duration: 3 months.",
			Organization: "Mayo Clinic",
			Location:     "Rochester, MN",
			Category:     db.CategoryClinicalTrial,
			Requirements: "Type 2 diabetes, ages 21-70, stable medication regimen",
			Compensation: "$750 plus free monitoring device",
			URL:          "https://clinicaltrials.gov/study/NCT11223344",
			ImageURL:     "https://via.placeholder.com/400x200?text=Diabetes+Trial",
		},
	}
}
