package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/muratoffalex/omnibot/internal/logger"
	"github.com/muratoffalex/omnibot/internal/storage"
)

var ErrMedicineNotFound = errors.New("no medicine found")

const notAvailable = "N/A"

type MedicineConfig struct {
	BaseURL        string
	MaxSubstitutes int
	CacheTTL       time.Duration
}

type Pair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Substitute struct {
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Price        string `json:"price"`
	Savings      string `json:"savings"`
}

type Medicine struct {
	Title       string       `json:"title"`
	Meta        []Pair       `json:"meta,omitempty"`
	Sections    []Pair       `json:"sections,omitempty"`
	Substitutes []Substitute `json:"substitutes,omitempty"`
}

func (m Medicine) Text() string {
	var sb strings.Builder
	sb.WriteString("Title: " + m.Title + "\n\n")

	for _, p := range m.Meta {
		sb.WriteString(p.Key + ": " + p.Value + "\n")
	}
	sb.WriteString("\n")

	for _, p := range m.Sections {
		sb.WriteString(p.Key + ":\n" + p.Value + "\n\n")
	}

	if len(m.Substitutes) > 0 {
		sb.WriteString("Substitute Medicines:\n")
		for i, s := range m.Substitutes {
			sb.WriteString(strconv.Itoa(i+1) + ". " + s.Name + "\n")
			sb.WriteString("   Manufacturer: " + s.Manufacturer + "\n")
			sb.WriteString("   Price: " + s.Price + "\n")
			sb.WriteString("   Savings: " + s.Savings + "\n")
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// MedicineFetcher looks medicines up on 1mg: search page, first drug link,
// then the product page.
type MedicineFetcher struct {
	BaseFetcher
	config MedicineConfig
	cache  storage.Store
}

func NewMedicineFetcher(l logger.Logger, httpClient HTTPClient, cache storage.Store, config MedicineConfig) MedicineFetcher {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	pattern := `1mg\.com/drugs/`
	if u, err := url.Parse(config.BaseURL); err == nil && u.Host != "" {
		pattern = strings.ReplaceAll(u.Host, ".", `\.`) + `/drugs/`
	}
	return MedicineFetcher{
		BaseFetcher: NewBaseFetcher(FetcherNameMedicine, pattern, httpClient, l),
		config:      config,
		cache:       cache,
	}
}

// Lookup searches the medicine by name and returns its product page details.
func (f MedicineFetcher) Lookup(ctx context.Context, name string) (*Medicine, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMedicineNotFound
	}

	key := "medicine:" + strings.ToLower(name)
	if m := f.fromCache(ctx, key); m != nil {
		f.logger.WithField("medicine", name).Debug("Medicine loaded from cache")
		return m, nil
	}

	search, err := NewRequestPayload(f.config.BaseURL+"/search/all?name="+url.QueryEscape(name), nil, nil)
	if err != nil {
		return nil, err
	}
	doc, err := f.getHTML(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("medicine search failed: %w", err)
	}

	href, ok := doc.Find(`a[href*="/drugs/"]`).First().Attr("href")
	if !ok || href == "" {
		return nil, fmt.Errorf("%w: %s", ErrMedicineNotFound, name)
	}
	productURL := href
	if !strings.HasPrefix(href, "http") {
		productURL = f.config.BaseURL + href
	}

	product, err := NewRequestPayload(productURL, nil, nil)
	if err != nil {
		return nil, err
	}
	doc, err = f.getHTML(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("medicine page failed: %w", err)
	}

	m := f.parse(doc)
	f.toCache(ctx, key, m)
	return m, nil
}

func (f MedicineFetcher) Handle(ctx context.Context, request Request) (Response, error) {
	doc, err := f.getHTML(ctx, request)
	if err != nil {
		return f.errorResponse(err)
	}
	return Response{
		Content: []Content{{Type: ContentTypeText, Text: f.parse(doc).Text()}},
	}, nil
}

func (f MedicineFetcher) parse(doc *goquery.Document) *Medicine {
	m := &Medicine{Title: notAvailable}
	if title := f.cleanText(doc.Find("h1").First().Text()); title != "" {
		m.Title = title
	}

	doc.Find(".DrugHeader__meta___B3BcU").Each(func(_ int, s *goquery.Selection) {
		key := f.cleanText(s.Find(".DrugHeader__meta-title___22zXC").Text())
		value := f.cleanText(s.Find(".DrugHeader__meta-value___vqYM0").Text())
		if key != "" && value != "" {
			m.Meta = append(m.Meta, Pair{Key: key, Value: value})
		}
	})

	doc.Find(".DrugOverview__container___CqA8x").Each(func(_ int, s *goquery.Selection) {
		title := f.cleanText(s.Find(".DrugOverview__title___1OwgG").First().Text())
		content := s.Find(".DrugOverview__content___22ZBX").First()
		if title == "" || content.Length() == 0 {
			return
		}
		m.Sections = append(m.Sections, Pair{Key: title, Value: f.section(title, content)})
	})

	limit := f.config.MaxSubstitutes
	doc.Find(".SubstituteItem__item___1wbMv").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if limit > 0 && len(m.Substitutes) >= limit {
			return false
		}
		sub := Substitute{
			Name:         f.cleanText(s.Find(".SubstituteItem__name___PH8Al").Text()),
			Manufacturer: f.cleanText(s.Find(".SubstituteItem__manufacturer-name___2X-vB").Text()),
			Price:        f.orNA(s.Find(".SubstituteItem__unit-price___MIbLo").Text()),
			Savings:      f.orNA(s.Find(".SubstituteItem__save-text___1DPP8").Text()),
		}
		if sub.Name != "" && sub.Manufacturer != "" {
			m.Substitutes = append(m.Substitutes, sub)
		}
		return true
	})

	return m
}

func (f MedicineFetcher) section(title string, content *goquery.Selection) string {
	switch {
	case strings.Contains(title, "Uses"):
		var uses []string
		content.Find(".DrugOverview__list___1HjxR li").Each(func(_ int, li *goquery.Selection) {
			uses = append(uses, "- "+f.cleanText(li.Text()))
		})
		return strings.Join(uses, "\n")
	case strings.Contains(title, "Benefits"):
		var benefits []string
		content.Find(".ShowMoreArray__tile___2mFZk").Each(func(_ int, tile *goquery.Selection) {
			heading := f.cleanText(tile.Find("h3").First().Text())
			description := f.cleanText(tile.Find("div > div").First().Text())
			benefits = append(benefits, "**"+heading+"**\n"+description)
		})
		return strings.Join(benefits, "\n\n")
	default:
		return strings.TrimSpace(content.Text())
	}
}

func (f MedicineFetcher) orNA(text string) string {
	if text = f.cleanText(text); text != "" {
		return text
	}
	return notAvailable
}

func (f MedicineFetcher) fromCache(ctx context.Context, key string) *Medicine {
	if f.cache == nil {
		return nil
	}
	raw, ok, err := f.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil
	}
	var m Medicine
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return &m
}

func (f MedicineFetcher) toCache(ctx context.Context, key string, m *Medicine) {
	if f.cache == nil || f.config.CacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := f.cache.Set(ctx, key, raw, f.config.CacheTTL); err != nil {
		f.logger.WithError(err).Warn("Failed to cache medicine")
	}
}
