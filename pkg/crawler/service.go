package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"apart-tracker/pkg/cache"
	"apart-tracker/pkg/domain"
	"apart-tracker/pkg/identity"
	"apart-tracker/pkg/logger"
	"apart-tracker/pkg/parser"
)

// PageFetcher returns the HTML body of a URL. *fetcher.Fetcher implements it.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ServiceConfig holds configuration for a Service
type ServiceConfig struct {
	BaseURL   string // page that hands out the session cookie
	QueryPath string // result list, relative to BaseURL
	Crawl     Config

	// Optional caches; a nil cache crawls on every call.
	DetailCache          *cache.Cache
	NewTransactionsCache *cache.Cache
}

// Service crawls apartment details and an area's new transactions.
type Service struct {
	fetcher     PageFetcher
	paginator   *Paginator
	baseURL     string
	queryPath   string
	detailCache *cache.Cache
	newTxCache  *cache.Cache
	log         *logger.Logger
}

// NewService creates a crawl service.
func NewService(f PageFetcher, cfg ServiceConfig, log *logger.Logger) (*Service, error) {
	if f == nil {
		return nil, fmt.Errorf("page fetcher is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("origin base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse origin base URL: %w", err)
	}
	log = logger.OrDefault(log)
	return &Service{
		fetcher:     f,
		paginator:   NewPaginator(cfg.Crawl, log),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		queryPath:   cfg.QueryPath,
		detailCache: cfg.DetailCache,
		newTxCache:  cfg.NewTransactionsCache,
		log:         log,
	}, nil
}

// CrawlApartDetail returns the complex summary and every listed trade of one
// apartment in an area. Results are served from the detail cache when fresh.
func (s *Service) CrawlApartDetail(ctx context.Context, apartName, area string) (domain.ApartDetail, error) {
	apartName, area = strings.TrimSpace(apartName), strings.TrimSpace(area)
	if apartName == "" || area == "" {
		return domain.ApartDetail{}, fmt.Errorf("apartName and area are required")
	}

	key := domain.CrawlQuery{Area: area, ApartName: apartName}.Key()
	populate := func(ctx context.Context) (domain.ApartDetail, error) {
		return s.crawlApartDetail(ctx, apartName, area)
	}
	if s.detailCache == nil {
		return populate(ctx)
	}

	detail, hit, err := cache.GetOrPopulate(ctx, s.detailCache, key, populate)
	if hit {
		s.log.Debug("[crawler] cache hit %s", key)
	}
	return detail, err
}

// CrawlNewTransactions returns the trades currently listed for an area.
// Results are served from the new-transactions cache when fresh.
func (s *Service) CrawlNewTransactions(ctx context.Context, area string) (domain.NewTransactions, error) {
	area = strings.TrimSpace(area)
	if area == "" {
		return domain.NewTransactions{}, fmt.Errorf("area is required")
	}

	key := domain.CrawlQuery{Area: area}.Key()
	populate := func(ctx context.Context) (domain.NewTransactions, error) {
		return s.crawlNewTransactions(ctx, area)
	}
	if s.newTxCache == nil {
		return populate(ctx)
	}

	result, hit, err := cache.GetOrPopulate(ctx, s.newTxCache, key, populate)
	if hit {
		s.log.Debug("[crawler] cache hit %s", key)
	}
	return result, err
}

func (s *Service) crawlApartDetail(ctx context.Context, apartName, area string) (domain.ApartDetail, error) {
	s.openSession(ctx)

	// Written only by the page 1 fetch; read after Crawl returned.
	var info parser.ApartInfo
	fetch := func(ctx context.Context, page int) (parser.PageResult, error) {
		html, err := s.fetcher.Fetch(ctx, s.QueryURL(apartName, area, page))
		if err != nil {
			return parser.PageResult{}, err
		}
		if page == 1 {
			if info, err = parser.ParseApartInfo(html); err != nil {
				s.log.Warn("[crawler] %s: apartment info: %v", apartName, err)
			}
		}
		return parser.ParseTradePage(html)
	}

	res, err := s.paginator.Crawl(ctx, fetch)
	if err != nil {
		return domain.ApartDetail{}, fmt.Errorf("crawl apartment %q in %s: %w", apartName, area, err)
	}

	detail := domain.ApartDetail{
		ApartName:             apartName,
		Address:               info.Address,
		HouseholdsCount:       info.HouseholdsCount,
		Parking:               info.Parking,
		FloorAreaRatio:        info.FloorAreaRatio,
		BuildingCoverageRatio: info.BuildingCoverageRatio,
	}
	if info.Name != "" {
		detail.ApartName = info.Name
	}

	// Detail rows carry neither name nor address; both come from the page header.
	records := res.Records
	for i := range records {
		if records[i].ApartName == "" {
			records[i].ApartName = detail.ApartName
		}
		if records[i].Address == "" {
			records[i].Address = detail.Address
		}
	}
	parser.AnnotateRecords(records)
	detail.TradeItems = identity.Tag(area, records)

	s.log.Info("[crawler] %s/%s: %d trades from %d pages (%d dropped) in %s",
		area, apartName, len(detail.TradeItems), res.Pages, res.Dropped, res.Duration)
	return detail, nil
}

func (s *Service) crawlNewTransactions(ctx context.Context, area string) (domain.NewTransactions, error) {
	s.openSession(ctx)

	fetch := func(ctx context.Context, page int) (parser.PageResult, error) {
		html, err := s.fetcher.Fetch(ctx, s.QueryURL("", area, page))
		if err != nil {
			return parser.PageResult{}, err
		}
		return parser.ParseTradePage(html)
	}

	res, err := s.paginator.Crawl(ctx, fetch)
	if err != nil {
		return domain.NewTransactions{}, fmt.Errorf("crawl new transactions in %s: %w", area, err)
	}

	records := res.Records
	parser.AnnotateRecords(records)
	records = identity.Tag(area, records)

	s.log.Info("[crawler] %s: %d new transactions from %d pages (%d dropped) in %s",
		area, len(records), res.Pages, res.Dropped, res.Duration)
	return domain.NewTransactions{
		Count:            len(records),
		List:             records,
		TotalPages:       res.Pages,
		ProcessingTimeMs: res.Duration.Milliseconds(),
	}, nil
}

// openSession requests the base page so the client's cookie jar holds a
// session before the result pages are requested. A failure is logged only;
// the result pages are still tried.
func (s *Service) openSession(ctx context.Context) {
	if _, err := s.fetcher.Fetch(ctx, s.baseURL); err != nil {
		s.log.Warn("[crawler] session page %s: %v", s.baseURL, err)
	}
}

// QueryURL builds the result list URL of one page.
func (s *Service) QueryURL(apartName, area string, page int) string {
	v := url.Values{}
	v.Set("apartName", apartName)
	v.Set("area", area)
	v.Set("page", strconv.Itoa(page))
	return s.baseURL + s.queryPath + "?" + v.Encode()
}
