package sync

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/andinotravel/partner-portal/internal/catalog"
	"github.com/andinotravel/partner-portal/internal/lock"
	"github.com/andinotravel/partner-portal/internal/obs"
)

// LockKey guards the import across workers. Overlapping runs would race the
// wholesale catalog replace.
const LockKey = "catalog:sync:lock"

// CatalogStore is the write surface the importer needs.
type CatalogStore interface {
	ReplaceAll(ctx context.Context, products []catalog.Product) error
}

// Importer pulls the partner price sheet, normalizes it, and replaces the
// catalog wholesale. The feed is a CSV export whose column headers drift
// between uploads; matching is tolerant at this boundary and strict past it.
type Importer struct {
	FeedURL string
	HTTP    *http.Client
	Store   CatalogStore
	Cache   *catalog.Cache
	Locker  lock.Locker
	LockTTL time.Duration
	Metrics *obs.SyncMetrics
	Logger  zerolog.Logger
	Now     func() time.Time
}

func (im *Importer) now() time.Time {
	if im.Now != nil {
		return im.Now()
	}
	return time.Now()
}

// Run executes one import under the distributed lock.
func (im *Importer) Run(ctx context.Context) error {
	return im.Locker.WithLock(ctx, LockKey, im.LockTTL, im.run)
}

func (im *Importer) run(ctx context.Context) error {
	started := im.now()
	count, err := im.importFeed(ctx)
	elapsed := time.Since(started)

	if im.Metrics != nil {
		im.Metrics.Duration.Observe(obs.DurationMillis(elapsed))
		if err != nil {
			im.Metrics.Runs.WithLabelValues("error").Inc()
		} else {
			im.Metrics.Runs.WithLabelValues("ok").Inc()
			im.Metrics.Products.Set(float64(count))
		}
	}
	if err != nil {
		im.Logger.Error().Err(err).Dur("elapsed", elapsed).Msg("catalog sync failed")
		return err
	}
	im.Logger.Info().Int("products", count).Dur("elapsed", elapsed).Msg("catalog sync complete")
	return nil
}

func (im *Importer) importFeed(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, im.FeedURL, nil)
	if err != nil {
		return 0, fmt.Errorf("sync: build feed request: %w", err)
	}
	client := im.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sync: fetch feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("sync: feed returned status %d", resp.StatusCode)
	}

	products, err := Parse(resp.Body, im.now())
	if err != nil {
		return 0, err
	}
	if len(products) == 0 {
		// An empty sheet is far more likely a broken export than a real
		// catalog wipe; keep serving the previous snapshot.
		return 0, fmt.Errorf("sync: feed contained no products")
	}

	if err := im.Store.ReplaceAll(ctx, products); err != nil {
		return 0, err
	}
	if err := im.Cache.Invalidate(ctx, catalog.ListCacheKey); err != nil {
		im.Logger.Warn().Err(err).Msg("catalog cache invalidation failed")
	}
	return len(products), nil
}

// Parse reads the CSV feed into products. Header names are normalized before
// matching so exports with varying spacing, casing, or separators still bind.
func Parse(r io.Reader, syncedAt time.Time) ([]catalog.Product, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("sync: read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[normalizeHeader(name)] = i
	}
	required := []struct {
		label   string
		aliases []string
	}{
		{"code", []string{"code", "productcode", "sku"}},
		{"destination", []string{"destination", "dest", "region"}},
		{"name", []string{"name", "product", "productname", "tour"}},
	}
	for _, req := range required {
		found := false
		for _, alias := range req.aliases {
			if _, ok := columns[alias]; ok {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("sync: feed missing required column %q", req.label)
		}
	}

	products := make([]catalog.Product, 0, 128)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("sync: read line %d: %w", line, err)
		}
		field := func(names ...string) string {
			for _, name := range names {
				if idx, ok := columns[name]; ok && idx < len(record) {
					return strings.TrimSpace(record[idx])
				}
			}
			return ""
		}
		code := field("code", "productcode", "sku")
		if code == "" {
			continue
		}
		p := catalog.Product{
			Code:         code,
			Destination:  field("destination", "dest", "region"),
			Name:         field("name", "product", "productname", "tour"),
			Category:     field("category", "type"),
			Subcategory:  field("subcategory", "subtype"),
			PickupTime:   field("pickuptime", "pickup"),
			ReturnTime:   field("returntime", "return", "dropoff"),
			Restrictions: field("restrictions", "notes", "remarks"),
			SyncedAt:     syncedAt,
		}
		if days := field("weekdays", "days", "operatingdays"); days != "" {
			p.Weekdays = splitWeekdays(days)
		}
		prices := []struct {
			dst   *decimal.Decimal
			names []string
		}{
			{&p.AdultSummer, []string{"adultsummer", "summeradult"}},
			{&p.ChildSummer, []string{"childsummer", "summerchild"}},
			{&p.InfantSummer, []string{"infantsummer", "summerinfant"}},
			{&p.AdultWinter, []string{"adultwinter", "winteradult"}},
			{&p.ChildWinter, []string{"childwinter", "winterchild"}},
			{&p.InfantWinter, []string{"infantwinter", "winterinfant"}},
		}
		for _, price := range prices {
			raw := field(price.names...)
			if raw == "" {
				continue
			}
			value, err := parsePrice(raw)
			if err != nil {
				return nil, fmt.Errorf("sync: line %d product %s: %w", line, code, err)
			}
			*price.dst = value
		}
		products = append(products, p)
	}
	return products, nil
}

// normalizeHeader lowercases and strips spacing and separator noise so
// "Adult Summer", "adult_summer", and "ADULT-SUMMER" all match.
func normalizeHeader(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '.', '/', '(', ')':
			return -1
		}
		return r
	}, name)
}

func splitWeekdays(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '/' || r == '|'
	})
	days := make([]string, 0, len(parts))
	for _, part := range parts {
		if day := strings.TrimSpace(part); day != "" {
			days = append(days, day)
		}
	}
	return days
}

func parsePrice(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse price %q: %w", raw, err)
	}
	if value.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("negative price %q", raw)
	}
	return value, nil
}
