package sync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/andinotravel/partner-portal/internal/catalog"
)

type stubCatalog struct {
	replaced [][]catalog.Product
	err      error
}

func (s *stubCatalog) ReplaceAll(_ context.Context, products []catalog.Product) error {
	if s.err != nil {
		return s.err
	}
	s.replaced = append(s.replaced, products)
	return nil
}

func TestParseNormalizesHeaders(t *testing.T) {
	feed := strings.Join([]string{
		"Product Code,Destination,Name,Adult Summer,CHILD-SUMMER,adult_winter,Week Days",
		"BRC-001,Bariloche,Circuito Chico,120.00,60.00,95.50,\"Mon, Wed, Fri\"",
	}, "\n")

	syncedAt := time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC)
	products, err := Parse(strings.NewReader(feed), syncedAt)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
	p := products[0]
	if p.Code != "BRC-001" || p.Destination != "Bariloche" || p.Name != "Circuito Chico" {
		t.Fatalf("identity columns not bound: %+v", p)
	}
	if !p.AdultSummer.Equal(decimal.RequireFromString("120.00")) {
		t.Fatalf("adult summer = %s", p.AdultSummer)
	}
	if !p.ChildSummer.Equal(decimal.RequireFromString("60.00")) {
		t.Fatalf("child summer = %s", p.ChildSummer)
	}
	if !p.AdultWinter.Equal(decimal.RequireFromString("95.50")) {
		t.Fatalf("adult winter = %s", p.AdultWinter)
	}
	if len(p.Weekdays) != 3 || p.Weekdays[0] != "Mon" || p.Weekdays[2] != "Fri" {
		t.Fatalf("weekdays not split: %v", p.Weekdays)
	}
	if !p.SyncedAt.Equal(syncedAt) {
		t.Fatalf("synced at = %s", p.SyncedAt)
	}
}

func TestParsePriceFormats(t *testing.T) {
	feed := strings.Join([]string{
		"code,destination,name,adultsummer",
		"USH-001,Ushuaia,Beagle Channel,\"$1,250.00\"",
	}, "\n")

	products, err := Parse(strings.NewReader(feed), time.Now())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !products[0].AdultSummer.Equal(decimal.RequireFromString("1250.00")) {
		t.Fatalf("currency symbol and thousands separator not stripped: %s", products[0].AdultSummer)
	}
}

func TestParseRejectsNegativePrice(t *testing.T) {
	feed := strings.Join([]string{
		"code,destination,name,adultsummer",
		"USH-001,Ushuaia,Beagle Channel,-10.00",
	}, "\n")

	if _, err := Parse(strings.NewReader(feed), time.Now()); err == nil {
		t.Fatal("negative price must fail")
	}
}

func TestParseMissingRequiredColumn(t *testing.T) {
	feed := strings.Join([]string{
		"destination,name,adultsummer",
		"Ushuaia,Beagle Channel,75.00",
	}, "\n")

	if _, err := Parse(strings.NewReader(feed), time.Now()); err == nil {
		t.Fatal("feed without a code column must fail")
	}
}

func TestParseAcceptsAliasedRequiredColumns(t *testing.T) {
	feed := strings.Join([]string{
		"SKU,Region,Tour",
		"CAL-001,El Calafate,Perito Moreno",
	}, "\n")

	products, err := Parse(strings.NewReader(feed), time.Now())
	if err != nil {
		t.Fatalf("aliased required columns must bind: %v", err)
	}
	if products[0].Code != "CAL-001" || products[0].Destination != "El Calafate" {
		t.Fatalf("aliases bound wrong: %+v", products[0])
	}
}

func TestParseSkipsBlankCodeRows(t *testing.T) {
	feed := strings.Join([]string{
		"code,destination,name",
		"USH-001,Ushuaia,Beagle Channel",
		",Ushuaia,Orphan row",
	}, "\n")

	products, err := Parse(strings.NewReader(feed), time.Now())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("blank-code row must be skipped, got %d products", len(products))
	}
}

func TestImportFeedReplacesCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("code,destination,name\nBRC-001,Bariloche,Circuito Chico\n"))
	}))
	defer srv.Close()

	store := &stubCatalog{}
	im := &Importer{FeedURL: srv.URL, Store: store, Logger: zerolog.Nop()}
	count, err := im.importFeed(context.Background())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if count != 1 || len(store.replaced) != 1 {
		t.Fatalf("catalog not replaced: count=%d replaces=%d", count, len(store.replaced))
	}
}

func TestImportFeedRejectsEmptyFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("code,destination,name\n"))
	}))
	defer srv.Close()

	store := &stubCatalog{}
	im := &Importer{FeedURL: srv.URL, Store: store, Logger: zerolog.Nop()}
	if _, err := im.importFeed(context.Background()); err == nil {
		t.Fatal("empty feed must not wipe the catalog")
	}
	if len(store.replaced) != 0 {
		t.Fatal("empty feed reached the store")
	}
}

func TestImportFeedUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	im := &Importer{FeedURL: srv.URL, Store: &stubCatalog{}, Logger: zerolog.Nop()}
	if _, err := im.importFeed(context.Background()); err == nil {
		t.Fatal("non-200 feed response must fail")
	}
}
