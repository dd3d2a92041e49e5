package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	models "ForecastArena/internal/domain/models"
	domrepo "ForecastArena/internal/domain/repository"
	"ForecastArena/internal/usecase"
	xlogger "ForecastArena/pkg/logger"

	"github.com/labstack/echo/v4"
)

// rangeRecorder remembers the window it was asked for and serves one bar.
type rangeRecorder struct {
	from, to time.Time
}

func (r *rangeRecorder) GetCandles(_ context.Context, _ string, from, to time.Time, _ domrepo.Horizon) ([]models.Candle, error) {
	r.from, r.to = from, to
	return []models.Candle{{Bucket: from, Open: 1, High: 1, Low: 1, Close: 1}}, nil
}

func (r *rangeRecorder) GetLatestNCandles(_ context.Context, _ string, _ int, _ domrepo.Horizon) ([]models.Candle, error) {
	return nil, nil
}

func newCandlesHandler(t *testing.T, provider domrepo.CandleProvider) *ArenaHandler {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewArenaHandler(l, nil, usecase.NewCandlesUseCase(provider), nil)
}

func TestCandlesHonorsFromToParams(t *testing.T) {
	rec := &rangeRecorder{}
	h := newCandlesHandler(t, rec)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/candles?symbol=BTCUSDT&horizon=1h&from=2025-06-02T09:00:00Z&to=2025-06-02T10:00:00Z", nil)
	w := httptest.NewRecorder()
	if err := h.Candles(e.NewContext(req, w)); err != nil {
		t.Fatalf("candles: %v", err)
	}
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	wantFrom := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	wantTo := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	if !rec.from.Equal(wantFrom) || !rec.to.Equal(wantTo) {
		t.Fatalf("window = [%s, %s], want [%s, %s]", rec.from, rec.to, wantFrom, wantTo)
	}
}

func TestCandlesDefaultsWindowFromBarCount(t *testing.T) {
	rec := &rangeRecorder{}
	h := newCandlesHandler(t, rec)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/candles?symbol=BTCUSDT&horizon=1h&n=12", nil)
	w := httptest.NewRecorder()
	if err := h.Candles(e.NewContext(req, w)); err != nil {
		t.Fatalf("candles: %v", err)
	}
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if got := rec.to.Sub(rec.from); got != 12*5*time.Minute {
		t.Fatalf("window span = %s, want 12 five-minute bars", got)
	}
}

func TestCandlesRejectsInvertedRange(t *testing.T) {
	h := newCandlesHandler(t, &rangeRecorder{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/candles?symbol=BTCUSDT&from=2025-06-02T10:00:00Z&to=2025-06-02T09:00:00Z", nil)
	w := httptest.NewRecorder()
	if err := h.Candles(e.NewContext(req, w)); err != nil {
		t.Fatalf("candles: %v", err)
	}
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
