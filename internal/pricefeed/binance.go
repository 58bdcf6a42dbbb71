package pricefeed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sacraldj/ghost-sub001/pkg/cache"
	"github.com/sacraldj/ghost-sub001/pkg/types"
	"github.com/sacraldj/ghost-sub001/pkg/websocket"
)

const restPageLimit = 1000

// BinanceSource is a Source backed by Binance USDT-margined futures. Live
// points come from the kline WebSocket stream; historical ranges come from
// the REST /fapi/v1/klines endpoint with a Ristretto cache in front.
type BinanceSource struct {
	restURL       string
	wsManager     *websocket.Manager
	client        *http.Client
	cache         cache.Cache
	cacheTTL      time.Duration
	klineInterval string
	logger        *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	subs map[string]chan types.PricePoint
}

// BinanceConfig holds Binance source configuration.
type BinanceConfig struct {
	RESTURL       string
	WSURL         string
	KlineInterval string
	CacheTTL      time.Duration
	HTTPTimeout   time.Duration

	WSDialTimeout      time.Duration
	WSPongTimeout      time.Duration
	WSPingInterval     time.Duration
	WSReconnectInitial time.Duration
	WSReconnectMax     time.Duration
	WSReconnectMult    float64
	WSFrameBufferSize  int

	Cache  cache.Cache
	Logger *zap.Logger
}

// klineEvent is the raw-stream kline payload.
type klineEvent struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Kline     struct {
		OpenTime  int64  `json:"t"`
		CloseTime int64  `json:"T"`
		Open      string `json:"o"`
		High      string `json:"h"`
		Low       string `json:"l"`
		Close     string `json:"c"`
		Closed    bool   `json:"x"`
	} `json:"k"`
}

// NewBinanceSource creates a Binance-backed source and starts its WebSocket
// read loop.
func NewBinanceSource(cfg *BinanceConfig) (*BinanceSource, error) {
	if cfg.KlineInterval == "" {
		cfg.KlineInterval = "1m"
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 15 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}

	wsMgr := websocket.New(websocket.Config{
		URL:                   cfg.WSURL,
		DialTimeout:           cfg.WSDialTimeout,
		PongTimeout:           cfg.WSPongTimeout,
		PingInterval:          cfg.WSPingInterval,
		ReconnectInitialDelay: cfg.WSReconnectInitial,
		ReconnectMaxDelay:     cfg.WSReconnectMax,
		ReconnectBackoffMult:  cfg.WSReconnectMult,
		FrameBufferSize:       cfg.WSFrameBufferSize,
		Logger:                cfg.Logger,
	})

	err := wsMgr.Start()
	if err != nil {
		return nil, fmt.Errorf("start websocket manager: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &BinanceSource{
		restURL:       cfg.RESTURL,
		wsManager:     wsMgr,
		client:        &http.Client{Timeout: cfg.HTTPTimeout},
		cache:         cfg.Cache,
		cacheTTL:      cfg.CacheTTL,
		klineInterval: cfg.KlineInterval,
		logger:        cfg.Logger,
		ctx:           ctx,
		cancel:        cancel,
		subs:          make(map[string]chan types.PricePoint),
	}

	s.wg.Add(1)
	go s.decodeLoop()

	return s, nil
}

// SubscribeLive subscribes to the symbol's kline stream and returns a channel
// of closed-candle points.
func (s *BinanceSource) SubscribeLive(ctx context.Context, symbol string) (<-chan types.PricePoint, error) {
	s.mu.Lock()
	if ch, ok := s.subs[symbol]; ok {
		s.mu.Unlock()
		return ch, nil
	}
	ch := make(chan types.PricePoint, 256)
	s.subs[symbol] = ch
	s.mu.Unlock()

	err := s.wsManager.Subscribe(ctx, []string{s.streamName(symbol)})
	if err != nil {
		s.mu.Lock()
		delete(s.subs, symbol)
		s.mu.Unlock()
		close(ch)
		return nil, fmt.Errorf("subscribe %s: %w", symbol, err)
	}

	ActiveSubscriptions.Inc()
	s.logger.Info("symbol-subscribed",
		zap.String("symbol", symbol),
		zap.String("interval", s.klineInterval))

	return ch, nil
}

// Unsubscribe stops the symbol's kline stream and closes its channel.
func (s *BinanceSource) Unsubscribe(symbol string) {
	s.mu.Lock()
	ch, ok := s.subs[symbol]
	if ok {
		delete(s.subs, symbol)
	}
	s.mu.Unlock()

	if !ok {
		return
	}

	err := s.wsManager.Unsubscribe(s.ctx, []string{s.streamName(symbol)})
	if err != nil {
		s.logger.Warn("unsubscribe-failed",
			zap.String("symbol", symbol),
			zap.Error(err))
	}

	close(ch)
	ActiveSubscriptions.Dec()
	s.logger.Info("symbol-unsubscribed", zap.String("symbol", symbol))
}

// decodeLoop parses raw WebSocket frames into candle points and routes them
// to per-symbol subscriber channels.
func (s *BinanceSource) decodeLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case frame, ok := <-s.wsManager.FrameChan():
			if !ok {
				return
			}
			s.handleFrame(frame)
		}
	}
}

func (s *BinanceSource) handleFrame(frame []byte) {
	var ev klineEvent
	err := json.Unmarshal(frame, &ev)
	if err != nil || ev.EventType != "kline" {
		// Subscription acks and other control frames land here
		s.logger.Debug("non-kline-frame", zap.Int("bytes", len(frame)))
		return
	}

	// Only closed candles, so delivered timestamps never regress
	if !ev.Kline.Closed {
		return
	}

	pt, err := s.candlePoint(ev)
	if err != nil {
		s.logger.Warn("kline-parse-failed",
			zap.String("symbol", ev.Symbol),
			zap.Error(err))
		return
	}

	s.mu.Lock()
	ch, ok := s.subs[ev.Symbol]
	s.mu.Unlock()

	if !ok {
		return
	}

	select {
	case ch <- pt:
		PointsDeliveredTotal.WithLabelValues(ev.Symbol).Inc()
	default:
		s.logger.Warn("subscriber-channel-full", zap.String("symbol", ev.Symbol))
		PointsDroppedTotal.WithLabelValues(ev.Symbol).Inc()
	}
}

func (s *BinanceSource) candlePoint(ev klineEvent) (types.PricePoint, error) {
	open, err := decimal.NewFromString(ev.Kline.Open)
	if err != nil {
		return types.PricePoint{}, fmt.Errorf("open: %w", err)
	}
	high, err := decimal.NewFromString(ev.Kline.High)
	if err != nil {
		return types.PricePoint{}, fmt.Errorf("high: %w", err)
	}
	low, err := decimal.NewFromString(ev.Kline.Low)
	if err != nil {
		return types.PricePoint{}, fmt.Errorf("low: %w", err)
	}
	closePx, err := decimal.NewFromString(ev.Kline.Close)
	if err != nil {
		return types.PricePoint{}, fmt.Errorf("close: %w", err)
	}

	ts := time.UnixMilli(ev.Kline.CloseTime).UTC()
	return types.NewCandlePoint(ev.Symbol, ts, open, high, low, closePx), nil
}

// HistoricalRange fetches ordered candle points from the REST klines
// endpoint, paginating past the exchange page limit. Completed candles are
// immutable, so whole ranges are cached.
func (s *BinanceSource) HistoricalRange(ctx context.Context, symbol string, start, end time.Time, interval string) ([]types.PricePoint, error) {
	if interval == "" {
		interval = s.klineInterval
	}

	cacheKey := fmt.Sprintf("klines:%s:%s:%d:%d", symbol, interval, start.UnixMilli(), end.UnixMilli())
	if s.cache != nil {
		if cached, found := s.cache.Get(cacheKey); found {
			if points, ok := cached.([]types.PricePoint); ok {
				return points, nil
			}
		}
	}

	timer := time.Now()

	var out []types.PricePoint
	cursor := start
	for !cursor.After(end) {
		page, err := s.fetchPage(ctx, symbol, interval, cursor, end)
		if err != nil {
			FetchErrorsTotal.Inc()
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		out = append(out, page...)
		last := page[len(page)-1].Timestamp
		if !last.After(cursor) {
			break
		}
		cursor = last.Add(time.Millisecond)

		if len(page) < restPageLimit {
			break
		}
	}

	FetchDurationSeconds.Observe(time.Since(timer).Seconds())

	if s.cache != nil {
		s.cache.Set(cacheKey, out, s.cacheTTL)
	}

	s.logger.Debug("historical-range-fetched",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Int("points", len(out)))

	return out, nil
}

func (s *BinanceSource) fetchPage(ctx context.Context, symbol, interval string, start, end time.Time) ([]types.PricePoint, error) {
	u, err := url.Parse(s.restURL)
	if err != nil {
		return nil, fmt.Errorf("parse rest url: %w", err)
	}
	u.Path = "/fapi/v1/klines"

	q := u.Query()
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(restPageLimit))
	q.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	q.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch klines: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("klines status %d", resp.StatusCode)
	}

	// Rows are positional arrays: openTime, open, high, low, close, ...
	var raw [][]json.RawMessage
	err = json.NewDecoder(resp.Body).Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}

	out := make([]types.PricePoint, 0, len(raw))
	for _, row := range raw {
		if len(row) < 7 {
			continue
		}

		var closeTime int64
		err = json.Unmarshal(row[6], &closeTime)
		if err != nil {
			return nil, fmt.Errorf("parse close time: %w", err)
		}

		prices := make([]decimal.Decimal, 4)
		for i, idx := range []int{1, 2, 3, 4} {
			var str string
			err = json.Unmarshal(row[idx], &str)
			if err != nil {
				return nil, fmt.Errorf("parse kline column %d: %w", idx, err)
			}
			prices[i], err = decimal.NewFromString(str)
			if err != nil {
				return nil, fmt.Errorf("parse kline price %q: %w", str, err)
			}
		}

		ts := time.UnixMilli(closeTime).UTC()
		out = append(out, types.NewCandlePoint(symbol, ts, prices[0], prices[1], prices[2], prices[3]))
	}

	return out, nil
}

// streamName renders the kline stream name for a symbol.
func (s *BinanceSource) streamName(symbol string) string {
	return fmt.Sprintf("%s@kline_%s", strings.ToLower(symbol), s.klineInterval)
}

// Close shuts down the WebSocket connection and closes all subscriptions.
func (s *BinanceSource) Close() error {
	s.cancel()

	err := s.wsManager.Close()

	// The decode loop must stop before subscriber channels are closed
	s.wg.Wait()

	s.mu.Lock()
	for symbol, ch := range s.subs {
		delete(s.subs, symbol)
		close(ch)
		ActiveSubscriptions.Dec()
	}
	s.mu.Unlock()

	s.logger.Info("binance-source-closed")
	return err
}
