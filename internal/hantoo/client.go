package hantoo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"rhetenor/internal/logger"
	"rhetenor/internal/market"
)

// ErrRemote is any broker-side failure: non-2xx HTTP status or a non-zero
// rt_cd in the response body. The caller decides whether to abort or skip the
// instrument; the client never retries.
var ErrRemote = errors.New("hantoo remote error")

const (
	chartPath = "/uapi/domestic-stock/v1/quotations/inquire-time-dailychartprice"
	chartTrID = "FHKST03010230"

	// Continuation protocol: the response header tr_cont carries M or F while
	// more pages exist; the next request is sent with tr_cont=N.
	contMore1 = "M"
	contMore2 = "F"
	contNext  = "N"

	// DefaultMaxRecords caps the accumulated record count of one pagination
	// loop. Hitting it is an end condition, not an error.
	DefaultMaxRecords = 100000
)

// Limiter paces outbound requests. Implemented by ingest's request pacer.
type Limiter interface {
	Wait(ctx context.Context) error
}

type noLimit struct{}

func (noLimit) Wait(context.Context) error { return nil }

// Client wraps the broker's minute-chart query endpoint including its
// continuation-token protocol.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	creds      Credentials
	tokens     TokenProvider
	limiter    Limiter
	loc        *time.Location
	maxRecords int
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func WithLimiter(l Limiter) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.limiter = l
		}
	}
}

func WithMaxRecords(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxRecords = n
		}
	}
}

func NewClient(baseURL string, creds Credentials, tokens TokenProvider, loc *time.Location, opts ...ClientOption) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parsing hantoo base url: %w", err)
	}
	if tokens == nil {
		return nil, fmt.Errorf("token provider is required")
	}
	if loc == nil {
		loc = time.UTC
	}
	c := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		creds:      creds,
		tokens:     tokens,
		limiter:    noLimit{},
		loc:        loc,
		maxRecords: DefaultMaxRecords,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchMinuteBars pulls every minute bar the broker will return for one
// instrument anchored at the given query date/time, following continuation
// headers until the server signals the end or the safety cap is reached.
// Pages arrive newest-first; ordering is left to the aggregation stage.
func (c *Client) FetchMinuteBars(ctx context.Context, code, queryDate, queryTime string) ([]market.RawBar, error) {
	var bars []market.RawBar
	cont := ""
	for {
		header, page, err := c.fetchPage(ctx, code, queryDate, queryTime, cont)
		if err != nil {
			return nil, err
		}
		bars = append(bars, page...)
		if len(bars) > c.maxRecords {
			logger.Warnf("hantoo: %s hit record cap (%d), stopping pagination", code, c.maxRecords)
			break
		}
		more := strings.ToUpper(strings.TrimSpace(header))
		if more != contMore1 && more != contMore2 {
			break
		}
		cont = contNext
	}
	return bars, nil
}

// fetchPage performs a single request and returns the response's tr_cont
// header alongside the parsed bars.
func (c *Client) fetchPage(ctx context.Context, code, queryDate, queryTime, cont string) (string, []market.RawBar, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", nil, err
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("%w: token unavailable: %v", ErrRemote, err)
	}

	endpoint := *c.baseURL
	endpoint.Path = strings.TrimSuffix(endpoint.Path, "/") + chartPath
	q := url.Values{}
	q.Set("FID_COND_MRKT_DIV_CODE", "J")
	q.Set("FID_INPUT_ISCD", code)
	q.Set("FID_INPUT_DATE_1", queryDate)
	q.Set("FID_INPUT_HOUR_1", queryTime)
	q.Set("FID_PW_DATA_INCU_YN", "Y")
	q.Set("FID_FAKE_TICK_INCU_YN", "N")
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("appkey", c.creds.AppKey)
	req.Header.Set("appsecret", c.creds.AppSecret)
	req.Header.Set("tr_id", chartTrID)
	req.Header.Set("custtype", "P")
	req.Header.Set("tr_cont", cont)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", nil, fmt.Errorf("%w: reading body: %v", ErrRemote, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", nil, fmt.Errorf("%w: %s: %s", ErrRemote, resp.Status, truncate(body, 256))
	}
	if rt := gjson.GetBytes(body, "rt_cd").String(); rt != "" && rt != "0" {
		msg := strings.TrimSpace(gjson.GetBytes(body, "msg1").String())
		return "", nil, fmt.Errorf("%w: rt_cd=%s %s", ErrRemote, rt, msg)
	}

	bars := c.parseBars(code, body)
	return resp.Header.Get("tr_cont"), bars, nil
}

// parseBars walks output2. Malformed entries are dropped, not fatal: a single
// bad bar must never cost the instrument's whole page.
func (c *Client) parseBars(code string, body []byte) []market.RawBar {
	rows := gjson.GetBytes(body, "output2")
	if !rows.IsArray() {
		return nil
	}
	bars := make([]market.RawBar, 0, 32)
	dropped := 0
	rows.ForEach(func(_, row gjson.Result) bool {
		day := row.Get("stck_bsop_date").String()
		hour := row.Get("stck_cntg_hour").String()
		ts, err := time.ParseInLocation("20060102150405", day+hour, c.loc)
		if err != nil {
			dropped++
			return true
		}
		bars = append(bars, market.RawBar{
			Code:   code,
			Time:   ts,
			Open:   row.Get("stck_oprc").Int(),
			High:   row.Get("stck_hgpr").Int(),
			Low:    row.Get("stck_lwpr").Int(),
			Close:  row.Get("stck_prpr").Int(),
			Volume: row.Get("cntg_vol").Int(),
		})
		return true
	})
	if dropped > 0 {
		logger.Warnf("hantoo: %s dropped %d bars with malformed timestamps", code, dropped)
	}
	return bars
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
