package grocery

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"budgeat-backend/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/grocery")

var instrumentOutput restyutil.InstrumentOutput

func SetRestyInstrumentOutput(output restyutil.InstrumentOutput) {
	instrumentOutput = output
}

// StaticNavigator fetches search pages over plain http. It works for
// stores that render prices server side and as a degraded mode when no
// chrome binary is available; it cannot rasterize, so pages it loads
// never reach the vision tier.
type StaticNavigator struct {
	mu      sync.Mutex
	clients map[string]*resty.Client
}

func NewStaticNavigator() *StaticNavigator {
	return &StaticNavigator{clients: map[string]*resty.Client{}}
}

func (n *StaticNavigator) client(store Store) (*resty.Client, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if c, ok := n.clients[store.Id]; ok {
		return c, nil
	}

	baseUrl, err := url.Parse(store.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(store.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetHeader("accept-language", "en-US,en;q=0.9")
	client.SetHeader("accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(time.Second * 30)

	restyutil.InstrumentClient(client, tracer, instrumentOutput)

	n.clients[store.Id] = client
	return client, nil
}

func (n *StaticNavigator) Load(ctx context.Context, store Store, term string) (Page, error) {
	ctx, span := tracer.Start(ctx, "static:Load")
	defer span.End()

	client, err := n.client(store)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build client")
		return Page{}, err
	}

	searchUrl := store.SearchURL(term)
	res, err := client.R().
		SetContext(ctx).
		Get(searchUrl)
	if err != nil {
		span.RecordError(err)
		if ctx.Err() != nil {
			span.SetStatus(codes.Error, "navigation timed out")
			return Page{}, joinErr(ErrNavTimeout, err)
		}
		span.SetStatus(codes.Error, "transport failure")
		return Page{}, joinErr(ErrTransport, err)
	}

	if blockedResponse(res) {
		span.SetStatus(codes.Error, "blocked by store")
		return Page{}, ErrBlocked
	}
	if res.StatusCode() != http.StatusOK {
		span.SetStatus(codes.Error, "unexpected status")
		return Page{}, joinErr(ErrTransport, errStatus(res.StatusCode()))
	}

	return Page{
		StoreId: store.Id,
		Url:     searchUrl,
		HTML:    string(res.Body()),
	}, nil
}

// bot detection responses come back as 403/429 or as a challenge page
// with a 200 status
func blockedResponse(res *resty.Response) bool {
	switch res.StatusCode() {
	case http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}
	return blockedPage(string(res.Body()))
}
