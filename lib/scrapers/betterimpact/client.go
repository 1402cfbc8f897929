package betterimpact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"shiftbooker/lib/restyutil"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

const DefaultBaseUrl = "https://app.betterimpact.com"

const (
	loginPath       = "/Login/Login"
	opportunityPath = "/Volunteer/Schedule/OpportunityDetails"
	signupPath      = "/Volunteer/Schedule/SignupForShift"
)

// siteDomain and its subdomains are always allowed as redirect targets,
// login can bounce between hosts of the same site.
const siteDomain = "betterimpact.com"

const maxRedirects = 30

var ErrTokenNotFound = errors.New("could not find login verification token")
var ErrLoginFailed = errors.New("failed to login to your account")

// Client holds the authenticated session, the cookie jar of the underlying
// resty client is what carries the login across requests.
type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	verifyLogin bool
}

type ClientOptions struct {
	BaseUrl string
	// VerifyLogin makes LoginUsernamePassword return ErrLoginFailed when the
	// site answers the credentials with the login form again. when false the
	// same condition is only logged.
	VerifyLogin bool
	// InstrumentOutput receives a dump of every request/response pair, can be nil.
	InstrumentOutput restyutil.InstrumentOutput
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(
		resty.FlexibleRedirectPolicy(maxRedirects),
		siteRedirectPolicy(baseUrl.Hostname()),
	)
	client.SetTimeout(time.Second * 30)

	restyutil.InstrumentClient(client, tracer, opts.InstrumentOutput)

	c := &Client{
		BaseUrl:     baseUrl,
		Http:        client,
		verifyLogin: opts.VerifyLogin,
	}
	return c, nil
}

// siteRedirectPolicy only follows redirects to baseHost or hosts under
// siteDomain.
func siteRedirectPolicy(baseHost string) resty.RedirectPolicy {
	return resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
		host := req.URL.Hostname()
		if host == baseHost || host == siteDomain || strings.HasSuffix(host, "."+siteDomain) {
			return nil
		}
		return fmt.Errorf("refusing to follow redirect to %s", host)
	})
}

func (c *Client) getDocument(ctx context.Context, path string, query map[string]string) (*goquery.Document, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse %s (status %d): %w", path, res.StatusCode(), err)
	}
	return doc, nil
}

func findVerificationToken(doc *goquery.Document) (string, bool) {
	return doc.Find("input[name=__RequestVerificationToken]").First().Attr("value")
}

// the login form is the only place the site renders a password input.
func isLoginForm(doc *goquery.Document) bool {
	return doc.Find("input[type=password]").Length() > 0
}

func (c *Client) LoginUsernamePassword(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "client:LoginUsernamePassword")
	defer span.End()

	doc, err := c.getDocument(ctx, loginPath, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch login page")
		return err
	}

	token, ok := findVerificationToken(doc)
	if !ok {
		span.SetStatus(codes.Error, "failed to find login token")
		return ErrTokenNotFound
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username":                   username,
			"password":                   password,
			"__RequestVerificationToken": token,
		}).
		Post(loginPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make login request")
		return err
	}

	doc, err = goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse login response html")
		return err
	}
	if isLoginForm(doc) {
		if c.verifyLogin {
			span.SetStatus(codes.Error, ErrLoginFailed.Error())
			return ErrLoginFailed
		}
		slog.WarnContext(
			ctx, "login form was served again after posting credentials, the login probably failed",
			"username", username,
			"status", res.StatusCode(),
		)
		return nil
	}

	slog.DebugContext(ctx, "logged in", "username", username)
	return nil
}
