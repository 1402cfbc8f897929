package restyutil

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

// form fields that never make it into a dump
var redactedFields = []string{"password", "__RequestVerificationToken"}

// headers carrying the session, their values never make it into a dump
var redactedHeaders = []string{"Authorization", "Cookie", "Set-Cookie"}

// the anti-forgery token input as rendered in html bodies, either attribute order
var tokenInputRegex = regexp.MustCompile(
	`(name="__RequestVerificationToken"[^>]*?value=")[^"]*(")|(value=")[^"]*("[^>]*?name="__RequestVerificationToken")`,
)

func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var out strings.Builder
	for _, k := range keys {
		redact := slices.Contains(redactedHeaders, http.CanonicalHeaderKey(k))
		for _, v := range headers[k] {
			if redact {
				v = "<redacted>"
			}
			out.WriteString(fmt.Sprintf("%s: %s\n", k, v))
		}
	}
	return strings.TrimSuffix(out.String(), "\n")
}

func redactForm(body string) string {
	values, err := url.ParseQuery(body)
	if err != nil {
		return body
	}
	redacted := false
	for _, field := range redactedFields {
		if values.Has(field) {
			values.Set(field, "<redacted>")
			redacted = true
		}
	}
	if !redacted {
		return body
	}
	return values.Encode()
}

func redactBody(body string) string {
	return tokenInputRegex.ReplaceAllString(body, "${1}${3}<redacted>${2}${4}")
}

func formatRequestBody(req *http.Request) string {
	if req.GetBody == nil {
		return ""
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("failed to get request body: %s", err.Error())
	}
	readBody, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("failed to read request body: %s", err.Error())
	}
	return redactForm(string(readBody))
}

// 1: request method
// 2: request url
// 3: request headers in ("Key: Value" format)
// 4: request body
// 5: response status
// 6: response url
// 7: response headers in ("Key: Value" format)
// 8: response body
const messageInfoTemplate = `---- REQUEST ----

%s %s

%s

%s

---- RESPONSE ----

%s %s

%s

%s`

func formatHttpMessage(res *resty.Response) string {
	requestHeaders := formatHeaders(res.Request.RawRequest.Header)
	responseHeaders := formatHeaders(res.Header())

	responseUrl := res.Request.URL
	redirected, err := res.RawResponse.Location()
	if err == nil {
		responseUrl = redirected.String()
	}

	return fmt.Sprintf(
		messageInfoTemplate,

		res.Request.Method, res.Request.URL,
		requestHeaders,
		formatRequestBody(res.Request.RawRequest),

		strconv.Itoa(res.StatusCode()), responseUrl,
		responseHeaders,
		redactBody(res.String()),
	)
}
