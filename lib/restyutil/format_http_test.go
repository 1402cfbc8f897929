package restyutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestFormatHeaders(t *testing.T) {
	headers := http.Header{}
	headers.Add("X-Requested-With", "XMLHttpRequest")
	headers.Add("Accept", "text/html")
	headers.Add("Accept", "application/json")

	require.Equal(
		t,
		"Accept: text/html\nAccept: application/json\nX-Requested-With: XMLHttpRequest",
		formatHeaders(headers),
	)
	require.Equal(t, "", formatHeaders(http.Header{}))
}

func TestRedactForm(t *testing.T) {
	redacted := redactForm("username=alice&password=hunter2&__RequestVerificationToken=abc")
	require.NotContains(t, redacted, "hunter2")
	require.NotContains(t, redacted, "abc")
	require.Contains(t, redacted, "username=alice")

	require.Equal(t, "activityId=1", redactForm("activityId=1"))
}

func TestFormatHeadersRedactsSession(t *testing.T) {
	headers := http.Header{}
	headers.Add("Cookie", "BISession=abc123; .AspNetCore.Antiforgery=def")
	headers.Add("Set-Cookie", "BISession=abc123; Path=/")
	headers.Add("Authorization", "Bearer xyz")
	headers.Add("Accept", "text/html")

	formatted := formatHeaders(headers)
	require.Equal(
		t,
		"Accept: text/html\nAuthorization: <redacted>\nCookie: <redacted>\nSet-Cookie: <redacted>",
		formatted,
	)
	require.NotContains(t, formatted, "abc123")
}

func TestRedactBody(t *testing.T) {
	body := `<form>
<input name="__RequestVerificationToken" type="hidden" value="CfDJ8secret" />
<input value="CfDJ8other" type="hidden" name="__RequestVerificationToken">
<input name="username" value="alice" />
</form>`

	redacted := redactBody(body)
	require.NotContains(t, redacted, "CfDJ8secret")
	require.NotContains(t, redacted, "CfDJ8other")
	require.Contains(t, redacted, `<input name="__RequestVerificationToken" type="hidden" value="<redacted>" />`)
	require.Contains(t, redacted, `<input value="<redacted>" type="hidden" name="__RequestVerificationToken">`)
	require.Contains(t, redacted, `<input name="username" value="alice" />`)

	require.Equal(t, `{"WasSuccessful":true}`, redactBody(`{"WasSuccessful":true}`))
}

type memoryOutput map[string]string

func (m memoryOutput) Write(id string, contents string) {
	m[id] = contents
}

func TestInstrumentClientWritesMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	out := memoryOutput{}
	client := resty.New()
	InstrumentClient(client, nil, out)

	_, err := client.R().
		SetFormData(map[string]string{"username": "alice", "password": "hunter2"}).
		Post(srv.URL + "/Login/Login")
	require.NoError(t, err)

	require.Len(t, out, 1)
	message := out["1"]
	require.True(t, strings.HasPrefix(message, "---- REQUEST ----"))
	require.Contains(t, message, "POST "+srv.URL+"/Login/Login")
	require.Contains(t, message, "username=alice")
	require.NotContains(t, message, "hunter2")
	require.Contains(t, message, "hello")
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dump")
	out, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	out.Write("7", "contents")
	written, err := os.ReadFile(filepath.Join(dir, "7"))
	require.NoError(t, err)
	require.Equal(t, "contents", string(written))
}

func TestInstrumentClientRedactsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "BISession", Value: "sessionsecret", Path: "/"})
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<input name="__RequestVerificationToken" type="hidden" value="tokensecret" />`))
	}))
	defer srv.Close()

	out := memoryOutput{}
	client := resty.New()
	InstrumentClient(client, nil, out)

	_, err := client.R().
		SetHeader("Cookie", "BISession=sessionsecret").
		Get(srv.URL + "/Login/Login")
	require.NoError(t, err)

	require.Len(t, out, 1)
	message := out["1"]
	require.Contains(t, message, "Cookie: <redacted>")
	require.Contains(t, message, "Set-Cookie: <redacted>")
	require.NotContains(t, message, "sessionsecret")
	require.NotContains(t, message, "tokensecret")
}
