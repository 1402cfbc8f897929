package booker

import (
	"context"
	"errors"
	"shiftbooker/lib/scrapers/betterimpact"
	"shiftbooker/lib/scrapers/betterimpact/betterimpacttest"
	"shiftbooker/lib/shifts"
	"shiftbooker/lib/telemetry"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// a sunday
var testNow = time.Date(2026, time.October, 18, 10, 0, 0, 0, time.UTC)

const listing = `<html><body>
<input id="OrganizationMemberId" value="98765" />
<input name="activityId" value="1234" />
<table>
	<tr data-id="4410" data-details="Saturday, October 24, 2026 9:00 AM - 12:00 PM"></tr>
	<tr data-id="4411" data-details="Saturday, October 24, 2026 1:00 PM - 4:00 PM"></tr>
	<tr data-id="4420" data-details="Saturday, October 31, 2026 9:00 AM - 12:00 PM"></tr>
	<tr data-id="5501" data-details="Monday, October 19, 2026 5:00 PM - 8:00 PM"></tr>
</table>
</body></html>`

type fakeSite struct {
	t         testing.TB
	fetchErr  error
	signupErr map[string]error
	accepted  map[string]string
	requests  []betterimpact.SignupRequest
}

func (f *fakeSite) GetOpportunity(ctx context.Context, guid string) (betterimpact.Opportunity, error) {
	if f.fetchErr != nil {
		return betterimpact.Opportunity{}, f.fetchErr
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listing))
	if err != nil {
		f.t.Fatal(err)
	}
	return betterimpact.ParseOpportunity(betterimpact.NewShiftPage(doc))
}

func (f *fakeSite) SignupForShift(ctx context.Context, req betterimpact.SignupRequest) (betterimpact.SignupResponse, error) {
	f.requests = append(f.requests, req)
	if err := f.signupErr[req.ShiftId]; err != nil {
		return betterimpact.SignupResponse{}, err
	}
	interval, ok := f.accepted[req.ShiftId]
	return betterimpact.SignupResponse{WasSuccessful: ok, TimeIntervalString: interval}, nil
}

func TestScrapeShiftIds(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:internal/booker")
	defer cleanup()

	site := &fakeSite{t: t}
	schedule := Schedule{
		{Weekday: "Saturday", Codes: Codes{shifts.Morning, shifts.Afternoon}},
		{Weekday: "monday", Codes: Codes{shifts.Evening, 1234}},
		{Weekday: "Sunday", Codes: Codes{shifts.Morning}},
	}

	plan, err := ScrapeShiftIds(context.Background(), site, "guid", schedule, testNow)
	require.NoError(t, err)
	require.Equal(t, "98765", plan.Opportunity.MemberId)
	require.Equal(t, "1234", plan.Opportunity.ActivityId)

	// 3 weeks * 2 codes + 3 weeks * 1 known code + 3 weeks * 1 code
	require.Len(t, plan.Matches, 12)
	require.Equal(t, "Saturday", plan.Matches[0].Weekday)
	require.Equal(t, "Saturday, October 24, 2026 9:00 AM - 12:00 PM", plan.Matches[0].Label)
	require.Equal(t, "monday", plan.Matches[6].Weekday)
	require.Equal(t, "Monday, October 19, 2026 5:00 PM - 8:00 PM", plan.Matches[6].Label)

	if diff := cmp.Diff([]string{"4410", "4411", "4420", "5501"}, plan.ShiftIds()); diff != "" {
		t.Fatalf("shift ids mismatch (-want +got):\n%s", diff)
	}
}

func TestScrapeShiftIdsErrors(t *testing.T) {
	fetchErr := errors.New("connection refused")
	_, err := ScrapeShiftIds(context.Background(), &fakeSite{t: t, fetchErr: fetchErr}, "guid", nil, testNow)
	require.ErrorIs(t, err, fetchErr)

	_, err = ScrapeShiftIds(context.Background(), &fakeSite{t: t}, "guid", Schedule{
		{Weekday: "Caturday", Codes: Codes{shifts.Morning}},
	}, testNow)
	require.Error(t, err)
}

func TestSubmitBookings(t *testing.T) {
	site := &fakeSite{
		t: t,
		accepted: map[string]string{
			"b": "2026-10-24T09:00:00.0000000/2026-10-24T12:00:00.0000000",
		},
	}
	plan := Plan{
		Opportunity: betterimpact.Opportunity{MemberId: "m", ActivityId: "a"},
		Matches: []LabelMatch{
			{ShiftMatch: betterimpact.ShiftMatch{Label: "1", Id: "a", Found: true}},
			{ShiftMatch: betterimpact.ShiftMatch{Label: "2"}},
			{ShiftMatch: betterimpact.ShiftMatch{Label: "3", Id: "b", Found: true}},
			{ShiftMatch: betterimpact.ShiftMatch{Label: "4", Id: "a", Found: true}},
		},
	}

	responses, err := SubmitBookings(context.Background(), site, plan)
	require.NoError(t, err)
	require.Len(t, responses, 3)
	require.False(t, responses[0].WasSuccessful)
	require.True(t, responses[1].WasSuccessful)
	require.False(t, responses[2].WasSuccessful)

	require.Equal(t, []betterimpact.SignupRequest{
		{ActivityId: "a", MemberId: "m", ShiftId: "a"},
		{ActivityId: "a", MemberId: "m", ShiftId: "b"},
		{ActivityId: "a", MemberId: "m", ShiftId: "a"},
	}, site.requests)

	responses, err = SubmitBookings(context.Background(), site, Plan{})
	require.NoError(t, err)
	require.Empty(t, responses)
}

func TestSubmitBookingsError(t *testing.T) {
	decodeErr := errors.New("invalid character '<'")
	site := &fakeSite{t: t, signupErr: map[string]error{"b": decodeErr}}
	plan := Plan{Matches: []LabelMatch{
		{ShiftMatch: betterimpact.ShiftMatch{Id: "a", Found: true}},
		{ShiftMatch: betterimpact.ShiftMatch{Id: "b", Found: true}},
		{ShiftMatch: betterimpact.ShiftMatch{Id: "c", Found: true}},
	}}

	_, err := SubmitBookings(context.Background(), site, plan)
	require.ErrorIs(t, err, decodeErr)
	require.Len(t, site.requests, 2)
}

func newRunSite(t testing.TB, opts betterimpacttest.Options) *betterimpacttest.Server {
	opts.Username = "volunteer@example.com"
	opts.Password = "hunter2"
	opts.MemberId = "98765"
	opts.ActivityId = "1234"
	opts.Guid = DefaultOpportunityGuid
	opts.Shifts = []betterimpacttest.Shift{
		{
			Id:       "4410",
			Label:    "Saturday, October 24, 2026 9:00 AM - 12:00 PM",
			Openings: 2,
			Interval: "2026-10-24T09:00:00.0000000/2026-10-24T12:00:00.0000000",
		},
		{
			Id:    "4411",
			Label: "Saturday, October 24, 2026 1:00 PM - 4:00 PM",
			Full:  true,
		},
		{
			Id:       "4420",
			Label:    "Saturday, October 31, 2026 9:00 AM - 12:00 PM",
			Openings: 1,
			Interval: "2026-10-31T09:00:00.0000000/2026-10-31T12:00:00.0000000",
		},
	}
	site := betterimpacttest.NewServer(opts)
	t.Cleanup(site.Close)
	return site
}

func runConfig(site *betterimpacttest.Server) Config {
	return Config{
		Username: site.Username,
		Password: site.Password,
		Time: Schedule{
			{Weekday: "saturday", Codes: Codes{shifts.Morning, shifts.Afternoon}},
			{Weekday: "sunday", Codes: Codes{shifts.Evening}},
		},
		BaseUrl:         site.URL,
		OpportunityGuid: DefaultOpportunityGuid,
	}
}

func TestRun(t *testing.T) {
	site := newRunSite(t, betterimpacttest.Options{})

	summary, err := Run(context.Background(), runConfig(site), RunOptions{Now: testNow})
	require.NoError(t, err)
	require.Equal(
		t,
		"Successfully signed up for 2 shifts:\n"+
			"- Saturday, October 24, 2026 9:00 AM to 12:00 PM\n"+
			"- Saturday, October 31, 2026 9:00 AM to 12:00 PM",
		summary,
	)

	signups := site.Signups()
	require.Len(t, signups, 3)
	require.Equal(t, "4410", signups[0].Get("activityShiftId"))
	require.Equal(t, "4411", signups[1].Get("activityShiftId"))
	require.Equal(t, "4420", signups[2].Get("activityShiftId"))
}

func TestRunNothingBookable(t *testing.T) {
	site := newRunSite(t, betterimpacttest.Options{})
	cfg := runConfig(site)
	cfg.Time = Schedule{{Weekday: "tuesday", Codes: Codes{shifts.Morning}}}

	summary, err := Run(context.Background(), cfg, RunOptions{Now: testNow})
	require.NoError(t, err)
	require.Equal(t, NoShiftsMessage, summary)
	require.Empty(t, site.Signups())
}

func TestRunBadCredentials(t *testing.T) {
	site := newRunSite(t, betterimpacttest.Options{})
	cfg := runConfig(site)
	cfg.Password = "wrong"

	// the login failure only shows up as a missing member id
	_, err := Run(context.Background(), cfg, RunOptions{Now: testNow})
	require.ErrorIs(t, err, betterimpact.ErrMemberIdNotFound)

	cfg.VerifyLogin = true
	_, err = Run(context.Background(), cfg, RunOptions{Now: testNow})
	require.ErrorIs(t, err, betterimpact.ErrLoginFailed)
}
