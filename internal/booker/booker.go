package booker

import (
	"context"
	"log/slog"
	"shiftbooker/lib/restyutil"
	"shiftbooker/lib/scrapers/betterimpact"
	"shiftbooker/lib/shifts"
	"shiftbooker/lib/telemetry"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = telemetry.Tracer("shiftbooker.internal.booker")
var meter = telemetry.Meter("shiftbooker.internal.booker")

var attemptedCounter, _ = meter.Int64Counter(
	"shiftbooker.bookings.attempted",
	metric.WithDescription("signup requests sent"),
)
var succeededCounter, _ = meter.Int64Counter(
	"shiftbooker.bookings.succeeded",
	metric.WithDescription("signup requests the site accepted"),
)

type OpportunityFetcher interface {
	GetOpportunity(ctx context.Context, guid string) (betterimpact.Opportunity, error)
}

type ShiftSigner interface {
	SignupForShift(ctx context.Context, req betterimpact.SignupRequest) (betterimpact.SignupResponse, error)
}

// LabelMatch is a resolved shift label and what the listing had for it.
type LabelMatch struct {
	Weekday string
	betterimpact.ShiftMatch
}

// Plan is everything scraping found out, in schedule order.
type Plan struct {
	Opportunity betterimpact.Opportunity
	Matches     []LabelMatch
}

// ShiftIds lists the ids of matched labels, duplicates included.
func (p Plan) ShiftIds() []string {
	var ids []string
	for _, m := range p.Matches {
		if m.Found {
			ids = append(ids, m.Id)
		}
	}
	return ids
}

// ScrapeShiftIds fetches the opportunity page and matches the labels of every
// schedule entry against its shift rows.
func ScrapeShiftIds(ctx context.Context, client OpportunityFetcher, guid string, schedule Schedule, now time.Time) (Plan, error) {
	ctx, span := tracer.Start(ctx, "ScrapeShiftIds")
	defer span.End()

	opportunity, err := client.GetOpportunity(ctx, guid)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get opportunity")
		return Plan{}, err
	}

	plan := Plan{Opportunity: opportunity}
	for _, day := range schedule {
		labels, err := shifts.Resolve(now, day.Weekday, day.Codes)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to resolve shift labels")
			return Plan{}, err
		}
		for _, match := range opportunity.MatchShifts(ctx, labels) {
			plan.Matches = append(plan.Matches, LabelMatch{
				Weekday:    day.Weekday,
				ShiftMatch: match,
			})
		}
	}

	span.SetAttributes(
		attribute.Int("labels", len(plan.Matches)),
		attribute.Int("shift_ids", len(plan.ShiftIds())),
	)
	return plan, nil
}

// SubmitBookings signs up for every shift of the plan one after the other.
// a rejected booking does not stop the rest, the responses line up with
// plan.ShiftIds().
func SubmitBookings(ctx context.Context, client ShiftSigner, plan Plan) ([]betterimpact.SignupResponse, error) {
	ctx, span := tracer.Start(ctx, "SubmitBookings")
	defer span.End()

	ids := plan.ShiftIds()
	responses := make([]betterimpact.SignupResponse, 0, len(ids))
	for _, id := range ids {
		res, err := client.SignupForShift(ctx, betterimpact.SignupRequest{
			ActivityId: plan.Opportunity.ActivityId,
			MemberId:   plan.Opportunity.MemberId,
			ShiftId:    id,
		})
		attemptedCounter.Add(ctx, 1)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to sign up for shift")
			return nil, err
		}
		if res.WasSuccessful {
			succeededCounter.Add(ctx, 1)
		}
		slog.DebugContext(ctx, "signup response", "shift_id", id, "successful", res.WasSuccessful)
		responses = append(responses, res)
	}
	return responses, nil
}

type RunOptions struct {
	// Now is the moment the schedule is resolved against.
	Now time.Time
	// InstrumentOutput receives a dump of every http message, can be nil.
	InstrumentOutput restyutil.InstrumentOutput
}

// Login creates a client for the configured site and logs into it.
func Login(ctx context.Context, cfg Config, output restyutil.InstrumentOutput) (*betterimpact.Client, error) {
	client, err := betterimpact.NewClient(betterimpact.ClientOptions{
		BaseUrl:          cfg.BaseUrl,
		VerifyLogin:      cfg.VerifyLogin,
		InstrumentOutput: output,
	})
	if err != nil {
		return nil, err
	}
	err = client.LoginUsernamePassword(ctx, cfg.Username, cfg.Password)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Run is the whole booking flow: login, scrape, book, summarize.
func Run(ctx context.Context, cfg Config, opts RunOptions) (string, error) {
	ctx, span := tracer.Start(ctx, "Run", trace.WithAttributes(
		attribute.String("username", cfg.Username),
	))
	defer span.End()

	client, err := Login(ctx, cfg, opts.InstrumentOutput)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to login")
		return "", err
	}

	plan, err := ScrapeShiftIds(ctx, client, cfg.OpportunityGuid, cfg.Time, opts.Now)
	if err != nil {
		return "", err
	}
	slog.InfoContext(
		ctx, "scraped shifts",
		"labels", len(plan.Matches),
		"shift_ids", len(plan.ShiftIds()),
	)

	responses, err := SubmitBookings(ctx, client, plan)
	if err != nil {
		return "", err
	}

	return Summarize(responses)
}
