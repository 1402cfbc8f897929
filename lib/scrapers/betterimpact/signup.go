package betterimpact

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type SignupRequest struct {
	ActivityId string
	MemberId   string
	ShiftId    string
}

// SignupResponse is the json the signup endpoint answers with, only the
// fields the booking flow reads are decoded.
type SignupResponse struct {
	WasSuccessful bool `json:"WasSuccessful"`
	// "<start>/<end>", both timestamps in the site's local time.
	TimeIntervalString string `json:"TimeIntervalString"`
}

// SignupForShift books one shift for a group of one. a rejected booking is
// not an error, it comes back with WasSuccessful set to false.
func (c *Client) SignupForShift(ctx context.Context, req SignupRequest) (SignupResponse, error) {
	ctx, span := tracer.Start(ctx, "client:SignupForShift", trace.WithAttributes(
		attribute.String("activity_id", req.ActivityId),
		attribute.String("member_id", req.MemberId),
		attribute.String("shift_id", req.ShiftId),
	))
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("X-Requested-With", "XMLHttpRequest").
		SetQueryParams(map[string]string{
			"activityId":           req.ActivityId,
			"organizationMemberId": req.MemberId,
			"groupSize":            "1",
			"activityShiftId":      req.ShiftId,
		}).
		Post(signupPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make signup request")
		return SignupResponse{}, err
	}

	var out SignupResponse
	err = json.Unmarshal(res.Body(), &out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode signup response")
		return SignupResponse{}, fmt.Errorf(
			"decode signup response for shift %s (status %d): %w",
			req.ShiftId, res.StatusCode(), err,
		)
	}
	span.SetAttributes(attribute.Bool("was_successful", out.WasSuccessful))
	return out, nil
}
