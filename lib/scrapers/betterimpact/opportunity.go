package betterimpact

import (
	"context"
	"errors"
	"log/slog"
	"shiftbooker/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrMemberIdNotFound = errors.New("could not find organization member id on opportunity page")
var ErrActivityIdNotFound = errors.New("could not find activity id on opportunity page")

// ShiftPage is what the booking flow needs out of an opportunity details
// page. the html implementation is NewShiftPage, tests can substitute
// their own.
type ShiftPage interface {
	MemberId() (string, bool)
	ActivityId() (string, bool)
	// ShiftRowId is the id of the first shift row whose description equals
	// label exactly. a matching row without a data-id is not an error, it
	// counts as no match and is skipped like any unmatched label.
	ShiftRowId(label string) (string, bool)
	// ShiftRowLabels lists the descriptions of every shift row in page order.
	ShiftRowLabels() []string
	// ShiftRowText is the visible text of the row with the given id.
	ShiftRowText(id string) string
}

type htmlShiftPage struct {
	doc *goquery.Document
}

func NewShiftPage(doc *goquery.Document) ShiftPage {
	return htmlShiftPage{doc: doc}
}

func (p htmlShiftPage) MemberId() (string, bool) {
	return p.doc.Find("input#OrganizationMemberId").First().Attr("value")
}

func (p htmlShiftPage) ActivityId() (string, bool) {
	return p.doc.Find("input[name=activityId]").First().Attr("value")
}

func (p htmlShiftPage) ShiftRowId(label string) (string, bool) {
	row := p.doc.Find("tr[data-details]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr("data-details", "") == label
	}).First()
	if row.Length() == 0 {
		return "", false
	}
	return row.Attr("data-id")
}

func (p htmlShiftPage) ShiftRowLabels() []string {
	var labels []string
	p.doc.Find("tr[data-details]").Each(func(_ int, s *goquery.Selection) {
		labels = append(labels, s.AttrOr("data-details", ""))
	})
	return labels
}

func (p htmlShiftPage) ShiftRowText(id string) string {
	row := p.doc.Find("tr[data-id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr("data-id", "") == id
	}).First()
	if row.Length() == 0 {
		return ""
	}
	return htmlutil.CleanText(row.Nodes[0])
}

// Opportunity is a volunteer opportunity as seen by the logged in member.
type Opportunity struct {
	MemberId   string
	ActivityId string
	Page       ShiftPage
}

func (c *Client) GetOpportunity(ctx context.Context, guid string) (Opportunity, error) {
	ctx, span := tracer.Start(ctx, "client:GetOpportunity", trace.WithAttributes(
		attribute.String("guid", guid),
	))
	defer span.End()

	doc, err := c.getDocument(ctx, opportunityPath, map[string]string{"guid": guid})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch opportunity details")
		return Opportunity{}, err
	}

	opportunity, err := ParseOpportunity(NewShiftPage(doc))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Opportunity{}, err
	}
	span.SetAttributes(
		attribute.String("member_id", opportunity.MemberId),
		attribute.String("activity_id", opportunity.ActivityId),
	)
	return opportunity, nil
}

func ParseOpportunity(page ShiftPage) (Opportunity, error) {
	memberId, ok := page.MemberId()
	if !ok {
		return Opportunity{}, ErrMemberIdNotFound
	}
	activityId, ok := page.ActivityId()
	if !ok {
		return Opportunity{}, ErrActivityIdNotFound
	}
	return Opportunity{
		MemberId:   memberId,
		ActivityId: activityId,
		Page:       page,
	}, nil
}

// ShiftMatch is the outcome of looking a label up in the shift listing.
type ShiftMatch struct {
	Label string
	Id    string
	Found bool
}

// MatchShifts looks every label up in order. labels without a matching row
// come back with Found unset, they are not an error.
func (o Opportunity) MatchShifts(ctx context.Context, labels []string) []ShiftMatch {
	matches := make([]ShiftMatch, 0, len(labels))
	for _, label := range labels {
		id, ok := o.Page.ShiftRowId(label)
		if !ok {
			closest, similarity := o.ClosestShiftRow(label)
			slog.DebugContext(
				ctx, "no shift row matches label",
				"label", label,
				"closest", closest,
				"similarity", similarity,
			)
		}
		matches = append(matches, ShiftMatch{Label: label, Id: id, Found: ok})
	}
	return matches
}

// ClosestShiftRow returns the row description most similar to label by
// Jaro-Winkler similarity, along with the similarity. it is a hint for
// humans, bookings only ever use exact matches.
func (o Opportunity) ClosestShiftRow(label string) (string, float64) {
	var closest string
	var similarity float64
	for _, row := range o.Page.ShiftRowLabels() {
		s := matchr.JaroWinkler(label, row, false)
		if s > similarity {
			similarity = s
			closest = row
		}
	}
	return closest, similarity
}
