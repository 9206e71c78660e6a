package artifact

import (
	"encoding/json"
	"fmt"

	"TrialFeeds/internal/domain"
	"TrialFeeds/internal/ports"
)

// Writer serializes summary documents into their JSON artifact form and
// renders the chart and index pages. Field order inside each envelope is
// fixed by the struct layout so consecutive snapshots diff cleanly.
type Writer struct{}

var _ ports.ArtifactWriter = (*Writer)(nil)

// NewWriter returns a stateless writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Document validates a summary document against its feed schema and
// serializes it. A payload of the wrong type is a programming error and
// surfaces as a serialization failure that aborts the run.
func (w *Writer) Document(doc domain.SummaryDocument) (domain.Artifact, error) {
	if err := validateMeta(doc.Meta); err != nil {
		return domain.Artifact{}, fmt.Errorf("%s: %w", doc.Name, err)
	}

	envelope, err := envelopeFor(doc)
	if err != nil {
		return domain.Artifact{}, err
	}

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("%s: %w: %w", doc.Name, domain.ErrSerialization, err)
	}
	data = append(data, '\n')

	return domain.Artifact{Name: doc.Name.ArtifactName(), Data: data}, nil
}

func envelopeFor(doc domain.SummaryDocument) (any, error) {
	switch doc.Name {
	case domain.FeedCountsByPhase:
		rows, ok := doc.Rows.([]domain.PhaseCount)
		if !ok {
			return nil, payloadMismatch(doc)
		}
		return struct {
			Meta   domain.Meta         `json:"meta"`
			Phases []domain.PhaseCount `json:"phases"`
		}{doc.Meta, rows}, nil

	case domain.FeedPhaseStatus:
		rows, ok := doc.Rows.([]domain.PhaseStatusCount)
		if !ok {
			return nil, payloadMismatch(doc)
		}
		return struct {
			Meta  domain.Meta               `json:"meta"`
			Cells []domain.PhaseStatusCount `json:"cells"`
		}{doc.Meta, rows}, nil

	case domain.FeedUpcoming:
		rows, ok := doc.Rows.([]domain.UpcomingTrial)
		if !ok {
			return nil, payloadMismatch(doc)
		}
		return struct {
			Meta   domain.Meta            `json:"meta"`
			Trials []domain.UpcomingTrial `json:"trials"`
		}{doc.Meta, rows}, nil

	case domain.FeedSponsorTop:
		rows, ok := doc.Rows.([]domain.SponsorPipeline)
		if !ok {
			return nil, payloadMismatch(doc)
		}
		return struct {
			Meta     domain.Meta              `json:"meta"`
			Sponsors []domain.SponsorPipeline `json:"sponsors"`
		}{doc.Meta, rows}, nil
	}

	return nil, fmt.Errorf("%w: unknown feed %q", domain.ErrSerialization, doc.Name)
}

func validateMeta(meta domain.Meta) error {
	if meta.AsOfUTC.IsZero() {
		return fmt.Errorf("%w: missing as_of_utc", domain.ErrSerialization)
	}
	if meta.SchemaVersion <= 0 {
		return fmt.Errorf("%w: missing schema_version", domain.ErrSerialization)
	}
	return nil
}

func payloadMismatch(doc domain.SummaryDocument) error {
	return fmt.Errorf("%w: feed %s carries payload of type %T", domain.ErrSerialization, doc.Name, doc.Rows)
}
